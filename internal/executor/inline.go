package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chronoflow/scheduler/internal/domain"
)

// Inline runs a job's callable directly on a goroutine spawned by Send —
// the "runs on the scheduler's own cooperative task runtime" variant from
// the domain stack notes. It never blocks Send beyond the instance-limit
// check, and tracks in-flight runs so Shutdown(wait=true) can drain them.
type Inline struct {
	alias   string
	logger  *slog.Logger
	events  ResultReporter
	tracker *instanceTracker

	wg       sync.WaitGroup
	mu       sync.Mutex
	shutdown bool
}

func NewInline(logger *slog.Logger) *Inline {
	return &Inline{logger: logger, tracker: newInstanceTracker()}
}

func (e *Inline) Start(_ context.Context, alias string, events ResultReporter) error {
	e.alias = alias
	e.events = events
	e.logger = e.logger.With("component", "inline_executor", "executor", alias)
	return nil
}

func (e *Inline) Shutdown(ctx context.Context, wait bool) error {
	e.mu.Lock()
	e.shutdown = true
	e.mu.Unlock()

	if !wait {
		return nil
	}
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Inline) Send(_ context.Context, req domain.RunRequest) error {
	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		return fmt.Errorf("inline executor %s: %w", e.alias, domain.ErrSchedulerNotRunning)
	}
	e.mu.Unlock()

	job := req.JobSnapshot
	if !e.tracker.tryAcquire(job.ID, job.MaxInstances) {
		return domain.ErrMaxInstancesReached
	}

	e.wg.Add(1)
	go e.run(job, req.ScheduledRunTimes)
	return nil
}

func (e *Inline) run(job *domain.Job, scheduledRunTimes []time.Time) {
	defer e.wg.Done()
	defer e.tracker.release(job.ID)

	runCtx := domain.RunContext{
		JobID:             job.ID,
		ScheduledRunTimes: scheduledRunTimes,
		Args:              job.Callable.Args,
	}

	start := time.Now()
	retVal, err := e.invoke(job, runCtx)
	duration := time.Since(start)

	code := domain.JobExecuted
	if err != nil {
		code = domain.JobError
		e.logger.Error("job run failed", "job_id", job.ID, "error", err, "duration", duration)
	} else {
		e.logger.Info("job run completed", "job_id", job.ID, "duration", duration)
	}

	e.events.Dispatch(domain.Event{
		Code:              code,
		Time:              time.Now(),
		JobID:             job.ID,
		ExecutorName:      e.alias,
		ScheduledRunTimes: scheduledRunTimes,
		RetVal:            retVal,
		Err:               err,
		UserCode:          err != nil && job.Callable.Func != nil,
	})
}

// invoke recovers a panicking callable into an error, matching the spec's
// "a callable that panics is reported as a JobError, never crashes the
// process" requirement.
func (e *Inline) invoke(job *domain.Job, runCtx domain.RunContext) (ret any, err error) {
	if job.Callable.Func == nil {
		return nil, fmt.Errorf("inline executor: job %s: callable has no resolved function", job.ID)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("inline executor: job %s: callable panicked: %v", job.ID, r)
		}
	}()
	return job.Callable.Func(runCtx)
}
