package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chronoflow/scheduler/internal/domain"
)

// Pool starts one goroutine per Send but lets at most size of them run
// their callable at once, mirroring the
// teacher's Worker.processBatch concurrency shape (claim batch, wg.Wait on
// a fixed fan-out) but gated by a semaphore channel instead of a batch
// size, since jobs arrive one Send at a time rather than in claimed
// batches.
type Pool struct {
	alias   string
	logger  *slog.Logger
	events  ResultReporter
	tracker *instanceTracker
	sem     chan struct{}

	wg       sync.WaitGroup
	mu       sync.Mutex
	shutdown bool
}

func NewPool(logger *slog.Logger, size int) *Pool {
	if size <= 0 {
		size = 10
	}
	return &Pool{
		logger:  logger,
		tracker: newInstanceTracker(),
		sem:     make(chan struct{}, size),
	}
}

func (e *Pool) Start(_ context.Context, alias string, events ResultReporter) error {
	e.alias = alias
	e.events = events
	e.logger = e.logger.With("component", "pool_executor", "executor", alias)
	return nil
}

func (e *Pool) Shutdown(ctx context.Context, wait bool) error {
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

func (e *Pool) Send(ctx context.Context, req domain.RunRequest) error {
	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		return fmt.Errorf("pool executor %s: %w", e.alias, domain.ErrSchedulerNotRunning)
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

func (e *Pool) run(job *domain.Job, scheduledRunTimes []time.Time) {
	defer e.wg.Done()
	defer e.tracker.release(job.ID)
	defer func() { <-e.sem }()
	e.sem <- struct{}{}

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

func (e *Pool) invoke(job *domain.Job, runCtx domain.RunContext) (ret any, err error) {
	if job.Callable.Func == nil {
		return nil, fmt.Errorf("pool executor: job %s: callable has no resolved function", job.ID)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pool executor: job %s: callable panicked: %v", job.ID, r)
		}
	}()
	return job.Callable.Func(runCtx)
}
