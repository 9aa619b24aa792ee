package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/chronoflow/scheduler/internal/domain"
)

// Process runs a job's callable as a subprocess via RegistryName (treated
// as the executable path) and Args["argv"] ([]string, JSON-decoded as
// []any). It never touches Callable.Func — process isolation means the
// scheduler process and the run never share a goroutine or memory space.
// The combined stdout/stderr output becomes the retrieved value on
// success; a non-zero exit becomes the reported error.
type Process struct {
	alias   string
	logger  *slog.Logger
	events  ResultReporter
	tracker *instanceTracker
	timeout time.Duration

	wg       sync.WaitGroup
	mu       sync.Mutex
	shutdown bool
}

func NewProcess(logger *slog.Logger, timeout time.Duration) *Process {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Process{logger: logger, tracker: newInstanceTracker(), timeout: timeout}
}

func (e *Process) Start(_ context.Context, alias string, events ResultReporter) error {
	e.alias = alias
	e.events = events
	e.logger = e.logger.With("component", "process_executor", "executor", alias)
	return nil
}

func (e *Process) Shutdown(ctx context.Context, wait bool) error {
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

func (e *Process) Send(ctx context.Context, req domain.RunRequest) error {
	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		return fmt.Errorf("process executor %s: %w", e.alias, domain.ErrSchedulerNotRunning)
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

func (e *Process) run(job *domain.Job, scheduledRunTimes []time.Time) {
	defer e.wg.Done()
	defer e.tracker.release(job.ID)

	start := time.Now()
	retVal, err := e.invoke(job)
	duration := time.Since(start)

	code := domain.JobExecuted
	if err != nil {
		code = domain.JobError
		e.logger.Error("job run failed", "job_id", job.ID, "error", err, "duration", duration)
	} else {
		e.logger.Info("job run completed", "job_id", job.ID, "duration", duration)
	}

	// Only a child that ran and exited unsuccessfully counts as user code;
	// a missing path, bad argv or failed exec is an infrastructure failure.
	var exitErr *exec.ExitError
	e.events.Dispatch(domain.Event{
		Code:              code,
		Time:              time.Now(),
		JobID:             job.ID,
		ExecutorName:      e.alias,
		ScheduledRunTimes: scheduledRunTimes,
		RetVal:            retVal,
		Err:               err,
		UserCode:          errors.As(err, &exitErr),
	})
}

func (e *Process) invoke(job *domain.Job) (any, error) {
	if job.Callable.RegistryName == "" {
		return nil, fmt.Errorf("process executor: job %s: callable has no executable path", job.ID)
	}

	var argv []string
	if raw, ok := job.Callable.Args["argv"]; ok {
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("process executor: job %s: args[\"argv\"] must be a list of strings", job.ID)
		}
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("process executor: job %s: args[\"argv\"] must be a list of strings", job.ID)
			}
			argv = append(argv, s)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, job.Callable.RegistryName, argv...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("process executor: job %s: %w: %s", job.ID, err, out.String())
	}
	return out.String(), nil
}
