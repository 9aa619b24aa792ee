package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/chronoflow/scheduler/internal/domain"
	"github.com/chronoflow/scheduler/internal/executor"
	"github.com/chronoflow/scheduler/internal/scheduler"
	"github.com/chronoflow/scheduler/internal/store"
	"github.com/chronoflow/scheduler/internal/trigger"
)

func newTestScheduler() *scheduler.Scheduler {
	return scheduler.New(
		scheduler.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		scheduler.WithTickMax(20*time.Millisecond),
	)
}

func awaitCode(t *testing.T, sched *scheduler.Scheduler, mask domain.Code, timeout time.Duration) domain.Event {
	t.Helper()
	ch := make(chan domain.Event, 16)
	id := sched.AddListener(mask, func(e domain.Event) { ch <- e })
	defer sched.RemoveListener(id)
	select {
	case e := <-ch:
		return e
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event matching mask %v", mask)
		return domain.Event{}
	}
}

func TestScheduler_StartTwiceFails(t *testing.T) {
	ctx := context.Background()
	sched := newTestScheduler()
	if err := sched.Start(ctx, true); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sched.Shutdown(context.Background(), false)

	if err := sched.Start(ctx, true); err != domain.ErrSchedulerAlreadyRunning {
		t.Fatalf("second Start err = %v, want ErrSchedulerAlreadyRunning", err)
	}
}

func TestScheduler_ShutdownWhenNotRunningFails(t *testing.T) {
	sched := newTestScheduler()
	if err := sched.Shutdown(context.Background(), false); err != domain.ErrSchedulerNotRunning {
		t.Fatalf("Shutdown err = %v, want ErrSchedulerNotRunning", err)
	}
}

func TestScheduler_PauseAndResumeRoundTrip(t *testing.T) {
	ctx := context.Background()
	sched := newTestScheduler()
	if err := sched.Start(ctx, false); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sched.Shutdown(context.Background(), false)

	if err := sched.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if sched.State() != domain.StatePaused {
		t.Fatalf("State = %v, want StatePaused", sched.State())
	}
	if err := sched.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if sched.State() != domain.StateRunning {
		t.Fatalf("State = %v, want StateRunning", sched.State())
	}
}

func TestScheduler_PauseWhenNotRunningFails(t *testing.T) {
	sched := newTestScheduler()
	if err := sched.Pause(); err != domain.ErrSchedulerNotRunning {
		t.Fatalf("Pause err = %v, want ErrSchedulerNotRunning", err)
	}
}

func TestScheduler_AddStore_DuplicateAliasRejected(t *testing.T) {
	sched := newTestScheduler()
	if err := sched.AddStore(context.Background(), store.NewMemoryStore(), scheduler.DefaultAlias); err == nil {
		t.Fatal("expected an error re-registering the default store alias")
	}
}

func TestScheduler_AddJobAndGetJobRoundTrip(t *testing.T) {
	ctx := context.Background()
	sched := newTestScheduler()
	at := time.Now().Add(time.Hour)
	id, err := sched.AddJob(ctx, domain.Callable{Func: func(domain.RunContext) (any, error) { return nil, nil }}, trigger.NewDate(at), scheduler.AddJobOptions{})
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	job, err := sched.GetJob(ctx, id, "")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.MaxInstances != 1 {
		t.Fatalf("MaxInstances = %d, want 1 (default)", job.MaxInstances)
	}
	if !job.Coalesce {
		t.Fatal("expected Coalesce to default true")
	}
}

func TestScheduler_PauseJobThenResumeJob(t *testing.T) {
	ctx := context.Background()
	sched := newTestScheduler()
	iv, err := trigger.NewInterval(time.Hour)
	if err != nil {
		t.Fatalf("NewInterval: %v", err)
	}
	id, err := sched.AddJob(ctx, domain.Callable{Func: func(domain.RunContext) (any, error) { return nil, nil }}, iv, scheduler.AddJobOptions{})
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	if err := sched.PauseJob(ctx, id, ""); err != nil {
		t.Fatalf("PauseJob: %v", err)
	}
	job, err := sched.GetJob(ctx, id, "")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if !job.Paused() {
		t.Fatal("expected the job to be paused (nil NextRunTime)")
	}

	if err := sched.ResumeJob(ctx, id, ""); err != nil {
		t.Fatalf("ResumeJob: %v", err)
	}
	job, err = sched.GetJob(ctx, id, "")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Paused() {
		t.Fatal("expected the job to be active again after ResumeJob")
	}
}

func TestScheduler_RemoveJob(t *testing.T) {
	ctx := context.Background()
	sched := newTestScheduler()
	id, err := sched.AddJob(ctx, domain.Callable{Func: func(domain.RunContext) (any, error) { return nil, nil }}, trigger.NewDate(time.Now().Add(time.Hour)), scheduler.AddJobOptions{})
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if err := sched.RemoveJob(ctx, id, ""); err != nil {
		t.Fatalf("RemoveJob: %v", err)
	}
	if _, err := sched.GetJob(ctx, id, ""); err != domain.ErrJobNotFound {
		t.Fatalf("GetJob err = %v, want ErrJobNotFound", err)
	}
}

func TestScheduler_IntervalJobFiresRepeatedlyOnceRunning(t *testing.T) {
	ctx := context.Background()
	sched := newTestScheduler()
	if err := sched.Start(ctx, false); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sched.Shutdown(context.Background(), false)

	submitted := make(chan struct{}, 16)
	sched.AddListener(domain.JobSubmitted, func(domain.Event) {
		select {
		case submitted <- struct{}{}:
		default:
		}
	})

	iv, err := trigger.NewInterval(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("NewInterval: %v", err)
	}
	_, err = sched.AddJob(ctx, domain.Callable{Func: func(domain.RunContext) (any, error) { return nil, nil }}, iv, scheduler.AddJobOptions{})
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	deadline := time.After(2 * time.Second)
	count := 0
	for count < 3 {
		select {
		case <-submitted:
			count++
		case <-deadline:
			t.Fatalf("only observed %d JobSubmitted events before timeout, want >= 3", count)
		}
	}
}

func TestScheduler_MaxInstancesBlocksOverlappingRuns(t *testing.T) {
	ctx := context.Background()
	sched := newTestScheduler()
	if err := sched.AddExecutor(ctx, executor.NewInline(slog.New(slog.NewTextHandler(io.Discard, nil))), "blocking"); err != nil {
		t.Fatalf("AddExecutor: %v", err)
	}
	if err := sched.Start(ctx, false); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sched.Shutdown(context.Background(), false)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	iv, err := trigger.NewInterval(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("NewInterval: %v", err)
	}
	_, err = sched.AddJob(ctx, domain.Callable{Func: func(domain.RunContext) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil, nil
	}}, iv, scheduler.AddJobOptions{Executor: "blocking"})
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	<-started
	ev := awaitCode(t, sched, domain.JobMaxInstances, 2*time.Second)
	if ev.Code != domain.JobMaxInstances {
		t.Fatalf("event code = %v, want JobMaxInstances", ev.Code)
	}
	close(release)
}
