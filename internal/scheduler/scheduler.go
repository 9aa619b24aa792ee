// Package scheduler implements the orchestrator from spec.md §4.5: it owns
// named stores and executors, owns the event bus, runs the wake-dispatch
// loop, and exposes the public API (schedule/modify/pause/resume/remove/
// shutdown).
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chronoflow/scheduler/internal/domain"
	"github.com/chronoflow/scheduler/internal/eventbus"
	"github.com/chronoflow/scheduler/internal/executor"
	"github.com/chronoflow/scheduler/internal/metrics"
	"github.com/chronoflow/scheduler/internal/store"
	"github.com/chronoflow/scheduler/internal/trigger"
)

// DefaultAlias is the routing key used when a job or topology call omits
// an explicit store/executor name.
const DefaultAlias = "default"

// DefaultTickMax bounds how long the wake loop ever sleeps in one
// iteration, so topology/job changes made while it's sleeping are never
// starved for more than this long even if something fails to signal the
// wake channel.
const DefaultTickMax = 60 * time.Second

// Scheduler is the spec.md §2 orchestrator. The zero value is not usable;
// construct with New.
type Scheduler struct {
	mu        sync.Mutex
	state     domain.State
	stores    map[string]store.JobStore
	executors map[string]executor.Executor
	bus       *eventbus.Bus
	logger    *slog.Logger
	loc       *time.Location
	tickMax   time.Duration

	wake     chan struct{}
	loopDone chan struct{}
	cancel   context.CancelFunc
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

func WithTimezone(loc *time.Location) Option {
	return func(s *Scheduler) { s.loc = loc }
}

func WithTickMax(d time.Duration) Option {
	return func(s *Scheduler) { s.tickMax = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// New constructs a stopped Scheduler with a "default" in-memory store and
// a "default" inline executor already wired — callers can AddStore/
// AddExecutor to extend those before calling Start. AddStore/AddExecutor
// reject an alias already in use, so replacing a default takes a
// RemoveStore/RemoveExecutor first.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		state:     domain.StateStopped,
		stores:    make(map[string]store.JobStore),
		executors: make(map[string]executor.Executor),
		logger:    slog.Default(),
		loc:       time.UTC,
		tickMax:   DefaultTickMax,
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.bus = eventbus.New(s.logger)
	s.stores[DefaultAlias] = store.NewMemoryStore()
	s.executors[DefaultAlias] = executor.NewInline(s.logger)
	return s
}

// Bus exposes the event bus for AddListener/RemoveListener callers that
// want to wire it before Start (e.g. notify.AlertListener).
func (s *Scheduler) Bus() *eventbus.Bus { return s.bus }

// State reports the current lifecycle state.
func (s *Scheduler) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start transitions stopped -> running (or -> paused) and launches the
// wake-dispatch loop. Calling Start twice without an intervening Shutdown
// returns domain.ErrSchedulerAlreadyRunning.
func (s *Scheduler) Start(ctx context.Context, paused bool) error {
	s.mu.Lock()
	if s.state != domain.StateStopped {
		s.mu.Unlock()
		return domain.ErrSchedulerAlreadyRunning
	}

	for alias, st := range s.stores {
		if err := st.Start(ctx); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("scheduler: start store %q: %w", alias, err)
		}
	}
	for alias, ex := range s.executors {
		if err := ex.Start(ctx, alias, s.bus); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("scheduler: start executor %q: %w", alias, err)
		}
	}

	if paused {
		s.state = domain.StatePaused
	} else {
		s.state = domain.StateRunning
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	s.mu.Unlock()

	metrics.SchedulerStartTime.SetToCurrentTime()
	go s.runLoop(loopCtx)

	code := domain.SchedulerStarted
	if paused {
		code = domain.SchedulerPaused
	}
	s.bus.Dispatch(domain.Event{Code: code, Time: time.Now()})
	return nil
}

// Shutdown transitions to stopped: stops all executors (passing wait),
// stops all stores, and joins the wake loop.
func (s *Scheduler) Shutdown(ctx context.Context, wait bool) error {
	s.mu.Lock()
	if s.state == domain.StateStopped {
		s.mu.Unlock()
		return domain.ErrSchedulerNotRunning
	}
	s.state = domain.StateStopped
	cancel := s.cancel
	loopDone := s.loopDone
	s.mu.Unlock()

	cancel()
	s.signalWake()
	<-loopDone

	var firstErr error
	for alias, ex := range s.snapshotExecutors() {
		if err := ex.Shutdown(ctx, wait); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("scheduler: shutdown executor %q: %w", alias, err)
		}
	}
	for alias, st := range s.snapshotStores() {
		if err := st.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("scheduler: shutdown store %q: %w", alias, err)
		}
	}

	s.bus.Dispatch(domain.Event{Code: domain.SchedulerShutdown, Time: time.Now()})
	return firstErr
}

// Pause suspends dispatch without stopping executors or stores; due jobs
// accumulate and are dispatched on Resume.
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	if s.state != domain.StateRunning {
		s.mu.Unlock()
		return domain.ErrSchedulerNotRunning
	}
	s.state = domain.StatePaused
	s.mu.Unlock()
	s.bus.Dispatch(domain.Event{Code: domain.SchedulerPaused, Time: time.Now()})
	return nil
}

func (s *Scheduler) Resume() error {
	s.mu.Lock()
	if s.state != domain.StatePaused {
		s.mu.Unlock()
		return domain.ErrSchedulerNotRunning
	}
	s.state = domain.StateRunning
	s.mu.Unlock()
	s.signalWake()
	s.bus.Dispatch(domain.Event{Code: domain.SchedulerResumed, Time: time.Now()})
	return nil
}

// AddStore registers a JobStore under alias. If the scheduler is already
// running, Start is called on it immediately.
func (s *Scheduler) AddStore(ctx context.Context, st store.JobStore, alias string) error {
	s.mu.Lock()
	if _, exists := s.stores[alias]; exists {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: store alias %q already registered", alias)
	}
	running := s.state != domain.StateStopped
	s.stores[alias] = st
	s.mu.Unlock()

	if running {
		if err := st.Start(ctx); err != nil {
			return fmt.Errorf("scheduler: start store %q: %w", alias, err)
		}
	}
	s.bus.Dispatch(domain.Event{Code: domain.StoreAdded, Time: time.Now(), StoreAlias: alias})
	s.signalWake()
	return nil
}

func (s *Scheduler) RemoveStore(ctx context.Context, alias string, shutdown bool) error {
	s.mu.Lock()
	st, exists := s.stores[alias]
	if !exists {
		s.mu.Unlock()
		return domain.ErrUnknownStore
	}
	delete(s.stores, alias)
	s.mu.Unlock()

	if shutdown {
		if err := st.Shutdown(ctx); err != nil {
			return fmt.Errorf("scheduler: shutdown store %q: %w", alias, err)
		}
	}
	s.bus.Dispatch(domain.Event{Code: domain.StoreRemoved, Time: time.Now(), StoreAlias: alias})
	return nil
}

func (s *Scheduler) AddExecutor(ctx context.Context, ex executor.Executor, alias string) error {
	s.mu.Lock()
	if _, exists := s.executors[alias]; exists {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: executor alias %q already registered", alias)
	}
	running := s.state != domain.StateStopped
	s.executors[alias] = ex
	s.mu.Unlock()

	if running {
		if err := ex.Start(ctx, alias, s.bus); err != nil {
			return fmt.Errorf("scheduler: start executor %q: %w", alias, err)
		}
	}
	s.bus.Dispatch(domain.Event{Code: domain.ExecutorAdded, Time: time.Now(), ExecutorName: alias})
	return nil
}

func (s *Scheduler) RemoveExecutor(ctx context.Context, alias string, shutdown bool) error {
	s.mu.Lock()
	ex, exists := s.executors[alias]
	if !exists {
		s.mu.Unlock()
		return domain.ErrUnknownExecutor
	}
	delete(s.executors, alias)
	s.mu.Unlock()

	if shutdown {
		if err := ex.Shutdown(ctx, true); err != nil {
			return fmt.Errorf("scheduler: shutdown executor %q: %w", alias, err)
		}
	}
	s.bus.Dispatch(domain.Event{Code: domain.ExecutorRemoved, Time: time.Now(), ExecutorName: alias})
	return nil
}

func (s *Scheduler) AddListener(mask domain.Code, listen eventbus.Listener) int {
	return s.bus.AddListener(mask, listen)
}

func (s *Scheduler) RemoveListener(id int) {
	s.bus.RemoveListener(id)
}

// AddJob validates and inserts a new job into the named store. add_job is
// legal in every scheduler state (spec.md §4.5); when stopped the job is
// queued but not dispatched until Start.
func (s *Scheduler) AddJob(ctx context.Context, callable domain.Callable, trig domain.Trigger, opts AddJobOptions) (string, error) {
	opts = opts.withDefaults()
	if opts.ID == "" {
		opts.ID = newJobID()
	}

	now := time.Now().In(s.loc)
	nextRun, _ := trig.Next(time.Time{}, now)

	job := &domain.Job{
		ID:               opts.ID,
		Name:             opts.Name,
		Callable:         callable,
		Trigger:          trig,
		NextRunTime:      &nextRun,
		MisfireGraceTime: opts.MisfireGraceTime,
		Coalesce:         *opts.Coalesce,
		MaxInstances:     opts.MaxInstances,
		ExecutorName:     opts.Executor,
		StoreName:        opts.Store,
		AlertOnError:     opts.AlertOnError,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	job.Callable.Args = opts.Args
	if err := job.Validate(); err != nil {
		return "", err
	}

	st, err := s.storeByName(opts.Store)
	if err != nil {
		return "", err
	}

	if opts.ReplaceExisting {
		if existing, lookupErr := st.LookupJob(ctx, job.ID); lookupErr == nil && existing != nil {
			if err := st.UpdateJob(ctx, job); err != nil {
				return "", err
			}
			s.bus.Dispatch(domain.Event{Code: domain.JobModified, Time: time.Now(), JobID: job.ID, StoreAlias: opts.Store})
			s.signalWake()
			return job.ID, nil
		}
	}

	if err := st.AddJob(ctx, job); err != nil {
		return "", err
	}
	s.bus.Dispatch(domain.Event{Code: domain.JobAdded, Time: time.Now(), JobID: job.ID, StoreAlias: opts.Store})
	s.signalWake()
	return job.ID, nil
}

// UpdateJob mutates fields of an existing job, re-normalizing
// next_run_time if the trigger changed.
func (s *Scheduler) UpdateJob(ctx context.Context, id string, storeAlias string, opts UpdateJobOptions) error {
	if storeAlias == "" {
		storeAlias = DefaultAlias
	}
	st, err := s.storeByName(storeAlias)
	if err != nil {
		return err
	}

	job, err := st.LookupJob(ctx, id)
	if err != nil {
		return err
	}

	triggerChanged := opts.Trigger != nil
	applyUpdate(job, opts)
	job.UpdatedAt = time.Now().In(s.loc)

	if triggerChanged && !job.Paused() {
		next, ok := job.Trigger.Next(time.Time{}, time.Now().In(s.loc))
		if ok {
			job.NextRunTime = &next
		} else {
			job.NextRunTime = nil
		}
	}

	if err := job.Validate(); err != nil {
		return err
	}
	if err := st.UpdateJob(ctx, job); err != nil {
		return err
	}
	s.bus.Dispatch(domain.Event{Code: domain.JobModified, Time: time.Now(), JobID: id, StoreAlias: storeAlias})
	s.signalWake()
	return nil
}

// RescheduleJob replaces a job's trigger and recomputes next_run_time.
func (s *Scheduler) RescheduleJob(ctx context.Context, id string, trig trigger.Trigger, storeAlias string) error {
	return s.UpdateJob(ctx, id, storeAlias, UpdateJobOptions{Trigger: trig})
}

// PauseJob sets next_run_time to nil so the loop stops dispatching it
// without removing it from the store.
func (s *Scheduler) PauseJob(ctx context.Context, id string, storeAlias string) error {
	if storeAlias == "" {
		storeAlias = DefaultAlias
	}
	st, err := s.storeByName(storeAlias)
	if err != nil {
		return err
	}
	job, err := st.LookupJob(ctx, id)
	if err != nil {
		return err
	}
	job.NextRunTime = nil
	job.UpdatedAt = time.Now().In(s.loc)
	if err := st.UpdateJob(ctx, job); err != nil {
		return err
	}
	s.bus.Dispatch(domain.Event{Code: domain.JobModified, Time: time.Now(), JobID: id, StoreAlias: storeAlias})
	return nil
}

// ResumeJob recomputes next_run_time from the job's trigger, starting
// from now.
func (s *Scheduler) ResumeJob(ctx context.Context, id string, storeAlias string) error {
	if storeAlias == "" {
		storeAlias = DefaultAlias
	}
	st, err := s.storeByName(storeAlias)
	if err != nil {
		return err
	}
	job, err := st.LookupJob(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now().In(s.loc)
	next, ok := job.Trigger.Next(time.Time{}, now)
	if ok {
		job.NextRunTime = &next
	}
	job.UpdatedAt = now
	if err := st.UpdateJob(ctx, job); err != nil {
		return err
	}
	s.bus.Dispatch(domain.Event{Code: domain.JobModified, Time: time.Now(), JobID: id, StoreAlias: storeAlias})
	s.signalWake()
	return nil
}

func (s *Scheduler) RemoveJob(ctx context.Context, id string, storeAlias string) error {
	if storeAlias == "" {
		storeAlias = DefaultAlias
	}
	st, err := s.storeByName(storeAlias)
	if err != nil {
		return err
	}
	if err := st.RemoveJob(ctx, id); err != nil {
		return err
	}
	s.bus.Dispatch(domain.Event{Code: domain.JobRemoved, Time: time.Now(), JobID: id, StoreAlias: storeAlias})
	return nil
}

func (s *Scheduler) RemoveAllJobs(ctx context.Context, storeAlias string) error {
	if storeAlias == "" {
		storeAlias = DefaultAlias
	}
	st, err := s.storeByName(storeAlias)
	if err != nil {
		return err
	}
	if err := st.RemoveAllJobs(ctx); err != nil {
		return err
	}
	s.bus.Dispatch(domain.Event{Code: domain.AllJobsRemoved, Time: time.Now(), StoreAlias: storeAlias})
	return nil
}

func (s *Scheduler) GetJob(ctx context.Context, id string, storeAlias string) (*domain.Job, error) {
	if storeAlias == "" {
		storeAlias = DefaultAlias
	}
	st, err := s.storeByName(storeAlias)
	if err != nil {
		return nil, err
	}
	return st.LookupJob(ctx, id)
}

func (s *Scheduler) GetJobs(ctx context.Context, storeAlias string) ([]*domain.Job, error) {
	if storeAlias == "" {
		var all []*domain.Job
		for _, st := range s.snapshotStores() {
			jobs, err := st.GetAllJobs(ctx)
			if err != nil {
				return nil, err
			}
			all = append(all, jobs...)
		}
		return all, nil
	}
	st, err := s.storeByName(storeAlias)
	if err != nil {
		return nil, err
	}
	return st.GetAllJobs(ctx)
}

func (s *Scheduler) storeByName(alias string) (store.JobStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, exists := s.stores[alias]
	if !exists {
		return nil, domain.ErrUnknownStore
	}
	return st, nil
}

func (s *Scheduler) executorByName(alias string) (executor.Executor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, exists := s.executors[alias]
	if !exists {
		return nil, domain.ErrUnknownExecutor
	}
	return ex, nil
}

func (s *Scheduler) snapshotStores() map[string]store.JobStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]store.JobStore, len(s.stores))
	for k, v := range s.stores {
		out[k] = v
	}
	return out
}

func (s *Scheduler) snapshotExecutors() map[string]executor.Executor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]executor.Executor, len(s.executors))
	for k, v := range s.executors {
		out[k] = v
	}
	return out
}

// signalWake is non-blocking: the channel has capacity 1, so a pending
// signal coalesces with any already queued one.
func (s *Scheduler) signalWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
