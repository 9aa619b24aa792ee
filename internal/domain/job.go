// Package domain holds the scheduler's core data model: jobs, events,
// lifecycle state and the sentinel errors the rest of the module trades in.
package domain

import (
	"errors"
	"time"
)

var (
	ErrConflictingID           = errors.New("job with this id already exists")
	ErrJobNotFound             = errors.New("job not found")
	ErrMaxInstancesReached     = errors.New("max instances reached for job")
	ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")
	ErrSchedulerNotRunning     = errors.New("scheduler is not running")
	ErrDeserialization         = errors.New("job record could not be deserialized")
	ErrTriggerConfiguration    = errors.New("invalid trigger configuration")
	ErrUnknownStore            = errors.New("unknown store alias")
	ErrUnknownExecutor         = errors.New("unknown executor alias")
)

// Callable is the unit of work a Job carries. Direct in-process executors
// (Inline, Pool) invoke Func, resolved through a store.CallableRegistry
// when a job comes back from a persistent store with Func nil. The
// Process executor crosses an OS process boundary instead: it treats
// RegistryName as the executable to run directly (see
// internal/executor/process.go) rather than resolving it through the
// registry, since a Go func value cannot itself be handed to a child
// process.
type Callable struct {
	// Func runs in-process. Set for jobs added directly via Scheduler.AddJob
	// with a Go function value.
	Func func(ctx RunContext) (any, error) `json:"-"`

	// RegistryName resolves to a registered Callable through a
	// CallableRegistry. Required for any job routed to a persistent store,
	// since a func value cannot be serialized.
	RegistryName string `json:"registry_name,omitempty"`

	// Args reach the resolved function as RunContext.Args. A persistent
	// store keeps them as JSON; the Process executor reads only
	// Args["argv"], as the child's command-line arguments.
	Args map[string]any `json:"args,omitempty"`
}

// RunContext is handed to a Callable.Func invocation.
type RunContext struct {
	JobID             string
	ScheduledRunTimes []time.Time
	Args              map[string]any
}

// Job is the persisted unit of scheduling: a Callable paired with a Trigger
// and the routing/concurrency/misfire policy that governs its firings.
//
// Trigger is declared through the domain.Trigger interface (rather than
// importing package trigger) to keep domain dependency-free — the
// scheduler package binds the two together.
type Job struct {
	ID       string
	Name     string
	Callable Callable
	Trigger  Trigger

	NextRunTime *time.Time

	MisfireGraceTime *time.Duration // nil == unlimited
	Coalesce         bool
	MaxInstances     int

	ExecutorName string
	StoreName    string

	// AlertOnError, when set, makes notify.AlertListener email on this
	// job's JOB_ERROR events. An ambient extra; not part of spec.md.
	AlertOnError bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Trigger is the minimal surface domain needs from a trigger value:
// advancing a fire time. The full interface (with cron/interval/date/
// composite variants) lives in package trigger.
type Trigger interface {
	Next(previous time.Time, now time.Time) (time.Time, bool)
}

// Validate checks the invariants from spec.md §3: max_instances >= 1,
// misfire grace >= 0 when present, id non-empty.
func (j *Job) Validate() error {
	if j.ID == "" {
		return errors.New("job id must not be empty")
	}
	if j.MaxInstances < 1 {
		return errors.New("max_instances must be >= 1")
	}
	if j.MisfireGraceTime != nil && *j.MisfireGraceTime < 0 {
		return errors.New("mistrigger_grace_time must be >= 0")
	}
	if j.Trigger == nil {
		return errors.New("job must have a trigger")
	}
	if j.Callable.Func == nil && j.Callable.RegistryName == "" {
		return errors.New("job callable must set Func or RegistryName")
	}
	return nil
}

// Paused reports whether the job is currently suspended — spec.md ties
// "paused" to next_run_time being nil while the trigger is still live.
func (j *Job) Paused() bool {
	return j.NextRunTime == nil
}

// Clone returns a shallow value copy suitable for a RunRequest snapshot —
// stores must never hand out a pointer an executor could mutate out from
// under a concurrent dispatch.
func (j *Job) Clone() *Job {
	cp := *j
	if j.NextRunTime != nil {
		t := *j.NextRunTime
		cp.NextRunTime = &t
	}
	if j.MisfireGraceTime != nil {
		d := *j.MisfireGraceTime
		cp.MisfireGraceTime = &d
	}
	if j.Callable.Args != nil {
		args := make(map[string]any, len(j.Callable.Args))
		for k, v := range j.Callable.Args {
			args[k] = v
		}
		cp.Callable.Args = args
	}
	return &cp
}
