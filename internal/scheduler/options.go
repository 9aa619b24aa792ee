package scheduler

import (
	"time"

	"github.com/chronoflow/scheduler/internal/domain"
	"github.com/chronoflow/scheduler/internal/trigger"
)

// AddJobOptions is the typed replacement for the source ecosystem's
// dynamic keyword-option bag (design note §9): every field spec.md §6's
// add_job signature names gets a slot here, and nothing else is accepted.
type AddJobOptions struct {
	ID               string
	Name             string
	Args             map[string]any
	MaxInstances     int // defaults to 1
	Coalesce         *bool
	MisfireGraceTime *time.Duration // defaults to 1s; nil after defaulting means unlimited only if ExplicitUnlimited is set
	ExplicitUnlimited bool
	Executor         string // defaults to "default"
	Store            string // defaults to "default"
	ReplaceExisting  bool
	AlertOnError     bool
}

func (o AddJobOptions) withDefaults() AddJobOptions {
	if o.MaxInstances == 0 {
		o.MaxInstances = 1
	}
	if o.Coalesce == nil {
		t := true
		o.Coalesce = &t
	}
	if o.MisfireGraceTime == nil && !o.ExplicitUnlimited {
		d := time.Second
		o.MisfireGraceTime = &d
	}
	if o.Executor == "" {
		o.Executor = DefaultAlias
	}
	if o.Store == "" {
		o.Store = DefaultAlias
	}
	return o
}

// UpdateJobOptions carries only the fields the caller wants to change;
// nil/zero means "leave as-is" except where a pointer makes absence
// explicit.
type UpdateJobOptions struct {
	Name             *string
	Trigger          trigger.Trigger
	Args             map[string]any
	MaxInstances     *int
	Coalesce         *bool
	MisfireGraceTime **time.Duration // pointer-to-pointer: set to change, leave nil to keep
	Executor         *string
	AlertOnError     *bool
}

func applyUpdate(job *domain.Job, opts UpdateJobOptions) {
	if opts.Name != nil {
		job.Name = *opts.Name
	}
	if opts.Trigger != nil {
		job.Trigger = opts.Trigger
	}
	if opts.Args != nil {
		job.Callable.Args = opts.Args
	}
	if opts.MaxInstances != nil {
		job.MaxInstances = *opts.MaxInstances
	}
	if opts.Coalesce != nil {
		job.Coalesce = *opts.Coalesce
	}
	if opts.MisfireGraceTime != nil {
		job.MisfireGraceTime = *opts.MisfireGraceTime
	}
	if opts.Executor != nil {
		job.ExecutorName = *opts.Executor
	}
	if opts.AlertOnError != nil {
		job.AlertOnError = *opts.AlertOnError
	}
}
