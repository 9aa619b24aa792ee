package domain

import "time"

// Code is the bitmask event type from spec.md §6. A listener registers
// with a mask and is invoked only for events whose Code is set in it.
type Code uint32

const (
	SchedulerStarted Code = 1 << iota
	SchedulerShutdown
	SchedulerPaused
	SchedulerResumed

	StoreAdded
	StoreRemoved

	ExecutorAdded
	ExecutorRemoved

	AllJobsRemoved

	JobAdded
	JobModified
	JobRemoved

	JobSubmitted
	JobMaxInstances
	JobExecuted
	JobError
	JobMissed

	// All matches every event code. AddListener has no default mask; pass
	// All to receive every event.
	All Code = 1<<iota - 1
)

// Event is a tagged, immutable lifecycle record. Listeners observe only —
// dispatch never blocks on a listener mutating scheduler state back.
type Event struct {
	Code Code
	Time time.Time

	JobID        string
	StoreAlias   string
	ExecutorName string

	// ScheduledRunTimes carries the firing(s) a JobSubmitted/JobExecuted/
	// JobError/JobMissed event is about. A JobMissed event carries exactly
	// one time; the other job events carry more than one only when a job
	// with Coalesce off had several firings kept in one dispatch.
	ScheduledRunTimes []time.Time

	// RetVal carries the Callable's return value on JobExecuted.
	RetVal any

	// Err carries the failure reason on JobError. UserCode distinguishes
	// "user code raised" (true) from "infrastructure failure" (false) per
	// spec.md §7's UserCodeError taxonomy entry.
	Err      error
	UserCode bool
}
