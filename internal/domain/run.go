package domain

import "time"

// RunRequest is the ephemeral record handed to an Executor for one
// dispatch. JobSnapshot is a value the store is free to keep mutating
// concurrently — Job.Clone() guarantees the snapshot is immune to that.
//
// ScheduledRunTimes has length 1 when Job.Coalesce is set: several kept
// firings collapse to the latest one. With Coalesce off it lists every
// firing kept in that dispatch, oldest first.
type RunRequest struct {
	JobSnapshot       *Job
	ScheduledRunTimes []time.Time
	SubmittedAt       time.Time
}
