// Package store implements the JobStore abstraction from spec.md §4.2: a
// persistent (or in-memory) collection of jobs indexed by id and by next
// fire time, with the range query the scheduler's wake loop depends on.
package store

import (
	"context"
	"time"

	"github.com/chronoflow/scheduler/internal/domain"
)

// JobStore is the persistence contract. Implementations must make
// updates/removals atomic with respect to concurrent GetDueJobs/
// GetNextRunTime reads from within the same scheduler (spec.md §4.2) —
// the in-memory reference implementation achieves this with a mutex; a
// transactional RDBMS-backed store achieves it with a transaction.
type JobStore interface {
	AddJob(ctx context.Context, job *domain.Job) error
	UpdateJob(ctx context.Context, job *domain.Job) error
	RemoveJob(ctx context.Context, id string) error
	RemoveAllJobs(ctx context.Context) error
	LookupJob(ctx context.Context, id string) (*domain.Job, error)

	// GetDueJobs returns every job with a non-nil NextRunTime <= now,
	// ascending by NextRunTime then by id.
	GetDueJobs(ctx context.Context, now time.Time) ([]*domain.Job, error)

	// GetNextRunTime returns the earliest non-nil NextRunTime across all
	// jobs, or nil if none are scheduled.
	GetNextRunTime(ctx context.Context) (*time.Time, error)

	// GetAllJobs returns every job, ordered by NextRunTime ascending with
	// nulls last.
	GetAllJobs(ctx context.Context) ([]*domain.Job, error)

	// Start/Shutdown let a backend open/close pooled resources (a DB pool,
	// a file handle) in step with the scheduler's own lifecycle.
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
