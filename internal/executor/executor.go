// Package executor implements the Executor capability from spec.md §4.3:
// accept a RunRequest with bounded parallelism, enforce max_instances,
// and report outcomes only through the event bus — never by returning an
// error the user callable raised.
package executor

import (
	"context"

	"github.com/chronoflow/scheduler/internal/domain"
)

// ResultReporter is the minimal slice of eventbus.Bus an executor needs —
// kept as an interface here so package executor never imports package
// eventbus (avoids an import cycle and keeps executor independently
// testable with a fake reporter).
type ResultReporter interface {
	Dispatch(event domain.Event)
}

// Executor is the spec.md §4.3 contract. Send returns
// domain.ErrMaxInstancesReached synchronously when the per-job cap is
// already met — the scheduler treats that as a missed firing for the
// current tick and does not retry within it.
type Executor interface {
	Start(ctx context.Context, alias string, events ResultReporter) error
	Shutdown(ctx context.Context, wait bool) error
	Send(ctx context.Context, req domain.RunRequest) error
}
