// Package trigger implements the pure fire-time functions from spec.md §4.1:
// Date, Interval, Cron (full calendar-field grammar plus a classic unix-cron
// bridge), and the And/Or composites. A Trigger is immutable configuration;
// Next is a pure function of (previous fire time, now) with no side effects.
package trigger

import (
	"fmt"
	"time"

	"github.com/chronoflow/scheduler/internal/domain"
)

// Trigger mirrors domain.Trigger: Next returns the next fire time and true,
// or the zero time and false once the trigger is exhausted.
//
// Contract (spec.md §4.1): deterministic given (previous, now); the
// returned t satisfies t > previous whenever previous is non-zero. t >= now
// is NOT required — a trigger may legally return a past time, which the
// scheduler's misfire/grace logic interprets as a missed firing.
type Trigger interface {
	Next(previous time.Time, now time.Time) (time.Time, bool)
}

// ConfigError wraps a construction-time validation failure with
// domain.ErrTriggerConfiguration so callers can errors.Is against it while
// still seeing the specific complaint in the message.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("trigger configuration: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return domain.ErrTriggerConfiguration
}

func configErrorf(format string, args ...any) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// zero is the sentinel "no previous fire time" value used throughout this
// package — callers pass it for a trigger's very first Next call.
var zero time.Time
