package trigger

import "time"

// Date fires exactly once, at a configured instant. spec.md §4.1:
// "Returns T if previous is null and T >= start_time; else null."
// start_time defaults to T itself, so in practice Date fires unless it has
// already fired once (previous non-zero) or T lies in the past relative to
// an explicitly configured start.
type Date struct {
	at    time.Time
	start time.Time
}

// NewDate builds a one-shot trigger firing at `at`. An optional explicit
// start floor can be supplied with NewDateWithStart; NewDate uses `at`
// itself as the floor, which is always satisfied.
func NewDate(at time.Time) *Date {
	return &Date{at: at, start: at}
}

// NewDateWithStart builds a one-shot trigger that only fires if `at` is not
// before `start` — mirrors APScheduler-style DateTrigger(run_date, timezone)
// semantics when combined with a scheduler-wide start floor.
func NewDateWithStart(at, start time.Time) (*Date, error) {
	if at.Before(start) {
		return nil, configErrorf("date trigger: run time %s is before start time %s", at, start)
	}
	return &Date{at: at, start: start}, nil
}

func (d *Date) Next(previous, _ time.Time) (time.Time, bool) {
	if !previous.IsZero() {
		return zero, false
	}
	if d.at.Before(d.start) {
		return zero, false
	}
	return d.at, true
}
