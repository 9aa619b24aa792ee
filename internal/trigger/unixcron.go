package trigger

import (
	"time"

	robfigcron "github.com/robfig/cron/v3"
)

// UnixCron wraps a classic 5-field unix-cron expression (parsed by
// robfig/cron/v3, the same library the teacher project uses for its
// Schedule.CronExpr) so it satisfies Trigger. It is the lightweight path
// for callers who already have a crontab string and don't need the richer
// year/week/"last" grammar Cron supports. expr and start are retained so
// a UnixCron round-trips through Spec the same way Cron does.
type UnixCron struct {
	expr     string
	schedule robfigcron.Schedule
	loc      *time.Location
	start    *time.Time
	end      *time.Time
}

// NewUnixCron parses expr with robfig/cron's standard parser (5 fields:
// minute hour day month day_of_week, plus the "@every"/"@daily" macros it
// supports). A parse failure is a TriggerConfigurationError. start, if
// set, pins the first fire time the same way Cron.start does: the first
// candidate is the earliest matching instant >= start, regardless of now.
func NewUnixCron(expr string, loc *time.Location, start, end *time.Time) (*UnixCron, error) {
	sched, err := robfigcron.ParseStandard(expr)
	if err != nil {
		return nil, configErrorf("unix cron expression %q: %v", expr, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &UnixCron{expr: expr, schedule: sched, loc: loc, start: start, end: end}, nil
}

func (u *UnixCron) Next(previous, now time.Time) (time.Time, bool) {
	var from time.Time
	switch {
	case !previous.IsZero():
		from = previous
	case u.start != nil:
		// robfig's Schedule.Next is exclusive of its argument; back up one
		// second so a start that itself satisfies the expression is the
		// first candidate returned, matching Cron's inclusive floor.
		from = u.start.Add(-time.Second)
	default:
		from = now
	}

	next := u.schedule.Next(from.In(u.loc))
	if next.IsZero() {
		return zero, false
	}
	if u.end != nil && next.After(*u.end) {
		return zero, false
	}
	return next, true
}
