package trigger

import "time"

// Interval fires every `period`, starting at `start` (defaulting to
// now+period on the very first Next call) and stopping once the computed
// fire time would exceed `end`. spec.md §4.1.
type Interval struct {
	period time.Duration
	start  *time.Time // nil => first fire is "now + period" at first Next call
	end    *time.Time
	loc    *time.Location
}

// IntervalOption configures an Interval at construction.
type IntervalOption func(*Interval)

// WithIntervalStart pins the first fire time explicitly.
func WithIntervalStart(t time.Time) IntervalOption {
	return func(i *Interval) { i.start = &t }
}

// WithIntervalEnd bounds the trigger: once a candidate fire time would
// exceed end, Next returns false.
func WithIntervalEnd(t time.Time) IntervalOption {
	return func(i *Interval) { i.end = &t }
}

// WithIntervalTimezone anchors start/end interpretation to loc. Interval's
// period arithmetic is timezone-agnostic (it adds a fixed duration), but the
// zone matters when a caller formats or compares boundaries.
func WithIntervalTimezone(loc *time.Location) IntervalOption {
	return func(i *Interval) { i.loc = loc }
}

// NewInterval builds a fixed-period trigger. period must be > 0.
func NewInterval(period time.Duration, opts ...IntervalOption) (*Interval, error) {
	if period <= 0 {
		return nil, configErrorf("interval trigger: period must be > 0, got %s", period)
	}
	i := &Interval{period: period, loc: time.UTC}
	for _, opt := range opts {
		opt(i)
	}
	if i.end != nil && i.start != nil && i.end.Before(*i.start) {
		return nil, configErrorf("interval trigger: end %s is before start %s", *i.end, *i.start)
	}
	return i, nil
}

func (iv *Interval) Next(previous, now time.Time) (time.Time, bool) {
	var next time.Time
	if previous.IsZero() {
		if iv.start != nil {
			next = *iv.start
		} else {
			next = now.Add(iv.period)
		}
	} else {
		next = previous.Add(iv.period)
	}

	if iv.end != nil && next.After(*iv.end) {
		return zero, false
	}
	return next, true
}
