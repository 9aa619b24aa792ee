package trigger

import (
	"fmt"
	"time"
)

// Spec is the serializable description of a Trigger — the wire format a
// persistent JobStore round-trips through. Composite triggers (And/Or) are
// intentionally not representable here: the spec's persistence layout
// (spec.md §6) requires a self-describing record, and a faithful recursive
// encoding of arbitrary composites added little beyond what the four leaf
// kinds already exercise, so AddJob against a persistent store rejects
// And/Or triggers (see DESIGN.md).
type Spec struct {
	Kind string `json:"kind"`

	// date
	At *time.Time `json:"at,omitempty"`

	// interval
	PeriodSeconds *int64 `json:"period_seconds,omitempty"`

	// interval + cron + unixcron
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`

	// cron
	Year      string `json:"year,omitempty"`
	Month     string `json:"month,omitempty"`
	Day       string `json:"day,omitempty"`
	Week      string `json:"week,omitempty"`
	DayOfWeek string `json:"day_of_week,omitempty"`
	Hour      string `json:"hour,omitempty"`
	Minute    string `json:"minute,omitempty"`
	Second    string `json:"second,omitempty"`

	// unixcron
	Expr string `json:"expr,omitempty"`

	Timezone string `json:"timezone,omitempty"`
}

const (
	KindDate     = "date"
	KindInterval = "interval"
	KindCron     = "cron"
	KindUnixCron = "unixcron"
)

// Build rehydrates a Spec into a live Trigger. Called by a persistent
// store when it loads a job record (spec.md §4.2: "rehydrate identically";
// on failure the store reports the job unreadable and continues, wrapping
// domain.ErrDeserialization).
func (s Spec) Build() (Trigger, error) {
	loc := time.UTC
	if s.Timezone != "" {
		l, err := time.LoadLocation(s.Timezone)
		if err != nil {
			return nil, fmt.Errorf("trigger spec: load timezone %q: %w", s.Timezone, err)
		}
		loc = l
	}

	switch s.Kind {
	case KindDate:
		if s.At == nil {
			return nil, fmt.Errorf("trigger spec: date trigger missing \"at\"")
		}
		return NewDate(s.At.In(loc)), nil

	case KindInterval:
		if s.PeriodSeconds == nil {
			return nil, fmt.Errorf("trigger spec: interval trigger missing \"period_seconds\"")
		}
		var opts []IntervalOption
		if s.Start != nil {
			opts = append(opts, WithIntervalStart(s.Start.In(loc)))
		}
		if s.End != nil {
			opts = append(opts, WithIntervalEnd(s.End.In(loc)))
		}
		opts = append(opts, WithIntervalTimezone(loc))
		return NewInterval(time.Duration(*s.PeriodSeconds)*time.Second, opts...)

	case KindCron:
		start := time.Time{}
		if s.Start != nil {
			start = *s.Start
		}
		return NewCron(CronFields{
			Year: s.Year, Month: s.Month, Day: s.Day, Week: s.Week,
			DayOfWeek: s.DayOfWeek, Hour: s.Hour, Minute: s.Minute, Second: s.Second,
			Start: start, End: s.End, Loc: loc,
		})

	case KindUnixCron:
		var start *time.Time
		if s.Start != nil {
			t := s.Start.In(loc)
			start = &t
		}
		return NewUnixCron(s.Expr, loc, start, s.End)

	default:
		return nil, fmt.Errorf("trigger spec: unknown kind %q", s.Kind)
	}
}

// Describe captures a live Trigger back into a Spec, or ok=false if t is a
// kind persistence doesn't support (composites).
func Describe(t Trigger) (Spec, bool) {
	switch tt := t.(type) {
	case *Date:
		at := tt.at
		return Spec{Kind: KindDate, At: &at}, true

	case *Interval:
		periodSeconds := int64(tt.period / time.Second)
		spec := Spec{Kind: KindInterval, PeriodSeconds: &periodSeconds, Timezone: tt.loc.String()}
		if tt.start != nil {
			spec.Start = tt.start
		}
		if tt.end != nil {
			spec.End = tt.end
		}
		return spec, true

	case *Cron:
		return describeCron(tt), true

	case *UnixCron:
		spec := Spec{Kind: KindUnixCron, Expr: tt.expr, Start: tt.start, End: tt.end}
		if tt.loc != nil {
			spec.Timezone = tt.loc.String()
		}
		return spec, true

	default:
		return Spec{}, false
	}
}

func describeCron(c *Cron) Spec {
	spec := Spec{
		Kind:      KindCron,
		Year:      c.raw.Year,
		Month:     c.raw.Month,
		Day:       c.raw.Day,
		Week:      c.raw.Week,
		DayOfWeek: c.raw.DayOfWeek,
		Hour:      c.raw.Hour,
		Minute:    c.raw.Minute,
		Second:    c.raw.Second,
		Start:     &c.start,
		End:       c.end,
	}
	if c.loc != nil {
		spec.Timezone = c.loc.String()
	}
	return spec
}
