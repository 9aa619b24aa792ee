package trigger

import (
	"time"
)

// maxYearsAhead bounds the calendar-field search (spec.md §4.1: "algorithm
// terminates when a fully valid instant is found or the year exceeds a
// reasonable bound (implementation picks >= current+100 years) -> null").
const maxYearsAhead = 100

// maxSearchIterations is a hard backstop against an algorithm bug turning
// into a true infinite loop; the year bound above is the intended limit.
const maxSearchIterations = 2_000_000

// Cron is the full calendar-field trigger from spec.md §4.1: year, month,
// day (with `last`/`last X` markers), week (ISO week number), day_of_week
// (0=Monday..6=Sunday), hour, minute, second — all fields ANDed together.
type Cron struct {
	year      fieldSpec
	month     fieldSpec
	day       daySpec
	week      fieldSpec
	dayOfWeek fieldSpec
	hour      fieldSpec
	minute    fieldSpec
	second    fieldSpec

	start time.Time
	end   *time.Time
	loc   *time.Location

	// raw preserves the original field expressions so Describe can
	// round-trip a Cron trigger through a Spec without re-deriving text
	// from the compiled fieldSpec sets.
	raw CronFields
}

// CronFields is the construction-time configuration for Cron. Any field
// left as the zero string defaults to "*" (wildcard). Day accepts `last`
// and `last X`. Month and DayOfWeek accept case-insensitive three-letter
// abbreviations (jan..dec, mon..sun).
type CronFields struct {
	Year      string
	Month     string
	Day       string
	Week      string
	DayOfWeek string
	Hour      string
	Minute    string
	Second    string

	Start time.Time // defaults to time.Now() at construction if zero
	End   *time.Time
	Loc   *time.Location // defaults to time.UTC
}

func orWildcard(s string) string {
	if s == "" {
		return "*"
	}
	return s
}

// NewCron validates and compiles a CronFields configuration. Construction
// errors (spec.md §7 TriggerConfigurationError) surface synchronously.
func NewCron(f CronFields) (*Cron, error) {
	loc := f.Loc
	if loc == nil {
		loc = time.UTC
	}
	start := f.Start
	if start.IsZero() {
		start = time.Now().In(loc)
	}

	year, err := parseField(orWildcard(f.Year), 1970, 9999, nil)
	if err != nil {
		return nil, err
	}
	month, err := parseField(orWildcard(f.Month), 1, 12, monthNames)
	if err != nil {
		return nil, err
	}
	day, err := parseDayField(orWildcard(f.Day))
	if err != nil {
		return nil, err
	}
	week, err := parseField(orWildcard(f.Week), 1, 53, nil)
	if err != nil {
		return nil, err
	}
	dow, err := parseField(orWildcard(f.DayOfWeek), 0, 6, weekdayNames)
	if err != nil {
		return nil, err
	}
	hour, err := parseField(orWildcard(f.Hour), 0, 23, nil)
	if err != nil {
		return nil, err
	}
	minute, err := parseField(orWildcard(f.Minute), 0, 59, nil)
	if err != nil {
		return nil, err
	}
	second, err := parseField(orWildcard(f.Second), 0, 59, nil)
	if err != nil {
		return nil, err
	}

	if f.End != nil && f.End.Before(start) {
		return nil, configErrorf("cron trigger: end %s is before start %s", *f.End, start)
	}

	raw := f
	raw.Start = start
	raw.Loc = loc
	return &Cron{
		year: year, month: month, day: day, week: week, dayOfWeek: dow,
		hour: hour, minute: minute, second: second,
		start: start, end: f.End, loc: loc,
		raw: raw,
	}, nil
}

// Next implements spec.md §4.1's field-resolution algorithm: iterate from
// the most significant field down; on a mismatch, bump that field to its
// next valid value (via time.Date's built-in overflow normalization) and
// reset every lower field to its floor, then re-check from the top.
func (c *Cron) Next(previous, now time.Time) (time.Time, bool) {
	var floor time.Time
	if previous.IsZero() {
		floor = c.start
		if now.After(floor) {
			// Open question in spec.md §9 resolves to: first fire is the
			// smallest matching instant >= start_time, regardless of now.
		}
	} else {
		floor = previous.Add(time.Second)
	}
	floor = floor.In(c.loc)
	if floor.Nanosecond() > 0 {
		floor = floor.Truncate(time.Second).Add(time.Second)
	}

	maxYear := floor.Year() + maxYearsAhead
	cur := floor

	for i := 0; i < maxSearchIterations; i++ {
		y, mo, d := cur.Date()
		h, mi, s := cur.Clock()

		if y > maxYear {
			return zero, false
		}

		if nv, wrapped := c.year.nextOrWrap(y); wrapped || nv != y {
			if wrapped {
				return zero, false
			}
			cur = time.Date(nv, time.January, 1, 0, 0, 0, 0, c.loc)
			continue
		}

		if nv, wrapped := c.month.nextOrWrap(int(mo)); nv != int(mo) || wrapped {
			if wrapped {
				cur = time.Date(y+1, time.January, 1, 0, 0, 0, 0, c.loc)
			} else {
				cur = time.Date(y, time.Month(nv), 1, 0, 0, 0, 0, c.loc)
			}
			continue
		}

		lastDayOfMonth := time.Date(y, mo+1, 0, 0, 0, 0, 0, c.loc).Day()
		refWeekday := weekdayMonFirst(time.Date(y, mo, lastDayOfMonth, 0, 0, 0, 0, c.loc).Weekday())

		if !c.dayMatches(y, mo, d, lastDayOfMonth, refWeekday) {
			if d >= lastDayOfMonth {
				cur = time.Date(y, mo+1, 1, 0, 0, 0, 0, c.loc)
			} else {
				cur = time.Date(y, mo, d+1, 0, 0, 0, 0, c.loc)
			}
			continue
		}

		if nv, wrapped := c.hour.nextOrWrap(h); nv != h || wrapped {
			if wrapped {
				cur = time.Date(y, mo, d+1, 0, 0, 0, 0, c.loc)
			} else {
				cur = time.Date(y, mo, d, nv, 0, 0, 0, c.loc)
			}
			continue
		}

		if nv, wrapped := c.minute.nextOrWrap(mi); nv != mi || wrapped {
			if wrapped {
				cur = time.Date(y, mo, d, h+1, 0, 0, 0, c.loc)
			} else {
				cur = time.Date(y, mo, d, h, nv, 0, 0, c.loc)
			}
			continue
		}

		if nv, wrapped := c.second.nextOrWrap(s); nv != s || wrapped {
			if wrapped {
				cur = time.Date(y, mo, d, h, mi+1, 0, 0, c.loc)
			} else {
				cur = time.Date(y, mo, d, h, mi, nv, 0, c.loc)
			}
			continue
		}

		// Every field matches exactly.
		if c.end != nil && cur.After(*c.end) {
			return zero, false
		}
		return cur, true
	}
	return zero, false
}

func (c *Cron) dayMatches(y int, mo time.Month, d, lastDayOfMonth, refWeekday int) bool {
	if !c.day.matches(d, lastDayOfMonth, refWeekday) {
		return false
	}
	if !c.week.wildcard {
		_, isoWeek := time.Date(y, mo, d, 0, 0, 0, 0, c.loc).ISOWeek()
		if !c.week.contains(isoWeek) {
			return false
		}
	}
	if !c.dayOfWeek.wildcard {
		wd := weekdayMonFirst(time.Date(y, mo, d, 0, 0, 0, 0, c.loc).Weekday())
		if !c.dayOfWeek.contains(wd) {
			return false
		}
	}
	return true
}

// weekdayMonFirst remaps Go's Sunday=0..Saturday=6 to spec.md's
// Monday=0..Sunday=6 convention.
func weekdayMonFirst(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
