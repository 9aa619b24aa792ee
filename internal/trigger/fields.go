package trigger

import (
	"fmt"
	"strconv"
	"strings"
)

// fieldSpec is a parsed cron field: either a wildcard (anything in
// [min,max] matches) or an explicit sorted, deduplicated set of allowed
// values within [min,max].
type fieldSpec struct {
	wildcard bool
	values   []int
	min, max int
}

func wildcardField(min, max int) fieldSpec {
	return fieldSpec{wildcard: true, min: min, max: max}
}

func (f fieldSpec) contains(v int) bool {
	if f.wildcard {
		return v >= f.min && v <= f.max
	}
	for _, x := range f.values {
		if x == v {
			return true
		}
	}
	return false
}

// nextOrWrap returns the smallest allowed value >= v, or — if none remains
// in range — the smallest allowed value overall plus wrapped=true, telling
// the caller to carry into the next higher field.
func (f fieldSpec) nextOrWrap(v int) (value int, wrapped bool) {
	if f.wildcard {
		if v <= f.max {
			if v < f.min {
				return f.min, false
			}
			return v, false
		}
		return f.min, true
	}
	for _, x := range f.values {
		if x >= v {
			return x, false
		}
	}
	return f.values[0], true
}

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// weekdayNames uses spec.md's 0=Monday..6=Sunday convention.
var weekdayNames = map[string]int{
	"mon": 0, "tue": 1, "wed": 2, "thu": 3, "fri": 4, "sat": 5, "sun": 6,
}

// parseField parses one cron field expression: "*", "*/step", "a-b",
// "a-b/step", a comma-separated list of any of those, or a bare value —
// each token may use a three-letter name (resolved via names, matched
// case-insensitively) instead of a number.
func parseField(expr string, min, max int, names map[string]int) (fieldSpec, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return fieldSpec{}, configErrorf("empty field expression")
	}
	if expr == "*" {
		return wildcardField(min, max), nil
	}

	seen := make(map[int]bool)
	var values []int
	for _, part := range strings.Split(expr, ",") {
		vals, err := parseFieldToken(part, min, max, names)
		if err != nil {
			return fieldSpec{}, err
		}
		for _, v := range vals {
			if v < min || v > max {
				return fieldSpec{}, configErrorf("value %d out of range [%d,%d]", v, min, max)
			}
			if !seen[v] {
				seen[v] = true
				values = append(values, v)
			}
		}
	}
	if len(values) == 0 {
		return fieldSpec{}, configErrorf("field expression %q resolved to no values", expr)
	}
	sortInts(values)
	return fieldSpec{values: values, min: min, max: max}, nil
}

// parseFieldToken parses one comma-separated token: *, */n, a, a-b, a-b/n.
func parseFieldToken(token string, min, max int, names map[string]int) ([]int, error) {
	token = strings.TrimSpace(token)
	step := 1
	rangePart := token
	if idx := strings.IndexByte(token, '/'); idx >= 0 {
		rangePart = token[:idx]
		stepStr := token[idx+1:]
		s, err := strconv.Atoi(stepStr)
		if err != nil || s <= 0 {
			return nil, configErrorf("invalid step %q in field %q", stepStr, token)
		}
		step = s
	}

	var lo, hi int
	switch {
	case rangePart == "*":
		lo, hi = min, max
	case strings.Contains(rangePart, "-"):
		parts := strings.SplitN(rangePart, "-", 2)
		a, err := resolveFieldValue(parts[0], names)
		if err != nil {
			return nil, err
		}
		b, err := resolveFieldValue(parts[1], names)
		if err != nil {
			return nil, err
		}
		lo, hi = a, b
		if lo > hi {
			return nil, configErrorf("invalid range %q: start after end", rangePart)
		}
	default:
		v, err := resolveFieldValue(rangePart, names)
		if err != nil {
			return nil, err
		}
		lo, hi = v, v
	}

	var out []int
	for v := lo; v <= hi; v += step {
		out = append(out, v)
	}
	return out, nil
}

func resolveFieldValue(s string, names map[string]int) (int, error) {
	s = strings.TrimSpace(s)
	if names != nil {
		if v, ok := names[strings.ToLower(s)]; ok {
			return v, nil
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, configErrorf("cannot parse field value %q", s)
	}
	return v, nil
}

func sortInts(vals []int) {
	for i := 1; i < len(vals); i++ {
		for j := i; j > 0 && vals[j-1] > vals[j]; j-- {
			vals[j-1], vals[j] = vals[j], vals[j-1]
		}
	}
}

// daySpec is the day-of-month field. It extends fieldSpec with the two
// "last" markers spec.md §4.1 calls out: `last` (last calendar day of the
// month) and `last X` (last weekday X — 0=Monday..6=Sunday, or a name —
// in the month).
type daySpec struct {
	field       fieldSpec
	last        bool
	lastWeekday *int
}

func parseDayField(expr string) (daySpec, error) {
	expr = strings.TrimSpace(expr)
	lower := strings.ToLower(expr)
	if lower == "last" {
		return daySpec{last: true}, nil
	}
	if strings.HasPrefix(lower, "last ") {
		wdExpr := strings.TrimSpace(expr[len("last "):])
		wd, err := resolveFieldValue(wdExpr, weekdayNames)
		if err != nil {
			return daySpec{}, fmt.Errorf("day field %q: %w", expr, err)
		}
		if wd < 0 || wd > 6 {
			return daySpec{}, configErrorf("weekday %d out of range [0,6] in %q", wd, expr)
		}
		return daySpec{lastWeekday: &wd}, nil
	}
	f, err := parseField(expr, 1, 31, nil)
	if err != nil {
		return daySpec{}, err
	}
	return daySpec{field: f}, nil
}

// matches reports whether day (1-31) satisfies the spec. refWeekday is the
// Mon=0..Sun=6 weekday of lastDayOfMonth, supplied by the caller since only
// it knows the trigger's configured location.
func (d daySpec) matches(day, lastDayOfMonth, refWeekday int) bool {
	if d.last {
		return day == lastDayOfMonth
	}
	if d.lastWeekday != nil {
		// Walk back from the last day of the month to the most recent
		// occurrence of the requested weekday.
		diff := (refWeekday - *d.lastWeekday + 7) % 7
		return day == lastDayOfMonth-diff
	}
	return d.field.contains(day)
}
