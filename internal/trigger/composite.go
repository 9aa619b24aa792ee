package trigger

import "time"

// maxConvergenceIterations bounds the And fixpoint loop (design note §9:
// "Document the upper iteration bound ... to protect against pathological
// configurations").
const maxConvergenceIterations = 1000

// And returns the smallest instant that every sub-trigger would also agree
// is a valid next fire time. Practically: repeatedly advance the maximum
// among the children's current candidates until they all land on the same
// instant, or any child is exhausted (spec.md §4.1).
type And struct {
	children []Trigger
}

func NewAnd(children ...Trigger) (*And, error) {
	if len(children) == 0 {
		return nil, configErrorf("and trigger: at least one child required")
	}
	return &And{children: children}, nil
}

func (a *And) Next(previous, now time.Time) (time.Time, bool) {
	// Seed each child's candidate independently from the same (previous, now).
	candidates := make([]time.Time, len(a.children))
	for i, c := range a.children {
		t, ok := c.Next(previous, now)
		if !ok {
			return zero, false
		}
		candidates[i] = t
	}

	for iter := 0; iter < maxConvergenceIterations; iter++ {
		target := candidates[0]
		for _, t := range candidates[1:] {
			if t.After(target) {
				target = t
			}
		}

		converged := true
		for i, c := range a.children {
			if candidates[i].Equal(target) {
				continue
			}
			converged = false
			// Re-probe this child from its own last candidate as "previous"
			// to advance it one step toward target; the next iteration
			// re-checks it.
			t, ok := c.Next(candidates[i], now)
			if !ok {
				return zero, false
			}
			candidates[i] = t
		}
		if converged {
			return target, true
		}
	}
	return zero, false
}

// Or returns the earliest non-null result among its children; null iff all
// are null (spec.md §4.1).
type Or struct {
	children []Trigger
}

func NewOr(children ...Trigger) (*Or, error) {
	if len(children) == 0 {
		return nil, configErrorf("or trigger: at least one child required")
	}
	return &Or{children: children}, nil
}

func (o *Or) Next(previous, now time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for _, c := range o.children {
		t, ok := c.Next(previous, now)
		if !ok {
			continue
		}
		if !found || t.Before(best) {
			best = t
			found = true
		}
	}
	return best, found
}
