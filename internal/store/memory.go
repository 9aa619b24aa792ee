package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chronoflow/scheduler/internal/domain"
)

// MemoryStore is the in-memory reference JobStore (spec.md §4.2): a map
// keyed by id plus a slice kept sorted on every mutation, sort key
// (next_run_time ?? +inf, id) for a total order and stable iteration.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]*domain.Job
	ordered []*domain.Job // kept sorted; rebuilt on every mutation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*domain.Job)}
}

func (s *MemoryStore) Start(context.Context) error    { return nil }
func (s *MemoryStore) Shutdown(context.Context) error { return nil }

func (s *MemoryStore) AddJob(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[job.ID]; exists {
		return domain.ErrConflictingID
	}
	s.byID[job.ID] = job
	s.resort()
	return nil
}

func (s *MemoryStore) UpdateJob(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[job.ID]; !exists {
		return domain.ErrJobNotFound
	}
	s.byID[job.ID] = job
	s.resort()
	return nil
}

func (s *MemoryStore) RemoveJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[id]; !exists {
		return domain.ErrJobNotFound
	}
	delete(s.byID, id)
	s.resort()
	return nil
}

func (s *MemoryStore) RemoveAllJobs(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]*domain.Job)
	s.ordered = nil
	return nil
}

func (s *MemoryStore) LookupJob(_ context.Context, id string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, exists := s.byID[id]
	if !exists {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (s *MemoryStore) GetDueJobs(_ context.Context, now time.Time) ([]*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*domain.Job
	for _, j := range s.ordered {
		if j.NextRunTime == nil {
			break // nulls sort last
		}
		if j.NextRunTime.After(now) {
			break // ordered ascending; nothing further can be due
		}
		due = append(due, j)
	}
	return due, nil
}

func (s *MemoryStore) GetNextRunTime(_ context.Context) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.ordered {
		if j.NextRunTime != nil {
			t := *j.NextRunTime
			return &t, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) GetAllJobs(_ context.Context) ([]*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Job, len(s.ordered))
	copy(out, s.ordered)
	return out, nil
}

// resort rebuilds the ordered slice under the (next_run_time ?? +inf, id)
// key. O(n log n) per mutation is acceptable for the in-memory reference
// implementation; a backend expecting heavier churn should index instead.
func (s *MemoryStore) resort() {
	ordered := make([]*domain.Job, 0, len(s.byID))
	for _, j := range s.byID {
		ordered = append(ordered, j)
	}
	sort.Slice(ordered, func(i, k int) bool {
		a, b := ordered[i], ordered[k]
		switch {
		case a.NextRunTime == nil && b.NextRunTime == nil:
			return a.ID < b.ID
		case a.NextRunTime == nil:
			return false
		case b.NextRunTime == nil:
			return true
		case !a.NextRunTime.Equal(*b.NextRunTime):
			return a.NextRunTime.Before(*b.NextRunTime)
		default:
			return a.ID < b.ID
		}
	})
	s.ordered = ordered
}
