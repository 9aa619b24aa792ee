package store

import (
	"fmt"
	"sync"

	"github.com/chronoflow/scheduler/internal/domain"
)

// CallableRegistry resolves a domain.Callable.RegistryName to an actual Go
// function. Design note §9: "Persistent stores must accept only
// registry-resolvable references" — a func value can't survive a round
// trip through JSON, so any job a persistent store rehydrates must carry a
// RegistryName the scheduler's registry can look up.
type CallableRegistry struct {
	mu   sync.RWMutex
	fns  map[string]func(domain.RunContext) (any, error)
}

func NewCallableRegistry() *CallableRegistry {
	return &CallableRegistry{fns: make(map[string]func(domain.RunContext) (any, error))}
}

// Register binds name to fn. Registering the same name twice overwrites —
// callers typically register once at startup before any store rehydrates.
func (r *CallableRegistry) Register(name string, fn func(domain.RunContext) (any, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fns[name] = fn
}

// Resolve hydrates job.Callable.Func from job.Callable.RegistryName. Jobs
// that already carry a Func (added directly, never persisted) pass through
// unchanged.
func (r *CallableRegistry) Resolve(job *domain.Job) error {
	if job.Callable.Func != nil {
		return nil
	}
	if job.Callable.RegistryName == "" {
		return fmt.Errorf("job %s: %w: no registry name and no in-process func", job.ID, domain.ErrDeserialization)
	}
	r.mu.RLock()
	fn, ok := r.fns[job.Callable.RegistryName]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %s: %w: unregistered callable %q", job.ID, domain.ErrDeserialization, job.Callable.RegistryName)
	}
	job.Callable.Func = fn
	return nil
}
