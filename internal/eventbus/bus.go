// Package eventbus implements the scheduler's event bus (spec.md §6):
// listeners register with a bitmask of domain.Code values they care about
// and are invoked, in registration order, for every matching event the
// scheduler dispatches.
package eventbus

import (
	"log/slog"
	"sync"

	"github.com/chronoflow/scheduler/internal/domain"
)

// Listener receives events whose Code matches the mask it registered
// with.
type Listener func(event domain.Event)

type registration struct {
	id     int
	mask   domain.Code
	listen Listener
}

// Bus dispatches synchronously on the calling goroutine — the scheduler
// loop calls Dispatch inline after acting on an event, so a listener
// observes state exactly as it was the instant the event fired. A
// listener that panics is recovered and logged; it never aborts dispatch
// to the remaining listeners.
type Bus struct {
	mu     sync.Mutex
	nextID int
	regs   []registration
	logger *slog.Logger
}

func New(logger *slog.Logger) *Bus {
	return &Bus{logger: logger.With("component", "eventbus")}
}

// AddListener registers listen for events matching mask (domain.All for
// everything) and returns an id usable with RemoveListener.
func (b *Bus) AddListener(mask domain.Code, listen Listener) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.regs = append(b.regs, registration{id: id, mask: mask, listen: listen})
	return id
}

func (b *Bus) RemoveListener(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, r := range b.regs {
		if r.id == id {
			b.regs = append(b.regs[:i], b.regs[i+1:]...)
			return
		}
	}
}

// Dispatch notifies every listener whose mask matches event.Code, in
// registration order.
func (b *Bus) Dispatch(event domain.Event) {
	b.mu.Lock()
	regs := make([]registration, len(b.regs))
	copy(regs, b.regs)
	b.mu.Unlock()

	for _, r := range regs {
		if r.mask&event.Code == 0 {
			continue
		}
		b.invoke(r, event)
	}
}

func (b *Bus) invoke(r registration, event domain.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("event listener panicked", "listener_id", r.id, "code", event.Code, "panic", rec)
		}
	}()
	r.listen(event)
}
