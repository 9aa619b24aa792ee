package eventbus_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/chronoflow/scheduler/internal/domain"
	"github.com/chronoflow/scheduler/internal/eventbus"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBus_DispatchesOnlyToMatchingMask(t *testing.T) {
	b := eventbus.New(testLogger())
	var gotJobEvent, gotSchedulerEvent bool
	b.AddListener(domain.JobExecuted, func(domain.Event) { gotJobEvent = true })
	b.AddListener(domain.SchedulerStarted, func(domain.Event) { gotSchedulerEvent = true })

	b.Dispatch(domain.Event{Code: domain.JobExecuted})

	if !gotJobEvent {
		t.Error("expected the JobExecuted listener to fire")
	}
	if gotSchedulerEvent {
		t.Error("expected the SchedulerStarted listener not to fire")
	}
}

func TestBus_InvokesListenersInRegistrationOrder(t *testing.T) {
	b := eventbus.New(testLogger())
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		b.AddListener(domain.All, func(domain.Event) { order = append(order, i) })
	}

	b.Dispatch(domain.Event{Code: domain.JobExecuted})

	want := []int{0, 1, 2}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i, v := range want {
		if order[i] != v {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestBus_RemoveListenerStopsFutureDispatch(t *testing.T) {
	b := eventbus.New(testLogger())
	calls := 0
	id := b.AddListener(domain.All, func(domain.Event) { calls++ })

	b.Dispatch(domain.Event{Code: domain.JobExecuted})
	b.RemoveListener(id)
	b.Dispatch(domain.Event{Code: domain.JobExecuted})

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestBus_PanickingListenerDoesNotAbortDispatch(t *testing.T) {
	b := eventbus.New(testLogger())
	reached := false
	b.AddListener(domain.All, func(domain.Event) { panic("listener exploded") })
	b.AddListener(domain.All, func(domain.Event) { reached = true })

	b.Dispatch(domain.Event{Code: domain.JobExecuted})

	if !reached {
		t.Fatal("expected dispatch to continue to the listener after the panicking one")
	}
}

func TestBus_AllMaskMatchesEveryCode(t *testing.T) {
	b := eventbus.New(testLogger())
	calls := 0
	b.AddListener(domain.All, func(domain.Event) { calls++ })

	for _, code := range []domain.Code{domain.JobExecuted, domain.JobError, domain.JobMissed, domain.SchedulerStarted} {
		b.Dispatch(domain.Event{Code: code})
	}

	if calls != 4 {
		t.Fatalf("calls = %d, want 4", calls)
	}
}
