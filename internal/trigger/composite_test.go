package trigger_test

import (
	"testing"
	"time"

	"github.com/chronoflow/scheduler/internal/trigger"
)

func TestOr_ReturnsEarliestChildResult(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fast, err := trigger.NewInterval(3*time.Second, trigger.WithIntervalStart(start))
	if err != nil {
		t.Fatalf("NewInterval: %v", err)
	}
	slow, err := trigger.NewInterval(5*time.Second, trigger.WithIntervalStart(start))
	if err != nil {
		t.Fatalf("NewInterval: %v", err)
	}
	or, err := trigger.NewOr(fast, slow)
	if err != nil {
		t.Fatalf("NewOr: %v", err)
	}

	got, ok := or.Next(start, start)
	if !ok {
		t.Fatal("expected a fire time")
	}
	want := start.Add(3 * time.Second)
	if !got.Equal(want) {
		t.Errorf("Next = %v, want %v (earliest child)", got, want)
	}
}

func TestOr_NullOnlyWhenAllChildrenExhausted(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	once := trigger.NewDate(at)
	periodic, err := trigger.NewInterval(5*time.Second, trigger.WithIntervalStart(at))
	if err != nil {
		t.Fatalf("NewInterval: %v", err)
	}
	or, err := trigger.NewOr(once, periodic)
	if err != nil {
		t.Fatalf("NewOr: %v", err)
	}

	// once has already fired (previous non-zero); periodic has not.
	got, ok := or.Next(at, at)
	if !ok {
		t.Fatal("expected periodic child to keep the Or trigger alive")
	}
	if !got.Equal(at.Add(5 * time.Second)) {
		t.Errorf("Next = %v, want %v", got, at.Add(5*time.Second))
	}

	onlyOnce, err := trigger.NewOr(trigger.NewDate(at))
	if err != nil {
		t.Fatalf("NewOr: %v", err)
	}
	if _, ok := onlyOnce.Next(at, at); ok {
		t.Fatal("expected null once every child is exhausted")
	}
}

func TestAnd_ConvergesOnCommonInstant(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	every2, err := trigger.NewInterval(2*time.Second, trigger.WithIntervalStart(start))
	if err != nil {
		t.Fatalf("NewInterval: %v", err)
	}
	every3, err := trigger.NewInterval(3*time.Second, trigger.WithIntervalStart(start.Add(time.Second)))
	if err != nil {
		t.Fatalf("NewInterval: %v", err)
	}
	and, err := trigger.NewAnd(every2, every3)
	if err != nil {
		t.Fatalf("NewAnd: %v", err)
	}

	got, ok := and.Next(time.Time{}, start)
	if !ok {
		t.Fatal("expected the two children to converge on a common instant")
	}
	want := start.Add(4 * time.Second)
	if !got.Equal(want) {
		t.Errorf("Next = %v, want %v", got, want)
	}
}

func TestAnd_NullWhenAnyChildExhausted(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	once := trigger.NewDate(at)
	periodic, err := trigger.NewInterval(5*time.Second, trigger.WithIntervalStart(at))
	if err != nil {
		t.Fatalf("NewInterval: %v", err)
	}
	and, err := trigger.NewAnd(once, periodic)
	if err != nil {
		t.Fatalf("NewAnd: %v", err)
	}

	if _, ok := and.Next(at, at); ok {
		t.Fatal("expected null once the one-shot child is exhausted")
	}
}

func TestNewAnd_RequiresAtLeastOneChild(t *testing.T) {
	if _, err := trigger.NewAnd(); err == nil {
		t.Fatal("expected configuration error for zero children")
	}
}

func TestNewOr_RequiresAtLeastOneChild(t *testing.T) {
	if _, err := trigger.NewOr(); err == nil {
		t.Fatal("expected configuration error for zero children")
	}
}
