package trigger_test

import (
	"testing"
	"time"

	"github.com/chronoflow/scheduler/internal/trigger"
)

func TestDate_FiresOnceAtConfiguredInstant(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := trigger.NewDate(at)

	got, ok := d.Next(time.Time{}, at.Add(-time.Hour))
	if !ok || !got.Equal(at) {
		t.Fatalf("Next(zero, _) = %v, %v; want %v, true", got, ok, at)
	}

	_, ok = d.Next(at, at.Add(time.Second))
	if ok {
		t.Fatal("expected exhaustion after first fire")
	}
}

func TestDate_BeforeStart_RejectedAtConstruction(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	start := at.Add(time.Hour)
	if _, err := trigger.NewDateWithStart(at, start); err == nil {
		t.Fatal("expected construction error for at < start")
	}
}
