package trigger_test

import (
	"testing"
	"time"

	"github.com/chronoflow/scheduler/internal/trigger"
)

func TestUnixCron_EveryFiveMinutes(t *testing.T) {
	u, err := trigger.NewUnixCron("*/5 * * * *", time.UTC, nil, nil)
	if err != nil {
		t.Fatalf("NewUnixCron: %v", err)
	}

	now := time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC)
	got, ok := u.Next(time.Time{}, now)
	if !ok {
		t.Fatal("expected a fire time")
	}
	want := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}

	second, ok := u.Next(got, now)
	if !ok {
		t.Fatal("expected a second fire time")
	}
	if !second.Equal(want.Add(5 * time.Minute)) {
		t.Fatalf("second fire = %v, want %v", second, want.Add(5*time.Minute))
	}
}

func TestUnixCron_RejectsMalformedExpression(t *testing.T) {
	if _, err := trigger.NewUnixCron("not a cron expression", time.UTC, nil, nil); err == nil {
		t.Fatal("expected a configuration error")
	}
}

func TestUnixCron_StopsAtEnd(t *testing.T) {
	end := time.Date(2026, 1, 1, 0, 3, 0, 0, time.UTC)
	u, err := trigger.NewUnixCron("*/5 * * * *", time.UTC, nil, &end)
	if err != nil {
		t.Fatalf("NewUnixCron: %v", err)
	}

	now := time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC)
	if _, ok := u.Next(time.Time{}, now); ok {
		t.Fatal("expected null once the next candidate falls after end")
	}
}

func TestUnixCron_StartPinsFirstFire(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	u, err := trigger.NewUnixCron("*/5 * * * *", time.UTC, &start, nil)
	if err != nil {
		t.Fatalf("NewUnixCron: %v", err)
	}

	now := time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC)
	got, ok := u.Next(time.Time{}, now)
	if !ok {
		t.Fatal("expected a fire time")
	}
	if !got.Equal(start) {
		t.Fatalf("Next = %v, want %v (start itself, since it satisfies the expression)", got, start)
	}
}

func TestUnixCron_RoundTripsThroughSpec(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	u, err := trigger.NewUnixCron("*/5 * * * *", time.UTC, &start, &end)
	if err != nil {
		t.Fatalf("NewUnixCron: %v", err)
	}

	spec, ok := trigger.Describe(u)
	if !ok {
		t.Fatal("expected UnixCron to be describable")
	}
	if spec.Kind != trigger.KindUnixCron || spec.Expr != "*/5 * * * *" {
		t.Fatalf("spec = %+v, want kind=%q expr=%q", spec, trigger.KindUnixCron, "*/5 * * * *")
	}
	if spec.Start == nil || !spec.Start.Equal(start) {
		t.Fatalf("spec.Start = %v, want %v", spec.Start, start)
	}
	if spec.End == nil || !spec.End.Equal(end) {
		t.Fatalf("spec.End = %v, want %v", spec.End, end)
	}

	rebuilt, err := spec.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	now := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	got, ok := rebuilt.Next(time.Time{}, now)
	if !ok {
		t.Fatal("expected a fire time from the rebuilt trigger")
	}
	if !got.Equal(start) {
		t.Fatalf("rebuilt Next = %v, want %v (start preserved across the round trip)", got, start)
	}
}
