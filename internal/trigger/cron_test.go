package trigger_test

import (
	"testing"
	"time"

	"github.com/chronoflow/scheduler/internal/trigger"
)

func TestCron_EveryMondayAtNineAM(t *testing.T) {
	start := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC) // a Sunday
	c, err := trigger.NewCron(trigger.CronFields{
		DayOfWeek: "mon",
		Hour:      "9",
		Minute:    "0",
		Second:    "0",
		Start:     start,
	})
	if err != nil {
		t.Fatalf("NewCron: %v", err)
	}

	first, ok := c.Next(time.Time{}, start)
	if !ok {
		t.Fatal("expected a first fire time")
	}
	wantFirst := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC) // the following Monday
	if !first.Equal(wantFirst) {
		t.Fatalf("first fire = %v, want %v", first, wantFirst)
	}

	second, ok := c.Next(first, start)
	if !ok {
		t.Fatal("expected a second fire time")
	}
	wantSecond := wantFirst.AddDate(0, 0, 7)
	if !second.Equal(wantSecond) {
		t.Fatalf("second fire = %v, want %v", second, wantSecond)
	}
}

func TestCron_LastDayOfMonth(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := trigger.NewCron(trigger.CronFields{
		Month: "2",
		Day:   "last",
		Start: start,
	})
	if err != nil {
		t.Fatalf("NewCron: %v", err)
	}

	got, ok := c.Next(time.Time{}, start)
	if !ok {
		t.Fatal("expected a fire time")
	}
	want := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC) // 2026 is not a leap year
	if !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}
}

func TestCron_LastWeekdayOfMonth(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := trigger.NewCron(trigger.CronFields{
		Month: "1",
		Day:   "last fri",
		Start: start,
	})
	if err != nil {
		t.Fatalf("NewCron: %v", err)
	}

	got, ok := c.Next(time.Time{}, start)
	if !ok {
		t.Fatal("expected a fire time")
	}
	want := time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC) // last Friday of January 2026
	if !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}
}

func TestCron_UnsatisfiableYearReturnsNull(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := trigger.NewCron(trigger.CronFields{
		Year:  "2020",
		Start: start,
	})
	if err != nil {
		t.Fatalf("NewCron: %v", err)
	}
	if _, ok := c.Next(time.Time{}, start); ok {
		t.Fatal("expected null when the configured year can never be reached")
	}
}

func TestCron_EndBeforeStartIsRejected(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err := trigger.NewCron(trigger.CronFields{Start: start, End: &end})
	if err == nil {
		t.Fatal("expected a configuration error")
	}
}

func TestCron_StopsAtEnd(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	c, err := trigger.NewCron(trigger.CronFields{
		Hour: "12", Minute: "0", Second: "0",
		Start: start,
		End:   &end,
	})
	if err != nil {
		t.Fatalf("NewCron: %v", err)
	}

	first, ok := c.Next(time.Time{}, start)
	if !ok || !first.Equal(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("first fire = %v, %v", first, ok)
	}
	if _, ok := c.Next(first, start); ok {
		t.Fatal("expected null once the next candidate would fall after end")
	}
}
