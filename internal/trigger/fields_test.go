package trigger

import "testing"

func TestParseField_Wildcard(t *testing.T) {
	f, err := parseField("*", 0, 59, nil)
	if err != nil {
		t.Fatalf("parseField: %v", err)
	}
	if !f.wildcard {
		t.Fatal("expected a wildcard field")
	}
	for _, v := range []int{0, 30, 59} {
		if !f.contains(v) {
			t.Errorf("wildcard field should contain %d", v)
		}
	}
}

func TestParseField_RangeWithStep(t *testing.T) {
	f, err := parseField("10-20/5", 0, 59, nil)
	if err != nil {
		t.Fatalf("parseField: %v", err)
	}
	want := []int{10, 15, 20}
	for _, v := range want {
		if !f.contains(v) {
			t.Errorf("expected field to contain %d", v)
		}
	}
	if f.contains(11) {
		t.Error("11 should not be in a step-5 range starting at 10")
	}
}

func TestParseField_CommaListDeduplicatesAndSorts(t *testing.T) {
	f, err := parseField("5,1,5,3", 0, 10, nil)
	if err != nil {
		t.Fatalf("parseField: %v", err)
	}
	want := []int{1, 3, 5}
	if len(f.values) != len(want) {
		t.Fatalf("values = %v, want %v", f.values, want)
	}
	for i, v := range want {
		if f.values[i] != v {
			t.Fatalf("values = %v, want %v", f.values, want)
		}
	}
}

func TestParseField_NamesAreCaseInsensitive(t *testing.T) {
	f, err := parseField("JAN,Jul", 1, 12, monthNames)
	if err != nil {
		t.Fatalf("parseField: %v", err)
	}
	if !f.contains(1) || !f.contains(7) {
		t.Fatalf("values = %v, want [1 7]", f.values)
	}
}

func TestParseField_OutOfRangeIsRejected(t *testing.T) {
	if _, err := parseField("99", 0, 59, nil); err == nil {
		t.Fatal("expected an out-of-range error")
	}
}

func TestParseField_InvertedRangeIsRejected(t *testing.T) {
	if _, err := parseField("20-10", 0, 59, nil); err == nil {
		t.Fatal("expected an error for a range whose start exceeds its end")
	}
}

func TestParseField_InvalidStepIsRejected(t *testing.T) {
	if _, err := parseField("1-10/0", 0, 59, nil); err == nil {
		t.Fatal("expected an error for a non-positive step")
	}
}

func TestFieldSpec_NextOrWrap(t *testing.T) {
	f, err := parseField("5,10,15", 0, 59, nil)
	if err != nil {
		t.Fatalf("parseField: %v", err)
	}
	if v, wrapped := f.nextOrWrap(7); wrapped || v != 10 {
		t.Errorf("nextOrWrap(7) = %d, %v; want 10, false", v, wrapped)
	}
	if v, wrapped := f.nextOrWrap(16); !wrapped || v != 5 {
		t.Errorf("nextOrWrap(16) = %d, %v; want 5, true", v, wrapped)
	}
}

func TestParseDayField_LastMarker(t *testing.T) {
	d, err := parseDayField("last")
	if err != nil {
		t.Fatalf("parseDayField: %v", err)
	}
	if !d.last {
		t.Fatal("expected the bare last-day-of-month marker")
	}
	if !d.matches(31, 31, 0) {
		t.Fatal("expected day 31 to match when it is the last day of the month")
	}
	if d.matches(30, 31, 0) {
		t.Fatal("day 30 should not match when the month has 31 days")
	}
}

func TestParseDayField_LastWeekdayMarker(t *testing.T) {
	d, err := parseDayField("last mon")
	if err != nil {
		t.Fatalf("parseDayField: %v", err)
	}
	if d.lastWeekday == nil || *d.lastWeekday != 0 {
		t.Fatalf("lastWeekday = %v, want 0 (Monday)", d.lastWeekday)
	}
}
