package core

import (
	"testing"
	"time"
)

func TestCalendarBoundsUTC(t *testing.T) {
	cal := NewCalendar(nil)
	at := time.Date(2024, 2, 15, 13, 45, 0, 0, time.UTC)

	start, end := cal.DayBounds(at)
	if !start.Equal(time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected day start %v", start)
	}
	if !end.Equal(time.Date(2024, 2, 16, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)) {
		t.Fatalf("unexpected day end %v", end)
	}
	if got := cal.StartOfMonth(at); !got.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected month start %v", got)
	}
	if got := cal.StartOfYear(at); !got.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected year start %v", got)
	}
	if got := cal.DayKey(at); got != "2024-02-15" {
		t.Fatalf("unexpected day key %q", got)
	}
}

func TestCalendarReferenceZone(t *testing.T) {
	cal, err := LoadCalendar("Europe/Rome")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	// 23:30 UTC on Jan 4 is already Jan 5 in Rome.
	at := time.Date(2024, 1, 4, 23, 30, 0, 0, time.UTC)
	if got := cal.DayKey(at); got != "2024-01-05" {
		t.Fatalf("expected 2024-01-05, got %q", got)
	}
	if !cal.SameDay(at, time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected same reference day")
	}

	// DST change: the day of 2024-03-31 in Rome lasts 23 hours.
	start, end := cal.DayBounds(time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC))
	if d := end.Sub(start) + time.Nanosecond; d != 23*time.Hour {
		t.Fatalf("expected 23h day, got %v", d)
	}
}

func TestLoadCalendarInvalid(t *testing.T) {
	if _, err := LoadCalendar("Not/AZone"); err == nil {
		t.Fatalf("expected error for unknown zone")
	}
	cal, err := LoadCalendar("")
	if err != nil || cal.Location() != time.UTC {
		t.Fatalf("expected UTC default, got %v (err=%v)", cal.Location(), err)
	}
}

func TestParseDay(t *testing.T) {
	cal := NewCalendar(time.UTC)
	d, err := cal.ParseDay("2024-01-05")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !d.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected %v", d)
	}
	if _, err := cal.ParseDay("05/01/2024"); err == nil {
		t.Fatalf("expected parse error")
	}
}
