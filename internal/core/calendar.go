package core

import (
	"fmt"
	"math"
	"time"
)

// DayKeyLayout is the canonical day-key format.
const DayKeyLayout = "2006-01-02"

// Earliest is the lower bound used for open-ended ranges.
var Earliest = time.Unix(0, math.MinInt64).UTC()

// Calendar computes day, month and year boundaries in a fixed reference
// location. Instants that fall on the same local day in that location share
// a day key.
type Calendar struct {
	loc *time.Location
}

// NewCalendar returns a calendar for loc. A nil loc means UTC.
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// LoadCalendar resolves an IANA zone name ("UTC", "Europe/Rome").
func LoadCalendar(name string) (Calendar, error) {
	if name == "" {
		return NewCalendar(time.UTC), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Calendar{}, fmt.Errorf("load reference timezone %q: %w", name, err)
	}
	return NewCalendar(loc), nil
}

func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// StartOfDay truncates t to 00:00 of its day in the reference location.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	t = t.In(c.Location())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.Location())
}

// DayBounds returns the first and last instant of the day containing t.
func (c Calendar) DayBounds(t time.Time) (time.Time, time.Time) {
	start := c.StartOfDay(t)
	next := time.Date(start.Year(), start.Month(), start.Day()+1, 0, 0, 0, 0, c.Location())
	return start, next.Add(-time.Nanosecond)
}

// StartOfMonth returns 00:00 on the first day of t's month.
func (c Calendar) StartOfMonth(t time.Time) time.Time {
	t = t.In(c.Location())
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, c.Location())
}

// StartOfYear returns 00:00 on January 1 of t's year.
func (c Calendar) StartOfYear(t time.Time) time.Time {
	t = t.In(c.Location())
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, c.Location())
}

// DayKey is the canonical bucket key for t.
func (c Calendar) DayKey(t time.Time) string {
	return t.In(c.Location()).Format(DayKeyLayout)
}

// SameDay reports whether a and b fall on the same reference day.
func (c Calendar) SameDay(a, b time.Time) bool {
	return c.DayKey(a) == c.DayKey(b)
}

// ParseDay parses a YYYY-MM-DD string as 00:00 in the reference location.
func (c Calendar) ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DayKeyLayout, s, c.Location())
}
