package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Calendar dates are constructed at a fixed mid-day hour so that a value
// serialized in one timezone and read back in another cannot slip across a
// day boundary.
const midDayHour = 12

// NewDay builds the canonical timestamp for a calendar date.
func NewDay(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, midDayHour, 0, 0, 0, time.UTC)
}

// MonthAnchor returns the canonical mid-month timestamp for t's month (the
// 15th at mid-day). It is the date given to expense transactions created by
// paying an installment, so the expense lands in the month being viewed.
func MonthAnchor(t time.Time) time.Time {
	return NewDay(t.Year(), t.Month(), 15)
}

// SameMonth reports whether a and b fall in the same calendar month and
// year. Zero times never match anything, including each other.
func SameMonth(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// ParseWhen accepts the date shapes clients send: RFC 3339, "2006-01-02",
// or the month-only "2006-01" (normalized to the 15th so month-boundary
// drift cannot change which month it lands in).
func ParseWhen(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return time.Time{}, ErrInvalidDate
	case len(s) == 7: // YYYY-MM
		t, err := time.Parse("2006-01", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		return NewDay(t.Year(), t.Month(), 15), nil
	case len(s) == 10: // YYYY-MM-DD
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		return NewDay(t.Year(), t.Month(), t.Day()), nil
	default:
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		return t, nil
	}
}

// AddMonthsClamped advances t by n calendar months, preserving the
// day-of-month except when the target month is shorter, in which case the
// day clamps to the target month's last day. Jan 31 + 1 month is Feb 28 (or
// 29), never Mar 3: the stdlib AddDate would silently overflow into the
// following month.
func AddMonthsClamped(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	day := t.Day()
	if last := daysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// MonthLabel renders t as a capitalized pt-BR "Month Year" display label.
func MonthLabel(t time.Time) string {
	return monthNames[int(t.Month())-1] + " " + strconv.Itoa(t.Year())
}
