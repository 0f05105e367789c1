// Package common holds small helpers used across the project:
// Spanish pluralization, number formatting and calendar-day arithmetic.
package common

import (
	"fmt"
	"time"
)

// PluralizeDays returns "día" or "días" for n.
//
// Examples:
//
//	PluralizeDays(1)  → "día"
//	PluralizeDays(0)  → "días"
//	PluralizeDays(21) → "días"
func PluralizeDays(n int) string {
	if n == 1 || n == -1 {
		return "día"
	}
	return "días"
}

// PluralizePoints returns "punto" or "puntos" for n.
func PluralizePoints(n int64) string {
	if n == 1 || n == -1 {
		return "punto"
	}
	return "puntos"
}

// FormatPoints renders a points amount, e.g. FormatPoints(150) → "150 puntos".
func FormatPoints(n int64) string {
	return fmt.Sprintf("%d %s", n, PluralizePoints(n))
}

// DateOnly truncates t to midnight of its calendar day in loc.
// A nil loc keeps t's own location.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DateOnly(a, loc).Equal(DateOnly(b, loc))
}

// Yesterday returns midnight of the day before t's calendar day in loc.
// AddDate keeps this correct across DST changes.
func Yesterday(t time.Time, loc *time.Location) time.Time {
	return DateOnly(t, loc).AddDate(0, 0, -1)
}

// FormatDateTime renders t as "02/01/2006 15:04" in loc.
// Used for ledger history lines.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02/01/2006 15:04")
}
