// Package clock resolves "today" for a user. Every date in the system is a
// civil YYYY-MM-DD string in the user's IANA timezone; day arithmetic is done
// on civil dates, never by subtracting instants, so DST shifts cannot skip or
// repeat a day.
package clock

import (
	"fmt"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	DefaultTimezone = "America/New_York"
)

type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed always reports the same instant. Used by tests and by replay of
// queued mutations that carry their own timestamp.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time { return f.At }

// LoadLocation resolves an IANA name, treating "" as the default zone.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// MustLocation is LoadLocation that falls back to the default zone instead of
// failing. Stored profiles are validated on write, so this only guards
// against legacy rows.
func MustLocation(tz string) *time.Location {
	loc, err := LoadLocation(tz)
	if err != nil {
		loc, _ = time.LoadLocation(DefaultTimezone)
	}
	return loc
}

// Today formats now as a calendar date in loc.
func Today(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(DateLayout)
}

// ParseDate parses a civil date. The result is midnight UTC, which is only
// meaningful for calendar arithmetic.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t, nil
}

func ValidDate(date string) bool {
	_, err := ParseDate(date)
	return err == nil
}

// DaysBetween returns b - a in whole calendar days.
func DaysBetween(a, b string) (int, error) {
	ta, err := ParseDate(a)
	if err != nil {
		return 0, err
	}
	tb, err := ParseDate(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}

func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// FormatDate renders the civil date of t as seen in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Weekday of a civil date.
func Weekday(date string) (time.Weekday, error) {
	t, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return t.Weekday(), nil
}
