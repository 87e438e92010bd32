package notification

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// ParseClock parses "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// Validate checks every non-empty clock field. Quiet hours need both ends
// or neither.
func (p Preferences) Validate() error {
	for name, v := range map[string]string{
		"morning_reminder":  p.MorningReminder,
		"evening_reminder":  p.EveningReminder,
		"streak_reminder":   p.StreakReminder,
		"quiet_hours_start": p.QuietHoursStart,
		"quiet_hours_end":   p.QuietHoursEnd,
	} {
		if v == "" {
			continue
		}
		if _, err := ParseClock(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if (p.QuietHoursStart == "") != (p.QuietHoursEnd == "") {
		return fmt.Errorf("quiet hours need both start and end")
	}
	return nil
}

// InQuietHours reports whether minute lies in [start, end), wrapping past
// midnight when end <= start.
func (p Preferences) InQuietHours(minute int) bool {
	if p.QuietHoursStart == "" || p.QuietHoursEnd == "" {
		return false
	}
	start, err := ParseClock(p.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := ParseClock(p.QuietHoursEnd)
	if err != nil {
		return false
	}
	if start == end {
		return false
	}
	if start < end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

// DueReminders returns the reminder kinds whose configured time falls in
// [pref, pref+window) of the user's local clock.
func DueReminders(p Preferences, localNow time.Time, window time.Duration) []Kind {
	if window <= 0 {
		window = time.Minute
	}
	now := localNow.Hour()*60 + localNow.Minute()
	span := int(window / time.Minute)
	if span < 1 {
		span = 1
	}

	var due []Kind
	for _, r := range []struct {
		kind Kind
		at   string
	}{
		{KindMorningReminder, p.MorningReminder},
		{KindEveningReminder, p.EveningReminder},
		{KindStreakReminder, p.StreakReminder},
	} {
		if r.at == "" {
			continue
		}
		at, err := ParseClock(r.at)
		if err != nil {
			continue
		}
		elapsed := (now - at + minutesPerDay) % minutesPerDay
		if elapsed >= span {
			continue
		}
		if p.InQuietHours(at) {
			continue
		}
		due = append(due, r.kind)
	}
	return due
}
