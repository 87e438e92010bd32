package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodayUsesLocalCalendar(t *testing.T) {
	ny, err := LoadLocation("America/New_York")
	require.NoError(t, err)

	// 03:30 UTC on Jan 2 is still Jan 1 in New York.
	now := time.Date(2024, 1, 2, 3, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-01", Today(now, ny))
	assert.Equal(t, "2024-01-02", Today(now, time.UTC))
}

func TestLoadLocationDefaultsAndRejects(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimezone, loc.String())

	_, err = LoadLocation("Mars/Olympus_Mons")
	assert.Error(t, err)

	assert.Equal(t, DefaultTimezone, MustLocation("Mars/Olympus_Mons").String())
}

func TestDaysBetweenAcrossDST(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"2024-03-09", "2024-03-10", 1},
		{"2024-03-10", "2024-03-11", 1},
		{"2024-11-02", "2024-11-03", 1},
		{"2024-11-03", "2024-11-04", 1},
		{"2024-01-01", "2024-03-14", 73},
		{"2024-01-10", "2024-01-01", -9},
	}
	for _, tc := range cases {
		got, err := DaysBetween(tc.a, tc.b)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s -> %s", tc.a, tc.b)
	}
}

func TestAddDaysAndWeekday(t *testing.T) {
	d, err := AddDays("2024-01-01", 74)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", d)

	wd, err := Weekday("2024-01-07")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, wd)

	_, err = AddDays("not-a-date", 1)
	assert.Error(t, err)
	assert.False(t, ValidDate("2024-02-30"))
}
