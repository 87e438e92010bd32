package challenge

import (
	"time"

	"github.com/google/uuid"

	"goTheNineAPI/internal/clock"
)

// Length is the number of days in a challenge.
const Length = 75

const DefaultName = "75 Hard"

type Challenge struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	StartDate string    `json:"start_date" db:"start_date"`
	EndDate   string    `json:"end_date" db:"end_date"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// New builds an active challenge starting on startDate.
func New(userID uuid.UUID, name, startDate string) (*Challenge, error) {
	end, err := EndDate(startDate)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = DefaultName
	}
	return &Challenge{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		StartDate: startDate,
		EndDate:   end,
		IsActive:  true,
		CreatedAt: time.Now(),
	}, nil
}

func EndDate(startDate string) (string, error) {
	return clock.AddDays(startDate, Length-1)
}

// DayNumber is the 1-based day of today within a challenge that started on
// startDate, clamped to [1, Length].
func DayNumber(startDate, today string) (int, error) {
	diff, err := clock.DaysBetween(startDate, today)
	if err != nil {
		return 0, err
	}
	return clamp(diff + 1), nil
}

func clamp(day int) int {
	if day < 1 {
		return 1
	}
	if day > Length {
		return Length
	}
	return day
}

// CurrentDay resolves today in loc and returns its day number.
func (c *Challenge) CurrentDay(now time.Time, loc *time.Location) (int, error) {
	return DayNumber(c.StartDate, clock.Today(now, loc))
}

// DateForDay returns the calendar date of a 1-based day number.
func (c *Challenge) DateForDay(day int) (string, error) {
	return clock.AddDays(c.StartDate, day-1)
}

// Contains reports whether date falls inside the challenge span.
func (c *Challenge) Contains(date string) bool {
	return date >= c.StartDate && date <= c.EndDate
}

// DayOf returns the unclamped day number of date; callers check Contains
// first when the distinction matters.
func (c *Challenge) DayOf(date string) (int, error) {
	diff, err := clock.DaysBetween(c.StartDate, date)
	if err != nil {
		return 0, err
	}
	return diff + 1, nil
}
