// Package calendar lays out the 75 days of a challenge with a display status
// for each day.
package calendar

import (
	"goTheNineAPI/internal/challenge"
	"goTheNineAPI/internal/clock"
	"goTheNineAPI/internal/progress"
	"goTheNineAPI/internal/task"
)

type Status string

const (
	StatusToday      Status = "today"
	StatusFuture     Status = "future"
	StatusComplete   Status = "complete"
	StatusPartial    Status = "partial"
	StatusIncomplete Status = "incomplete"
)

// DayProgress is what the calendar needs to know about a recorded day.
type DayProgress struct {
	Completed      bool `json:"completed"`
	TasksCompleted int  `json:"tasks_completed"`
}

type Day struct {
	DayNumber      int    `json:"day_number"`
	Date           string `json:"date"`
	Status         Status `json:"status"`
	TasksCompleted int    `json:"tasks_completed"`
	TotalTasks     int    `json:"total_tasks"`
	Hidden         bool   `json:"hidden"`
}

type Response struct {
	StartDate  string `json:"start_date"`
	CurrentDay int    `json:"current_day"`
	Days       []Day  `json:"days"`
}

// StatusFor derives the status of one day. Rules are checked in order and
// the first match wins. A record with zero tasks has no separate "skipped"
// marker in the data, so it reads as incomplete.
func StatusFor(dayNumber, currentDay int, info DayProgress, hasRecord bool) Status {
	switch {
	case dayNumber == currentDay:
		return StatusToday
	case dayNumber > currentDay:
		return StatusFuture
	case !hasRecord:
		return StatusIncomplete
	case info.TasksCompleted >= task.Total:
		return StatusComplete
	case info.TasksCompleted > 0:
		return StatusPartial
	default:
		return StatusIncomplete
	}
}

// Generate returns one entry per challenge day. It is a pure function of its
// inputs.
func Generate(startDate string, byDay map[int]DayProgress, today string) ([]Day, error) {
	current, err := challenge.DayNumber(startDate, today)
	if err != nil {
		return nil, err
	}

	days := make([]Day, 0, challenge.Length)
	for n := 1; n <= challenge.Length; n++ {
		date, err := clock.AddDays(startDate, n-1)
		if err != nil {
			return nil, err
		}
		info, ok := byDay[n]
		days = append(days, Day{
			DayNumber:      n,
			Date:           date,
			Status:         StatusFor(n, current, info, ok),
			TasksCompleted: info.TasksCompleted,
			TotalTasks:     task.Total,
			Hidden:         n > current,
		})
	}
	return days, nil
}

// ByDay indexes progress records by day number relative to startDate.
// Records outside the challenge span are ignored.
func ByDay(startDate string, records []*progress.DailyProgress) map[int]DayProgress {
	out := make(map[int]DayProgress, len(records))
	for _, p := range records {
		diff, err := clock.DaysBetween(startDate, p.Date)
		if err != nil {
			continue
		}
		n := diff + 1
		if n < 1 || n > challenge.Length {
			continue
		}
		out[n] = DayProgress{Completed: p.IsComplete, TasksCompleted: p.TasksCompleted}
	}
	return out
}
