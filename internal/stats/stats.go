// Package stats computes weekly and monthly completion rollups for a
// challenge.
package stats

import (
	"fmt"
	"time"

	"goTheNineAPI/internal/clock"
	"goTheNineAPI/internal/progress"
	"goTheNineAPI/internal/streak"
	"goTheNineAPI/internal/task"
)

// Period is an inclusive range of calendar dates.
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type TaskRollup struct {
	TaskID         task.ID `json:"task_id"`
	CompletedDays  int     `json:"completed_days"`
	CompletionRate float64 `json:"completion_rate"`
	CurrentStreak  int     `json:"current_streak"`
	LongestStreak  int     `json:"longest_streak"`
}

type Rollup struct {
	Period         Period       `json:"period"`
	CompletedDays  int          `json:"completed_days"`
	TotalDays      int          `json:"total_days"`
	CompletionRate float64      `json:"completion_rate"`
	Tasks          []TaskRollup `json:"tasks"`
}

type WeekRef struct {
	Index  int     `json:"index"`
	Period Period  `json:"period"`
	Rate   float64 `json:"completion_rate"`
}

type MonthRollup struct {
	Rollup
	Weeks     []Rollup `json:"weeks"`
	BestWeek  *WeekRef `json:"best_week,omitempty"`
	WorstWeek *WeekRef `json:"worst_week,omitempty"`
}

// WeekRange returns the Sunday-start week containing today, shifted back by
// offset weeks.
func WeekRange(today string, offset int) (Period, error) {
	t, err := clock.ParseDate(today)
	if err != nil {
		return Period{}, err
	}
	if offset < 0 {
		return Period{}, fmt.Errorf("offset must not be negative")
	}
	start := t.AddDate(0, 0, -int(t.Weekday())-7*offset)
	return Period{
		Start: start.Format(clock.DateLayout),
		End:   start.AddDate(0, 0, 6).Format(clock.DateLayout),
	}, nil
}

// MonthRange returns the calendar month containing today, shifted back by
// offset months.
func MonthRange(today string, offset int) (Period, error) {
	t, err := clock.ParseDate(today)
	if err != nil {
		return Period{}, err
	}
	if offset < 0 {
		return Period{}, fmt.Errorf("offset must not be negative")
	}
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -offset, 0)
	return Period{
		Start: first.Format(clock.DateLayout),
		End:   first.AddDate(0, 1, -1).Format(clock.DateLayout),
	}, nil
}

// Compute rolls up the records that fall inside period. Only days that are
// both inside the challenge span and not after today count toward the total.
func Compute(records []*progress.DailyProgress, period, span Period, today string) (Rollup, error) {
	r := Rollup{Period: period}

	from := maxDate(period.Start, span.Start)
	to := minDate(minDate(period.End, span.End), today)

	if from > to {
		r.Tasks = emptyTasks()
		return r, nil
	}

	diff, err := clock.DaysBetween(from, to)
	if err != nil {
		return Rollup{}, err
	}
	r.TotalDays = diff + 1

	var inWindow []*progress.DailyProgress
	for _, p := range records {
		if p.Date >= from && p.Date <= to {
			inWindow = append(inWindow, p)
			if p.IsComplete {
				r.CompletedDays++
			}
		}
	}
	r.CompletionRate = percent(r.CompletedDays, r.TotalDays)

	r.Tasks = make([]TaskRollup, 0, task.Total)
	for _, id := range task.IDs() {
		s := streak.Compute(streak.ForTask(inWindow, id), to)
		r.Tasks = append(r.Tasks, TaskRollup{
			TaskID:         id,
			CompletedDays:  s.TotalCompletedDays,
			CompletionRate: percent(s.TotalCompletedDays, r.TotalDays),
			CurrentStreak:  s.CurrentStreak,
			LongestStreak:  s.LongestStreak,
		})
	}
	return r, nil
}

// Monthly rolls up a month and each of its Sunday-start weeks, clipped to
// the month. Best and worst weeks consider only weeks with counted days;
// ties go to the earlier week.
func Monthly(records []*progress.DailyProgress, month, span Period, today string) (MonthRollup, error) {
	whole, err := Compute(records, month, span, today)
	if err != nil {
		return MonthRollup{}, err
	}
	out := MonthRollup{Rollup: whole}

	weeks, err := weeksOf(month)
	if err != nil {
		return MonthRollup{}, err
	}

	for i, w := range weeks {
		wr, err := Compute(records, w, span, today)
		if err != nil {
			return MonthRollup{}, err
		}
		out.Weeks = append(out.Weeks, wr)

		if wr.TotalDays == 0 {
			continue
		}
		ref := &WeekRef{Index: i, Period: w, Rate: wr.CompletionRate}
		if out.BestWeek == nil || wr.CompletionRate > out.BestWeek.Rate {
			out.BestWeek = ref
		}
		if out.WorstWeek == nil || wr.CompletionRate < out.WorstWeek.Rate {
			out.WorstWeek = ref
		}
	}
	return out, nil
}

func weeksOf(month Period) ([]Period, error) {
	start, err := clock.ParseDate(month.Start)
	if err != nil {
		return nil, err
	}
	end, err := clock.ParseDate(month.End)
	if err != nil {
		return nil, err
	}

	var weeks []Period
	for cur := start; !cur.After(end); {
		weekEnd := cur.AddDate(0, 0, 6-int(cur.Weekday()))
		if weekEnd.After(end) {
			weekEnd = end
		}
		weeks = append(weeks, Period{
			Start: cur.Format(clock.DateLayout),
			End:   weekEnd.Format(clock.DateLayout),
		})
		cur = weekEnd.AddDate(0, 0, 1)
	}
	return weeks, nil
}

func emptyTasks() []TaskRollup {
	out := make([]TaskRollup, 0, task.Total)
	for _, id := range task.IDs() {
		out = append(out, TaskRollup{TaskID: id})
	}
	return out
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// Dates are YYYY-MM-DD so lexical order is calendar order.
func maxDate(a, b string) string {
	if a > b {
		return a
	}
	return b
}

func minDate(a, b string) string {
	if a < b {
		return a
	}
	return b
}
