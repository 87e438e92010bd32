// Package streak derives streak statistics from daily completion records.
package streak

import (
	"sort"

	"goTheNineAPI/internal/clock"
	"goTheNineAPI/internal/progress"
	"goTheNineAPI/internal/task"
)

// Record is the minimal view of a day needed for streaks.
type Record struct {
	Date     string
	Complete bool
}

type Data struct {
	CurrentStreak      int     `json:"current_streak"`
	LongestStreak      int     `json:"longest_streak"`
	LongestStreakStart string  `json:"longest_streak_start,omitempty"`
	TotalCompletedDays int     `json:"total_completed_days"`
	CompletionRate     float64 `json:"completion_rate"`
	IsActiveStreak     bool    `json:"is_active_streak"`
	LastCompletedDate  string  `json:"last_completed_date,omitempty"`
}

// Compute walks the records once in date order. A run of complete days is
// broken by an incomplete record or by any missing calendar day between two
// records. The current streak is the run ending at the last completed date,
// counted only if that date is today or yesterday.
func Compute(records []Record, today string) Data {
	sorted := normalize(records)

	var (
		d            Data
		running      int
		runStart     string
		prevDate     string
		runAtLast    int
		totalRecords = len(sorted)
	)

	for _, r := range sorted {
		switch {
		case !r.Complete:
			running = 0
		case running > 0 && consecutive(prevDate, r.Date):
			running++
		default:
			running = 1
			runStart = r.Date
		}

		if r.Complete {
			d.TotalCompletedDays++
			d.LastCompletedDate = r.Date
			runAtLast = running
		}
		if running > d.LongestStreak {
			d.LongestStreak = running
			d.LongestStreakStart = runStart
		}
		prevDate = r.Date
	}

	if totalRecords > 0 {
		d.CompletionRate = percent(d.TotalCompletedDays, totalRecords)
	}

	if d.LastCompletedDate != "" {
		if gap, err := clock.DaysBetween(d.LastCompletedDate, today); err == nil && gap >= 0 && gap <= 1 {
			d.CurrentStreak = runAtLast
			d.IsActiveStreak = true
		}
	}

	return d
}

// FromProgress projects whole-day completion.
func FromProgress(days []*progress.DailyProgress) []Record {
	out := make([]Record, 0, len(days))
	for _, p := range days {
		out = append(out, Record{Date: p.Date, Complete: p.IsComplete})
	}
	return out
}

// ForTask projects the completion of a single task.
func ForTask(days []*progress.DailyProgress, id task.ID) []Record {
	out := make([]Record, 0, len(days))
	for _, p := range days {
		out = append(out, Record{Date: p.Date, Complete: p.Tasks[id].Completed})
	}
	return out
}

// normalize drops unparseable dates, sorts by date and keeps the last record
// for a repeated date.
func normalize(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if clock.ValidDate(r.Date) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	dedup := out[:0]
	for i, r := range out {
		if i+1 < len(out) && out[i+1].Date == r.Date {
			continue
		}
		dedup = append(dedup, r)
	}
	return dedup
}

func consecutive(prev, next string) bool {
	if prev == "" {
		return false
	}
	gap, err := clock.DaysBetween(prev, next)
	return err == nil && gap == 1
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
