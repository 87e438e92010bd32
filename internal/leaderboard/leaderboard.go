package leaderboard

import (
	"sort"

	"github.com/google/uuid"
)

type Entry struct {
	UserID          uuid.UUID `json:"user_id"`
	DisplayName     string    `json:"display_name"`
	AvatarURL       *string   `json:"avatar_url"`
	DayNumber       int       `json:"day_number"`
	TasksToday      int       `json:"tasks_today"`
	IsCompleteToday bool      `json:"is_complete_today"`
	CurrentStreak   int       `json:"current_streak"`
	LongestStreak   int       `json:"longest_streak"`
	Rank            int       `json:"rank"`
}

type Leaderboard struct {
	Entries      []*Entry `json:"entries"`
	UserPosition *Entry   `json:"user_position"`
	TotalUsers   int      `json:"total_users"`
}

// less orders by current streak, tasks done today, day number (all
// descending), then name.
func less(a, b *Entry) bool {
	if a.CurrentStreak != b.CurrentStreak {
		return a.CurrentStreak > b.CurrentStreak
	}
	if a.TasksToday != b.TasksToday {
		return a.TasksToday > b.TasksToday
	}
	if a.DayNumber != b.DayNumber {
		return a.DayNumber > b.DayNumber
	}
	return a.DisplayName < b.DisplayName
}

func tied(a, b *Entry) bool {
	return a.CurrentStreak == b.CurrentStreak && a.TasksToday == b.TasksToday && a.DayNumber == b.DayNumber
}

// Rank sorts entries in place and assigns ranks. Entries that differ only by
// name share a rank and the next rank skips, like SQL RANK().
func Rank(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool { return less(entries[i], entries[j]) })
	for i, e := range entries {
		if i > 0 && tied(entries[i-1], e) {
			e.Rank = entries[i-1].Rank
			continue
		}
		e.Rank = i + 1
	}
}

// Build ranks entries and picks out the caller. limit <= 0 keeps all.
func Build(entries []*Entry, caller uuid.UUID, limit int) Leaderboard {
	Rank(entries)

	lb := Leaderboard{Entries: entries, TotalUsers: len(entries)}
	for _, e := range entries {
		if e.UserID == caller {
			lb.UserPosition = e
			break
		}
	}
	if limit > 0 && len(entries) > limit {
		lb.Entries = entries[:limit]
	}
	if lb.Entries == nil {
		lb.Entries = []*Entry{}
	}
	return lb
}
