package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goTheNineAPI/internal/user"
)

func TestWeeklyClipsToChallengeAndToday(t *testing.T) {
	// Wednesday, day 10 of a challenge that began on Monday Jan 1.
	f := newFixture(ny(2024, time.January, 10, 12, 0))
	onboarded(t, f, "user_1", "2024-01-01")
	ctx := context.Background()

	view, err := f.challenges.Active(ctx, "user_1")
	require.NoError(t, err)
	cid := view.Challenge.ID
	f.store.seedDay(cid, "2024-01-02", 6)
	f.store.seedDay(cid, "2024-01-03", 4)
	f.store.seedDay(cid, "2024-01-07", 6)
	f.store.seedDay(cid, "2024-01-09", 6)

	week, err := f.stats.Weekly(ctx, "user_1", 0)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-07", week.Period.Start)
	assert.Equal(t, 4, week.TotalDays)
	assert.Equal(t, 2, week.CompletedDays)
	assert.InDelta(t, 50.0, week.CompletionRate, 0.001)

	prev, err := f.stats.Weekly(ctx, "user_1", 1)
	require.NoError(t, err)
	assert.Equal(t, "2023-12-31", prev.Period.Start)
	assert.Equal(t, 6, prev.TotalDays, "Dec 31 falls before the start")
	assert.Equal(t, 1, prev.CompletedDays)

	_, err = f.stats.Weekly(ctx, "user_1", -1)
	assert.ErrorIs(t, err, ErrInvalidMutation)
}

func TestMonthlyAndSummary(t *testing.T) {
	f := newFixture(ny(2024, time.January, 10, 12, 0))
	onboarded(t, f, "user_1", "2024-01-01")
	ctx := context.Background()

	view, err := f.challenges.Active(ctx, "user_1")
	require.NoError(t, err)
	for _, d := range []string{"2024-01-08", "2024-01-09", "2024-01-10"} {
		f.store.seedDay(view.Challenge.ID, d, 6)
	}

	month, err := f.stats.Monthly(ctx, "user_1", 0)
	require.NoError(t, err)
	assert.Equal(t, 10, month.TotalDays)
	assert.Equal(t, 3, month.CompletedDays)
	require.NotNil(t, month.BestWeek)
	assert.Equal(t, "2024-01-07", month.BestWeek.Period.Start)

	sum, err := f.stats.Summary(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, 10, sum.CurrentDay)
	assert.Equal(t, 3, sum.Streak.CurrentStreak)
	assert.Equal(t, 3, sum.ThisWeek.CompletedDays)
	assert.Equal(t, 10, sum.Overall.TotalDays)
}

func TestStatsStartChallengeForNewUser(t *testing.T) {
	f := newFixture(ny(2024, time.March, 1, 12, 0))

	week, err := f.stats.Weekly(context.Background(), "newcomer", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, week.TotalDays)
	assert.Equal(t, 0, week.CompletedDays)
	assert.Len(t, week.Tasks, 6)
}

func TestLeaderboardRanksAcrossTimezones(t *testing.T) {
	// 20:00 in New York is already 10:00 the next morning in Tokyo.
	f := newFixture(ny(2024, time.January, 2, 20, 0))
	ctx := context.Background()

	_, err := f.challenges.Onboard(ctx, "ny", user.OnboardingRequest{DisplayName: "Avery", Timezone: "America/New_York", StartDate: "2024-01-01"})
	require.NoError(t, err)
	_, err = f.challenges.Onboard(ctx, "tokyo", user.OnboardingRequest{DisplayName: "Kei", Timezone: "Asia/Tokyo", StartDate: "2024-01-01"})
	require.NoError(t, err)
	_, err = f.challenges.Onboard(ctx, "idle", user.OnboardingRequest{DisplayName: "Blake", Timezone: "America/New_York", StartDate: "2024-01-02"})
	require.NoError(t, err)

	for _, clerkID := range []string{"ny", "tokyo"} {
		v, err := f.challenges.Active(ctx, clerkID)
		require.NoError(t, err)
		f.store.seedDay(v.Challenge.ID, "2024-01-01", 6)
	}
	tokyo, err := f.challenges.Active(ctx, "tokyo")
	require.NoError(t, err)
	f.store.seedDay(tokyo.Challenge.ID, "2024-01-02", 6)
	f.store.seedDay(tokyo.Challenge.ID, "2024-01-03", 2)

	lb, err := f.leaderboard.Community(ctx, "ny")
	require.NoError(t, err)
	require.Len(t, lb.Entries, 3)
	assert.Equal(t, 3, lb.TotalUsers)

	first := lb.Entries[0]
	assert.Equal(t, "Kei", first.DisplayName)
	assert.Equal(t, 3, first.DayNumber)
	assert.Equal(t, 2, first.TasksToday)
	assert.Equal(t, 2, first.CurrentStreak)

	require.NotNil(t, lb.UserPosition)
	assert.Equal(t, "Avery", lb.UserPosition.DisplayName)
	assert.Equal(t, 2, lb.UserPosition.Rank)
	assert.Equal(t, 2, lb.UserPosition.DayNumber)
	assert.Equal(t, 1, lb.UserPosition.CurrentStreak)

	assert.Equal(t, "Blake", lb.Entries[2].DisplayName)
	assert.Equal(t, 3, lb.Entries[2].Rank)
}
