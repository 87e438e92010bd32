package leaderboard

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(name string, streak, today, day int) *Entry {
	return &Entry{UserID: uuid.New(), DisplayName: name, CurrentStreak: streak, TasksToday: today, DayNumber: day}
}

func names(es []*Entry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.DisplayName
	}
	return out
}

func TestRankOrdering(t *testing.T) {
	es := []*Entry{
		entry("dana", 3, 6, 10),
		entry("ana", 10, 2, 12),
		entry("cam", 3, 6, 14),
		entry("bo", 3, 4, 20),
	}
	Rank(es)

	assert.Equal(t, []string{"ana", "cam", "dana", "bo"}, names(es))
	assert.Equal(t, []int{1, 2, 3, 4}, []int{es[0].Rank, es[1].Rank, es[2].Rank, es[3].Rank})
}

func TestRankTiesShareRankAndSkip(t *testing.T) {
	es := []*Entry{
		entry("zed", 5, 3, 8),
		entry("amy", 5, 3, 8),
		entry("kim", 1, 0, 2),
	}
	Rank(es)

	assert.Equal(t, []string{"amy", "zed", "kim"}, names(es))
	assert.Equal(t, 1, es[0].Rank)
	assert.Equal(t, 1, es[1].Rank)
	assert.Equal(t, 3, es[2].Rank)
}

func TestBuildFindsCallerBeyondLimit(t *testing.T) {
	es := []*Entry{entry("a", 9, 0, 1), entry("b", 8, 0, 1), entry("c", 1, 0, 1)}
	caller := es[2].UserID

	lb := Build(es, caller, 2)
	require.NotNil(t, lb.UserPosition)
	assert.Equal(t, 3, lb.UserPosition.Rank)
	assert.Len(t, lb.Entries, 2)
	assert.Equal(t, 3, lb.TotalUsers)
}

func TestBuildEmpty(t *testing.T) {
	lb := Build(nil, uuid.New(), 50)
	assert.NotNil(t, lb.Entries)
	assert.Nil(t, lb.UserPosition)
	assert.Zero(t, lb.TotalUsers)
}
