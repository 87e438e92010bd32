package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goTheNineAPI/internal/calendar"
	"goTheNineAPI/internal/optimistic"
	"goTheNineAPI/internal/progress"
	"goTheNineAPI/internal/streak"
	"goTheNineAPI/internal/task"
	"goTheNineAPI/internal/user"
)

func onboarded(t *testing.T, f *fixture, clerkID, start string) {
	t.Helper()
	_, err := f.challenges.Onboard(context.Background(), clerkID, user.OnboardingRequest{StartDate: start, DisplayName: clerkID})
	require.NoError(t, err)
}

func TestToggleFiveSixFive(t *testing.T) {
	f := newFixture(ny(2024, time.January, 1, 18, 0))
	onboarded(t, f, "user_1", "2024-01-01")
	ctx := context.Background()

	ids := task.IDs()
	for _, id := range ids[:5] {
		_, err := f.progress.ToggleTask(ctx, "user_1", "today", id, true)
		require.NoError(t, err)
	}
	day, err := f.progress.Day(ctx, "user_1", "today")
	require.NoError(t, err)
	assert.Equal(t, 5, day.Progress.TasksCompleted)
	assert.False(t, day.Progress.IsComplete)

	res, err := f.progress.ToggleTask(ctx, "user_1", "today", ids[5], true)
	require.NoError(t, err)
	assert.Equal(t, optimistic.Confirmed, res.State)
	assert.Equal(t, 6, res.Progress.TasksCompleted)
	assert.True(t, res.Progress.IsComplete)
	assert.Equal(t, 1, res.DayNumber)

	res, err = f.progress.ToggleTask(ctx, "user_1", "2024-01-01", ids[2], false)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Progress.TasksCompleted)
	assert.False(t, res.Progress.IsComplete)
}

func TestTogglePublishesRealtimeEvent(t *testing.T) {
	f := newFixture(ny(2024, time.January, 2, 18, 0))
	onboarded(t, f, "user_1", "2024-01-01")

	_, err := f.progress.ToggleTask(context.Background(), "user_1", "", task.Water, true)
	require.NoError(t, err)

	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "user_1", events[0].DisplayName)
	assert.Equal(t, 2, events[0].DayNumber)
	assert.Equal(t, 1, events[0].TasksCompleted)
}

func TestToggleRejectsBadInput(t *testing.T) {
	f := newFixture(ny(2024, time.January, 5, 18, 0))
	ctx := context.Background()

	_, err := f.progress.ToggleTask(ctx, "user_1", "today", task.Diet, true)
	assert.ErrorIs(t, err, ErrNoActiveChallenge)

	onboarded(t, f, "user_1", "2024-01-01")

	_, err = f.progress.ToggleTask(ctx, "user_1", "today", "meditation", true)
	assert.ErrorIs(t, err, ErrUnknownTask)

	_, err = f.progress.ToggleTask(ctx, "user_1", "2024-01-06", task.Diet, true)
	assert.ErrorIs(t, err, ErrInvalidDate, "future day")

	_, err = f.progress.ToggleTask(ctx, "user_1", "2023-12-31", task.Diet, true)
	assert.ErrorIs(t, err, ErrInvalidDate, "before start")

	_, err = f.progress.ToggleTask(ctx, "user_1", "01/05/2024", task.Diet, true)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestToggleRollsBackOnWriteFailure(t *testing.T) {
	f := newFixture(ny(2024, time.January, 1, 18, 0))
	onboarded(t, f, "user_1", "2024-01-01")
	ctx := context.Background()

	_, err := f.progress.ToggleTask(ctx, "user_1", "today", task.Reading, true)
	require.NoError(t, err)

	f.store.mutateHook = func() error { return errors.New("connection reset") }
	res, err := f.progress.ToggleTask(ctx, "user_1", "today", task.Water, true)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, optimistic.RolledBack, res.State)
	assert.Equal(t, 1, res.Progress.TasksCompleted)
	assert.False(t, res.Progress.Tasks[task.Water].Completed)
	assert.True(t, res.Progress.Tasks[task.Reading].Completed)

	f.store.mutateHook = nil
	day, err := f.progress.Day(ctx, "user_1", "today")
	require.NoError(t, err)
	assert.Equal(t, 1, day.Progress.TasksCompleted)
}

func TestSecondToggleWhileInFlightIsRejected(t *testing.T) {
	f := newFixture(ny(2024, time.January, 1, 18, 0))
	onboarded(t, f, "user_1", "2024-01-01")
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.store.mutateHook = func() error {
		once.Do(func() {
			close(entered)
			<-release
		})
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.progress.ToggleTask(ctx, "user_1", "today", task.Diet, true)
		done <- err
	}()
	<-entered

	_, err := f.progress.ToggleTask(ctx, "user_1", "today", task.Diet, false)
	assert.ErrorIs(t, err, ErrToggleInFlight)

	// other tasks are not blocked
	_, err = f.progress.ToggleTask(ctx, "user_1", "today", task.Water, true)
	assert.NoError(t, err)

	close(release)
	require.NoError(t, <-done)

	_, err = f.progress.ToggleTask(ctx, "user_1", "today", task.Diet, false)
	assert.NoError(t, err)
}

func TestUpdateDetailsKeepsCompletion(t *testing.T) {
	f := newFixture(ny(2024, time.January, 1, 18, 0))
	onboarded(t, f, "user_1", "2024-01-01")
	ctx := context.Background()

	_, err := f.progress.ToggleTask(ctx, "user_1", "today", task.WorkoutOutdoor, true)
	require.NoError(t, err)

	minutes := 50
	notes := "hill sprints"
	p, err := f.progress.UpdateDetails(ctx, "user_1", "today", task.WorkoutOutdoor, progress.Details{DurationMinutes: &minutes, Notes: &notes})
	require.NoError(t, err)

	st := p.Tasks[task.WorkoutOutdoor]
	assert.True(t, st.Completed)
	assert.Equal(t, 50, *st.DurationMinutes)
	assert.Equal(t, "hill sprints", *st.Notes)

	_, err = f.progress.UpdateDetails(ctx, "user_1", "today", task.WorkoutOutdoor, progress.Details{})
	assert.ErrorIs(t, err, ErrInvalidMutation)

	negative := -5
	_, err = f.progress.UpdateDetails(ctx, "user_1", "today", task.WorkoutOutdoor, progress.Details{DurationMinutes: &negative})
	assert.ErrorIs(t, err, ErrInvalidMutation)
}

func TestCalendarAndStreakScenario(t *testing.T) {
	f := newFixture(ny(2024, time.January, 10, 20, 0))
	onboarded(t, f, "user_1", "2024-01-01")
	ctx := context.Background()

	view, err := f.challenges.Active(ctx, "user_1")
	require.NoError(t, err)
	cid := view.Challenge.ID

	for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-06", "2024-01-07", "2024-01-09", "2024-01-10"} {
		f.store.seedDay(cid, d, 6)
	}

	cal, err := f.progress.Calendar(ctx, "user_1")
	require.NoError(t, err)
	require.Len(t, cal.Days, 75)
	assert.Equal(t, 10, cal.CurrentDay)
	assert.Equal(t, calendar.StatusComplete, cal.Days[0].Status)
	assert.Equal(t, calendar.StatusIncomplete, cal.Days[7].Status)
	assert.Equal(t, calendar.StatusToday, cal.Days[9].Status)
	assert.Equal(t, calendar.StatusFuture, cal.Days[10].Status)
	assert.True(t, cal.Days[10].Hidden)

	assert.Equal(t, 2, cal.Streak.CurrentStreak)
	assert.Equal(t, 7, cal.Streak.LongestStreak)
	assert.Equal(t, 9, cal.Streak.TotalCompletedDays)

	sv, err := f.progress.Streak(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, cal.Streak, sv.Overall)
	assert.Len(t, sv.Tasks, 6)
	assert.Equal(t, 7, sv.Tasks[task.Reading].LongestStreak)
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []int
}

func (r *recordingNotifier) DayCompleted(_ context.Context, _ *user.Profile, dayNumber int, _ *progress.DailyProgress, _ streak.Data) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, dayNumber)
}

func TestDayCompleteNotifiedOnce(t *testing.T) {
	f := newFixture(ny(2024, time.January, 3, 18, 0))
	onboarded(t, f, "user_1", "2024-01-01")
	n := &recordingNotifier{}
	f.progress.SetNotifier(n)
	ctx := context.Background()

	for _, id := range task.IDs() {
		_, err := f.progress.ToggleTask(ctx, "user_1", "today", id, true)
		require.NoError(t, err)
	}
	// already complete: a details edit or re-toggle does not notify again
	_, err := f.progress.ToggleTask(ctx, "user_1", "today", task.Diet, true)
	require.NoError(t, err)

	assert.Equal(t, []int{3}, n.calls)
}

func TestPhotoUploadCompletesPhotoTask(t *testing.T) {
	f := newFixture(ny(2024, time.January, 2, 18, 0))
	onboarded(t, f, "user_1", "2024-01-01")
	ctx := context.Background()

	p, err := f.photos.Upload(ctx, "user_1", "2024-01-01", []byte("jpeg"))
	require.NoError(t, err)
	st := p.Tasks[task.ProgressPhoto]
	assert.True(t, st.Completed)
	require.NotNil(t, st.PhotoURL)
	assert.Equal(t, 1, p.TasksCompleted)

	gallery, err := f.photos.Gallery(ctx, "user_1")
	require.NoError(t, err)
	require.Len(t, gallery, 1)
	assert.Equal(t, 1, gallery[0].DayNumber)
	assert.Contains(t, gallery[0].ThumbnailURL, "_thumb.jpg")
}

func TestPhotoUploadStorageFailureLeavesDayUntouched(t *testing.T) {
	f := newFixture(ny(2024, time.January, 2, 18, 0))
	onboarded(t, f, "user_1", "2024-01-01")
	f.photos = NewPhotoService(f.accounts, f.store, &fakePhotos{err: errors.New("bucket gone")}, f.progress)

	_, err := f.photos.Upload(context.Background(), "user_1", "today", []byte("jpeg"))
	require.Error(t, err)

	day, err := f.progress.Day(context.Background(), "user_1", "today")
	require.NoError(t, err)
	assert.False(t, day.Progress.Tasks[task.ProgressPhoto].Completed)
}

func TestPhotoUploadWriteFailureRemovesStoredObjects(t *testing.T) {
	f := newFixture(ny(2024, time.January, 2, 18, 0))
	onboarded(t, f, "user_1", "2024-01-01")
	f.store.mutateHook = func() error { return errors.New("connection reset") }

	_, err := f.photos.Upload(context.Background(), "user_1", "today", []byte("jpeg"))
	require.Error(t, err)

	deleted := f.photoStore.Deleted()
	require.Len(t, deleted, 2)
	assert.Contains(t, deleted[1], "_thumb.jpg")
}

func TestPhotoReplaceRemovesPreviousObjects(t *testing.T) {
	f := newFixture(ny(2024, time.January, 2, 18, 0))
	onboarded(t, f, "user_1", "2024-01-01")
	ctx := context.Background()

	first, err := f.photos.Upload(ctx, "user_1", "2024-01-01", []byte("jpeg"))
	require.NoError(t, err)
	assert.Empty(t, f.photoStore.Deleted())

	second, err := f.photos.Upload(ctx, "user_1", "2024-01-01", []byte("jpeg"))
	require.NoError(t, err)

	old := first.Tasks[task.ProgressPhoto]
	assert.Equal(t, []string{*old.PhotoURL, *old.ThumbnailURL}, f.photoStore.Deleted())
	assert.NotEqual(t, *old.PhotoURL, *second.Tasks[task.ProgressPhoto].PhotoURL)
}
