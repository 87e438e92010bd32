package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goTheNineAPI/internal/notification"
	"goTheNineAPI/internal/task"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestPreferencesDefaultAndUpdate(t *testing.T) {
	f := newFixture(ny(2024, time.January, 1, 9, 0))
	ctx := context.Background()

	prefs, err := f.notifications.Preferences(ctx, "user_1")
	require.NoError(t, err)
	assert.True(t, prefs.PushEnabled)
	assert.Equal(t, "07:00", prefs.MorningReminder)
	assert.Equal(t, "20:00", prefs.EveningReminder)

	updated, err := f.notifications.UpdatePreferences(ctx, "user_1", notification.UpdatePreferencesRequest{
		MorningReminder: strPtr("06:30"),
		StreakReminder:  strPtr(""),
		QuietHoursStart: strPtr("22:00"),
		QuietHoursEnd:   strPtr("06:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "06:30", updated.MorningReminder)
	assert.Equal(t, "", updated.StreakReminder)

	again, err := f.notifications.Preferences(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "06:30", again.MorningReminder)
	assert.Equal(t, "22:00", again.QuietHoursStart)

	_, err = f.notifications.UpdatePreferences(ctx, "user_1", notification.UpdatePreferencesRequest{EveningReminder: strPtr("25:00")})
	assert.ErrorIs(t, err, ErrInvalidPreferences)

	kept, err := f.notifications.Preferences(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "20:00", kept.EveningReminder)
}

func TestRegisterDeviceReplacesSameToken(t *testing.T) {
	f := newFixture(ny(2024, time.January, 1, 9, 0))
	ctx := context.Background()

	require.NoError(t, f.notifications.RegisterDevice(ctx, "user_1", notification.RegisterDeviceRequest{Token: "tok", Platform: "ios"}))
	require.NoError(t, f.notifications.RegisterDevice(ctx, "user_1", notification.RegisterDeviceRequest{Token: "tok", Platform: "android"}))
	require.NoError(t, f.notifications.RegisterDevice(ctx, "user_1", notification.RegisterDeviceRequest{Token: "web-tok", Platform: "web"}))

	prefs, err := f.notifications.Preferences(ctx, "user_1")
	require.NoError(t, err)
	require.Len(t, prefs.DeviceTokens, 2)
	assert.Equal(t, "android", prefs.DeviceTokens[0].Platform)

	err = f.notifications.RegisterDevice(ctx, "user_1", notification.RegisterDeviceRequest{Token: "x", Platform: "blackberry"})
	assert.ErrorIs(t, err, ErrInvalidPreferences)
	err = f.notifications.RegisterDevice(ctx, "user_1", notification.RegisterDeviceRequest{Platform: "ios"})
	assert.ErrorIs(t, err, ErrInvalidPreferences)
}

func TestDeliverOncePerTag(t *testing.T) {
	f := newFixture(ny(2024, time.January, 1, 9, 0))
	ctx := context.Background()

	p, err := f.accounts.Profile(ctx, "user_1")
	require.NoError(t, err)
	prefs := notification.DefaultPreferences(p.ID)
	msg, ok := notification.Compose(notification.KindMorningReminder, notification.DayState{Date: "2024-01-01", DayNumber: 1})
	require.True(t, ok)

	sent, err := f.notifications.Deliver(ctx, p.ID, notification.KindMorningReminder, msg, &prefs)
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = f.notifications.Deliver(ctx, p.ID, notification.KindMorningReminder, msg, &prefs)
	require.NoError(t, err)
	assert.False(t, sent)

	list, err := f.notifications.List(ctx, "user_1", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, list.TotalCount)
	assert.Equal(t, 1, list.UnreadCount)
	assert.Equal(t, 20, list.PageSize)
	assert.Equal(t, "morning_reminder-2024-01-01", list.Notifications[0].Tag)
}

func TestDeliverHiddenWhenInAppDisabled(t *testing.T) {
	f := newFixture(ny(2024, time.January, 1, 9, 0))
	ctx := context.Background()

	p, err := f.accounts.Profile(ctx, "user_1")
	require.NoError(t, err)
	prefs := notification.DefaultPreferences(p.ID)
	prefs.InAppEnabled = false
	msg, _ := notification.Compose(notification.KindMorningReminder, notification.DayState{Date: "2024-01-01", DayNumber: 1})

	sent, err := f.notifications.Deliver(ctx, p.ID, notification.KindMorningReminder, msg, &prefs)
	require.NoError(t, err)
	assert.True(t, sent)

	n, err := f.notifications.UnreadCount(ctx, "user_1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMarkReadAndDelete(t *testing.T) {
	f := newFixture(ny(2024, time.January, 1, 9, 0))
	ctx := context.Background()

	p, err := f.accounts.Profile(ctx, "user_1")
	require.NoError(t, err)
	prefs := notification.DefaultPreferences(p.ID)
	for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		msg, _ := notification.Compose(notification.KindMorningReminder, notification.DayState{Date: d, DayNumber: 1})
		_, err := f.notifications.Deliver(ctx, p.ID, notification.KindMorningReminder, msg, &prefs)
		require.NoError(t, err)
	}

	list, err := f.notifications.List(ctx, "user_1", 1, 2)
	require.NoError(t, err)
	require.Len(t, list.Notifications, 2)
	assert.Equal(t, 3, list.TotalCount)

	first := list.Notifications[0].ID
	require.NoError(t, f.notifications.MarkRead(ctx, "user_1", first))
	n, err := f.notifications.UnreadCount(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	marked, err := f.notifications.MarkAllRead(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	require.NoError(t, f.notifications.Delete(ctx, "user_1", first))
	assert.ErrorIs(t, f.notifications.Delete(ctx, "user_1", first), ErrNotificationNotFound)
	assert.ErrorIs(t, f.notifications.MarkRead(ctx, "user_1", uuid.New()), ErrNotificationNotFound)

	// another user cannot touch the rows
	assert.ErrorIs(t, f.notifications.MarkRead(ctx, "user_2", list.Notifications[1].ID), ErrNotificationNotFound)
}

func TestReminderSchedulerEveningReminder(t *testing.T) {
	f := newFixture(ny(2024, time.January, 3, 20, 0))
	onboarded(t, f, "user_1", "2024-01-01")
	ctx := context.Background()

	view, err := f.challenges.Active(ctx, "user_1")
	require.NoError(t, err)
	f.store.seedDay(view.Challenge.ID, "2024-01-02", 6)
	f.store.seedDay(view.Challenge.ID, "2024-01-03", 4)

	sched := NewReminderScheduler(f.store, f.store, f.notifications, movableClock{f.clock}, time.Minute)

	sent, err := sched.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	// the same minute again does not duplicate
	sent, err = sched.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)

	f.clock.At = ny(2024, time.January, 3, 21, 0)
	sent, err = sched.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent, "streak reminder with a one day streak")

	list, err := f.notifications.List(ctx, "user_1", 1, 10)
	require.NoError(t, err)
	require.Len(t, list.Notifications, 2)
	assert.Equal(t, notification.KindStreakReminder, list.Notifications[0].Kind)
	assert.Equal(t, notification.KindEveningReminder, list.Notifications[1].Kind)
	assert.Contains(t, list.Notifications[1].Body, "4 of 6")
}

func TestReminderSchedulerSkipsCompletedDayAndQuietHours(t *testing.T) {
	f := newFixture(ny(2024, time.January, 3, 20, 0))
	onboarded(t, f, "user_1", "2024-01-01")
	onboarded(t, f, "user_2", "2024-01-01")
	ctx := context.Background()

	view, err := f.challenges.Active(ctx, "user_1")
	require.NoError(t, err)
	f.store.seedDay(view.Challenge.ID, "2024-01-03", 6)

	_, err = f.notifications.UpdatePreferences(ctx, "user_2", notification.UpdatePreferencesRequest{
		QuietHoursStart: strPtr("19:00"),
		QuietHoursEnd:   strPtr("07:00"),
	})
	require.NoError(t, err)

	sched := NewReminderScheduler(f.store, f.store, f.notifications, movableClock{f.clock}, time.Minute)
	sent, err := sched.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestDayCompleteNotificationThroughService(t *testing.T) {
	f := newFixture(ny(2024, time.January, 1, 18, 0))
	onboarded(t, f, "user_1", "2024-01-01")
	f.progress.SetNotifier(f.notifications)
	ctx := context.Background()

	for _, id := range task.IDs() {
		_, err := f.progress.ToggleTask(ctx, "user_1", "today", id, true)
		require.NoError(t, err)
	}

	list, err := f.notifications.List(ctx, "user_1", 1, 10)
	require.NoError(t, err)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, notification.KindDayComplete, list.Notifications[0].Kind)
	assert.Equal(t, "Day 1 complete", list.Notifications[0].Title)
}

type flakyPush struct {
	mu       sync.Mutex
	failures int
	calls    int
	sent     chan notification.Message
}

func (p *flakyPush) Send(_ context.Context, _ uuid.UUID, _ []notification.DeviceToken, msg notification.Message) error {
	p.mu.Lock()
	p.calls++
	fail := p.calls <= p.failures
	p.mu.Unlock()
	if fail {
		return errors.New("unavailable")
	}
	p.sent <- msg
	return nil
}

func TestDispatcherRetriesFailedPush(t *testing.T) {
	push := &flakyPush{failures: 2, sent: make(chan notification.Message, 1)}
	d := NewNotificationDispatcher(1)
	d.retryDelay = 10 * time.Millisecond
	d.SetPushProvider(push)
	defer d.Stop()

	d.Dispatch(&DispatchJob{
		UserID:  uuid.New(),
		Kind:    notification.KindEveningReminder,
		Message: notification.Message{Tag: "evening_reminder-2024-01-01"},
		Tokens:  []notification.DeviceToken{{Token: "tok", Platform: "ios"}},
	})

	select {
	case msg := <-push.sent:
		assert.Equal(t, "evening_reminder-2024-01-01", msg.Tag)
	case <-time.After(2 * time.Second):
		t.Fatal("push was not retried")
	}
	push.mu.Lock()
	assert.Equal(t, 3, push.calls)
	push.mu.Unlock()
}

func TestDispatcherGivesUpAfterMaxAttempts(t *testing.T) {
	push := &flakyPush{failures: 10, sent: make(chan notification.Message, 1)}
	d := NewNotificationDispatcher(1)
	d.retryDelay = 5 * time.Millisecond
	d.SetPushProvider(push)

	d.Dispatch(&DispatchJob{UserID: uuid.New(), Kind: notification.KindMorningReminder, Tokens: []notification.DeviceToken{{Token: "tok", Platform: "web"}}})

	require.Eventually(t, func() bool {
		push.mu.Lock()
		defer push.mu.Unlock()
		return push.calls == maxPushAttempts
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	d.Stop()
	push.mu.Lock()
	assert.Equal(t, maxPushAttempts, push.calls)
	push.mu.Unlock()
}

type blockingPush struct {
	entered chan struct{}
	release chan struct{}
}

func (p *blockingPush) Send(ctx context.Context, _ uuid.UUID, _ []notification.DeviceToken, _ notification.Message) error {
	p.entered <- struct{}{}
	select {
	case <-p.release:
	case <-ctx.Done():
	}
	return nil
}

func TestDispatchDoesNotBlockWhenQueueIsFull(t *testing.T) {
	push := &blockingPush{entered: make(chan struct{}, 1), release: make(chan struct{})}
	d := newNotificationDispatcher(1, 1)
	d.SetPushProvider(push)
	defer d.Stop()
	defer close(push.release)

	job := func() *DispatchJob {
		return &DispatchJob{UserID: uuid.New(), Kind: notification.KindDayComplete, Tokens: []notification.DeviceToken{{Token: "tok", Platform: "ios"}}}
	}

	require.True(t, d.Dispatch(job()))
	<-push.entered
	require.True(t, d.Dispatch(job()))

	start := time.Now()
	assert.False(t, d.Dispatch(job()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
