package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"goTheNineAPI/internal/challenge"
	"goTheNineAPI/internal/clock"
	"goTheNineAPI/internal/notification"
	"goTheNineAPI/internal/streak"
	"goTheNineAPI/pkg/logger"
	"goTheNineAPI/repository"
)

// ReminderScheduler checks every participant once per tick and delivers the
// reminders that fall due in their local time.
type ReminderScheduler struct {
	community     CommunityStore
	progress      ProgressStore
	notifications *NotificationService
	clock         clock.Clock
	tick          time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewReminderScheduler(community CommunityStore, progress ProgressStore, notifications *NotificationService, clk clock.Clock, tick time.Duration) *ReminderScheduler {
	if clk == nil {
		clk = clock.System{}
	}
	if tick <= 0 {
		tick = time.Minute
	}
	return &ReminderScheduler{
		community:     community,
		progress:      progress,
		notifications: notifications,
		clock:         clk,
		tick:          tick,
		stopChan:      make(chan struct{}),
	}
}

func (s *ReminderScheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Log.Error("Reminder pass failed", zap.Error(err))
				}
			case <-s.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *ReminderScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

// RunOnce delivers every reminder due at the current instant and returns how
// many were sent.
func (s *ReminderScheduler) RunOnce(ctx context.Context) (int, error) {
	participants, err := s.community.ActiveParticipants(ctx)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	sent := 0
	for _, pt := range participants {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		n, err := s.remind(ctx, pt, now)
		if err != nil {
			logger.Log.Warn("Reminder failed", zap.String("clerk_id", pt.Profile.ClerkID), zap.Error(err))
			continue
		}
		sent += n
	}

	if sent > 0 {
		logger.Log.Info("Reminders delivered", zap.Int("count", sent))
	}
	return sent, nil
}

func (s *ReminderScheduler) remind(ctx context.Context, pt repository.Participant, now time.Time) (int, error) {
	prefs, err := s.notifications.PreferencesFor(ctx, pt.Profile.ID)
	if err != nil {
		return 0, err
	}

	loc := clock.MustLocation(pt.Profile.Timezone)
	local := now.In(loc)
	due := notification.DueReminders(*prefs, local, s.tick)
	if len(due) == 0 {
		return 0, nil
	}

	today := clock.Today(now, loc)
	if !pt.Challenge.Contains(today) {
		return 0, nil
	}

	records, err := s.progress.ListByChallenge(ctx, pt.Challenge.ID)
	if err != nil {
		return 0, err
	}
	state := notification.DayState{Date: today}
	state.DayNumber, _ = challenge.DayNumber(pt.Challenge.StartDate, today)
	for _, r := range records {
		if r.Date == today {
			state.TasksCompleted = r.TasksCompleted
			state.IsComplete = r.IsComplete
		}
	}
	state.CurrentStreak = streak.Compute(streak.FromProgress(records), today).CurrentStreak

	sent := 0
	for _, kind := range due {
		msg, ok := notification.Compose(kind, state)
		if !ok {
			continue
		}
		delivered, err := s.notifications.Deliver(ctx, pt.Profile.ID, kind, msg, prefs)
		if err != nil {
			return sent, err
		}
		if delivered {
			sent++
		}
	}
	return sent, nil
}
