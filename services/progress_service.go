package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"goTheNineAPI/internal/calendar"
	"goTheNineAPI/internal/metrics"
	"goTheNineAPI/internal/optimistic"
	"goTheNineAPI/internal/progress"
	"goTheNineAPI/internal/realtime"
	"goTheNineAPI/internal/streak"
	"goTheNineAPI/internal/task"
	"goTheNineAPI/internal/user"
	"goTheNineAPI/pkg/logger"
	"goTheNineAPI/repository"
)

// DayCompleteNotifier is told when a write completes all six tasks of a day.
type DayCompleteNotifier interface {
	DayCompleted(ctx context.Context, p *user.Profile, dayNumber int, day *progress.DailyProgress, current streak.Data)
}

type ProgressService struct {
	accounts  *Accounts
	progress  ProgressStore
	publisher EventPublisher
	inFlight  *optimistic.InFlight
	notifier  DayCompleteNotifier
}

func NewProgressService(accounts *Accounts, progress ProgressStore, publisher EventPublisher) *ProgressService {
	return &ProgressService{
		accounts:  accounts,
		progress:  progress,
		publisher: publisher,
		inFlight:  optimistic.NewInFlight(),
	}
}

func (s *ProgressService) SetNotifier(n DayCompleteNotifier) {
	s.notifier = n
}

type DayView struct {
	Date      string                  `json:"date"`
	DayNumber int                     `json:"day_number"`
	Progress  *progress.DailyProgress `json:"progress"`
	Tasks     []task.Definition       `json:"tasks"`
}

func (s *ProgressService) load(ctx context.Context, c *Caller, date string) (*progress.DailyProgress, error) {
	p, err := s.progress.Get(ctx, c.Challenge.ID, date)
	if errors.Is(err, repository.ErrNotFound) {
		return progress.Empty(c.Challenge.ID, date), nil
	}
	return p, err
}

// Day returns the record for date, or an empty day when nothing was logged.
func (s *ProgressService) Day(ctx context.Context, clerkID, date string) (*DayView, error) {
	c, err := s.accounts.ResolveOrStart(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	day, err := c.ResolveDate(date, false)
	if err != nil {
		return nil, err
	}

	p, err := s.load(ctx, c, day)
	if err != nil {
		logger.Log.Error("Failed to load progress", zap.String("clerk_id", clerkID), zap.String("date", day), zap.Error(err))
		return nil, err
	}
	n, _ := c.Challenge.DayOf(day)
	return &DayView{Date: day, DayNumber: n, Progress: p, Tasks: task.Definitions()}, nil
}

type CalendarView struct {
	calendar.Response
	Streak streak.Data `json:"streak"`
}

func (s *ProgressService) Calendar(ctx context.Context, clerkID string) (*CalendarView, error) {
	c, err := s.accounts.ResolveOrStart(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	records, err := s.progress.ListByChallenge(ctx, c.Challenge.ID)
	if err != nil {
		logger.Log.Error("Failed to load calendar", zap.String("clerk_id", clerkID), zap.Error(err))
		return nil, err
	}

	days, err := calendar.Generate(c.Challenge.StartDate, calendar.ByDay(c.Challenge.StartDate, records), c.Today)
	if err != nil {
		return nil, err
	}
	return &CalendarView{
		Response: calendar.Response{StartDate: c.Challenge.StartDate, CurrentDay: c.DayNumber(), Days: days},
		Streak:   streak.Compute(streak.FromProgress(records), c.Today),
	}, nil
}

type StreakView struct {
	Overall streak.Data             `json:"overall"`
	Tasks   map[task.ID]streak.Data `json:"tasks"`
}

func (s *ProgressService) Streak(ctx context.Context, clerkID string) (*StreakView, error) {
	c, err := s.accounts.ResolveOrStart(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	records, err := s.progress.ListByChallenge(ctx, c.Challenge.ID)
	if err != nil {
		return nil, err
	}

	view := &StreakView{
		Overall: streak.Compute(streak.FromProgress(records), c.Today),
		Tasks:   make(map[task.ID]streak.Data, task.Total),
	}
	for _, id := range task.IDs() {
		view.Tasks[id] = streak.Compute(streak.ForTask(records, id), c.Today)
	}
	return view, nil
}

type ToggleResult struct {
	Progress  *progress.DailyProgress `json:"progress"`
	DayNumber int                     `json:"day_number"`
	State     optimistic.State        `json:"state"`
}

// ToggleTask sets one task's completion for a day. Only one toggle per
// (challenge, date, task) runs at a time; a second caller gets
// ErrToggleInFlight. When the write fails the result still carries the
// pre-toggle record with State rolled_back, alongside the error.
func (s *ProgressService) ToggleTask(ctx context.Context, clerkID, date string, taskID task.ID, completed bool) (*ToggleResult, error) {
	return s.toggle(ctx, clerkID, date, taskID, completed, time.Time{})
}

// toggle stamps completions with at, or with the current time when at is
// zero. Replayed offline edits pass the time they were made.
func (s *ProgressService) toggle(ctx context.Context, clerkID, date string, taskID task.ID, completed bool, at time.Time) (*ToggleResult, error) {
	if !task.Valid(taskID) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, taskID)
	}
	c, err := s.accounts.Resolve(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	day, err := c.ResolveDate(date, true)
	if err != nil {
		return nil, err
	}
	if at.IsZero() {
		at = c.Now
	}

	key := fmt.Sprintf("%s/%s/%s", c.Challenge.ID, day, taskID)
	if !s.inFlight.Acquire(key) {
		return nil, ErrToggleInFlight
	}
	defer s.inFlight.Release(key)

	before, err := s.load(ctx, c, day)
	if err != nil {
		return nil, err
	}
	after := before.Clone()
	if err := progress.ApplyToggle(after, taskID, completed, at); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownTask, err)
	}
	m := optimistic.Begin(before, after)
	dayNumber, _ := c.Challenge.DayOf(day)

	saved, err := s.progress.Mutate(ctx, c.Challenge.ID, day, func(p *progress.DailyProgress) error {
		return progress.ApplyToggle(p, taskID, completed, at)
	})
	if err != nil {
		prev, _ := m.Rollback()
		logger.Log.Error("Failed to toggle task, rolled back",
			zap.String("clerk_id", clerkID),
			zap.String("date", day),
			zap.String("task", string(taskID)),
			zap.Error(err))
		return &ToggleResult{Progress: prev, DayNumber: dayNumber, State: optimistic.RolledBack}, fmt.Errorf("toggle %s: %w", taskID, err)
	}
	if err := m.Confirm(saved); err != nil {
		return nil, err
	}

	metrics.TaskToggles.WithLabelValues(string(taskID), metrics.ToggleState(completed)).Inc()
	s.afterWrite(ctx, c, dayNumber, before, saved)

	return &ToggleResult{Progress: m.Current(), DayNumber: dayNumber, State: m.State()}, nil
}

// UpdateDetails sets a task's duration and notes without changing whether it
// is complete.
func (s *ProgressService) UpdateDetails(ctx context.Context, clerkID, date string, taskID task.ID, d progress.Details) (*progress.DailyProgress, error) {
	if !task.Valid(taskID) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, taskID)
	}
	if d.DurationMinutes == nil && d.Notes == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidMutation)
	}
	if d.DurationMinutes != nil && *d.DurationMinutes < 0 {
		return nil, fmt.Errorf("%w: duration must not be negative", ErrInvalidMutation)
	}

	c, err := s.accounts.Resolve(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	day, err := c.ResolveDate(date, true)
	if err != nil {
		return nil, err
	}

	saved, err := s.progress.Mutate(ctx, c.Challenge.ID, day, func(p *progress.DailyProgress) error {
		return progress.ApplyDetails(p, taskID, d)
	})
	if err != nil {
		logger.Log.Error("Failed to update task details",
			zap.String("clerk_id", clerkID), zap.String("date", day), zap.String("task", string(taskID)), zap.Error(err))
		return nil, err
	}
	return saved, nil
}

// afterWrite publishes the confirmed day to the community feed and, when the
// write completed the day, tells the notifier.
func (s *ProgressService) afterWrite(ctx context.Context, c *Caller, dayNumber int, before, saved *progress.DailyProgress) {
	if s.publisher != nil {
		s.publisher.Publish(realtime.Event{
			Type:           realtime.EventProgressUpdated,
			UserID:         c.Profile.ID,
			DisplayName:    c.Profile.Name(),
			AvatarURL:      c.Profile.AvatarURL,
			Date:           saved.Date,
			DayNumber:      dayNumber,
			TasksCompleted: saved.TasksCompleted,
			IsComplete:     saved.IsComplete,
		})
	}

	if s.notifier == nil || before.IsComplete || !saved.IsComplete {
		return
	}
	records, err := s.progress.ListByChallenge(ctx, c.Challenge.ID)
	if err != nil {
		logger.Log.Warn("Skipping day complete notification", zap.String("clerk_id", c.Profile.ClerkID), zap.Error(err))
		return
	}
	s.notifier.DayCompleted(ctx, c.Profile, dayNumber, saved, streak.Compute(streak.FromProgress(records), c.Today))
}
