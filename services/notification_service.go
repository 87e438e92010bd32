package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"goTheNineAPI/internal/metrics"
	"goTheNineAPI/internal/notification"
	"goTheNineAPI/internal/progress"
	"goTheNineAPI/internal/streak"
	"goTheNineAPI/internal/user"
	"goTheNineAPI/pkg/logger"
	"goTheNineAPI/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type NotificationService struct {
	accounts   *Accounts
	store      NotificationStore
	dispatcher *NotificationDispatcher
}

func NewNotificationService(accounts *Accounts, store NotificationStore, dispatcher *NotificationDispatcher) *NotificationService {
	return &NotificationService{accounts: accounts, store: store, dispatcher: dispatcher}
}

func (s *NotificationService) userID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	p, err := s.accounts.Profile(ctx, clerkID)
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

func (s *NotificationService) List(ctx context.Context, clerkID string, page, pageSize int) (*notification.ListResponse, error) {
	userID, err := s.userID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, total, err := s.store.List(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	unread, err := s.store.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &notification.ListResponse{
		Notifications: items,
		UnreadCount:   unread,
		TotalCount:    total,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, clerkID string) (int, error) {
	userID, err := s.userID(ctx, clerkID)
	if err != nil {
		return 0, err
	}
	return s.store.UnreadCount(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, clerkID string, id uuid.UUID) error {
	userID, err := s.userID(ctx, clerkID)
	if err != nil {
		return err
	}
	err = s.store.MarkRead(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

func (s *NotificationService) MarkAllRead(ctx context.Context, clerkID string) (int, error) {
	userID, err := s.userID(ctx, clerkID)
	if err != nil {
		return 0, err
	}
	return s.store.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, clerkID string, id uuid.UUID) error {
	userID, err := s.userID(ctx, clerkID)
	if err != nil {
		return err
	}
	err = s.store.Delete(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

// PreferencesFor returns the stored preferences or the defaults.
func (s *NotificationService) PreferencesFor(ctx context.Context, userID uuid.UUID) (*notification.Preferences, error) {
	p, err := s.store.GetPreferences(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		d := notification.DefaultPreferences(userID)
		return &d, nil
	}
	return p, err
}

func (s *NotificationService) Preferences(ctx context.Context, clerkID string) (*notification.Preferences, error) {
	userID, err := s.userID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	return s.PreferencesFor(ctx, userID)
}

func (s *NotificationService) UpdatePreferences(ctx context.Context, clerkID string, req notification.UpdatePreferencesRequest) (*notification.Preferences, error) {
	userID, err := s.userID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	prefs, err := s.PreferencesFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := req.Apply(prefs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPreferences, err)
	}
	if err := s.store.SavePreferences(ctx, prefs); err != nil {
		logger.Log.Error("Failed to save notification preferences", zap.String("clerk_id", clerkID), zap.Error(err))
		return nil, err
	}
	return prefs, nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req notification.RegisterDeviceRequest) error {
	if req.Token == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidPreferences)
	}
	if !notification.ValidPlatform(req.Platform) {
		return fmt.Errorf("%w: %v", ErrInvalidPreferences, notification.ErrInvalidPlatform)
	}

	userID, err := s.userID(ctx, clerkID)
	if err != nil {
		return err
	}
	prefs, err := s.PreferencesFor(ctx, userID)
	if err != nil {
		return err
	}
	prefs.AddDeviceToken(notification.DeviceToken{Token: req.Token, Platform: req.Platform})

	if err := s.store.SavePreferences(ctx, prefs); err != nil {
		logger.Log.Error("Failed to register device", zap.String("clerk_id", clerkID), zap.Error(err))
		return err
	}
	return nil
}

// Deliver stores msg as an in-app notification and queues a push. A tag
// that was already delivered to the user is skipped entirely, so each
// reminder goes out at most once per day.
func (s *NotificationService) Deliver(ctx context.Context, userID uuid.UUID, kind notification.Kind, msg notification.Message, prefs *notification.Preferences) (bool, error) {
	n := &notification.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Title:     msg.Title,
		Body:      msg.Body,
		Tag:       msg.Tag,
		Actions:   msg.Actions,
		CreatedAt: time.Now(),
	}
	if n.Actions == nil {
		n.Actions = []notification.Action{}
	}

	// The row is the once-per-tag guard, so it is written even when in-app
	// display is off; it is then hidden by being marked read.
	inserted, err := s.store.Create(ctx, n)
	if err != nil {
		logger.Log.Error("Failed to store notification", zap.String("user_id", userID.String()), zap.Error(err))
		return false, err
	}
	if !inserted {
		return false, nil
	}
	if prefs.InAppEnabled {
		metrics.NotificationsSent.WithLabelValues(string(kind), "in_app").Inc()
	} else if err := s.store.MarkRead(ctx, userID, n.ID); err != nil {
		logger.Log.Warn("Failed to hide notification", zap.String("user_id", userID.String()), zap.Error(err))
	}

	if prefs.PushEnabled && len(prefs.DeviceTokens) > 0 && s.dispatcher != nil {
		s.dispatcher.Dispatch(&DispatchJob{UserID: userID, Kind: kind, Message: msg, Tokens: prefs.DeviceTokens})
	}
	return true, nil
}

// DayCompleted sends the congratulation when a write completes a day.
func (s *NotificationService) DayCompleted(ctx context.Context, p *user.Profile, dayNumber int, day *progress.DailyProgress, current streak.Data) {
	msg, ok := notification.Compose(notification.KindDayComplete, notification.DayState{
		Date:           day.Date,
		DayNumber:      dayNumber,
		TasksCompleted: day.TasksCompleted,
		IsComplete:     day.IsComplete,
		CurrentStreak:  current.CurrentStreak,
	})
	if !ok {
		return
	}
	prefs, err := s.PreferencesFor(ctx, p.ID)
	if err != nil {
		logger.Log.Warn("Skipping day complete notification", zap.String("clerk_id", p.ClerkID), zap.Error(err))
		return
	}
	if _, err := s.Deliver(ctx, p.ID, notification.KindDayComplete, msg, prefs); err != nil {
		logger.Log.Warn("Day complete notification failed", zap.String("clerk_id", p.ClerkID), zap.Error(err))
	}
}
