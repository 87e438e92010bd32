package services

import (
	"context"

	"github.com/google/uuid"

	"goTheNineAPI/internal/challenge"
	"goTheNineAPI/internal/notification"
	"goTheNineAPI/internal/progress"
	"goTheNineAPI/internal/realtime"
	"goTheNineAPI/internal/storage"
	"goTheNineAPI/internal/user"
	"goTheNineAPI/repository"
)

// The store interfaces are satisfied by the repository package; tests use
// in-memory fakes.

type ProfileStore interface {
	GetByClerkID(ctx context.Context, clerkID string) (*user.Profile, error)
	GetOrCreate(ctx context.Context, clerkID, timezone string) (*user.Profile, error)
	Update(ctx context.Context, p *user.Profile) error
	Delete(ctx context.Context, clerkID string) error
}

type ChallengeStore interface {
	Create(ctx context.Context, c *challenge.Challenge) error
	GetActive(ctx context.Context, userID uuid.UUID) (*challenge.Challenge, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*challenge.Challenge, error)
	Replace(ctx context.Context, userID uuid.UUID, next *challenge.Challenge) error
}

type ProgressStore interface {
	Get(ctx context.Context, challengeID uuid.UUID, date string) (*progress.DailyProgress, error)
	ListByChallenge(ctx context.Context, challengeID uuid.UUID) ([]*progress.DailyProgress, error)
	ListByChallenges(ctx context.Context, challengeIDs []uuid.UUID) (map[uuid.UUID][]*progress.DailyProgress, error)
	Mutate(ctx context.Context, challengeID uuid.UUID, date string, fn func(*progress.DailyProgress) error) (*progress.DailyProgress, error)
}

type CommunityStore interface {
	ActiveParticipants(ctx context.Context) ([]repository.Participant, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *notification.Notification) (bool, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]notification.Notification, int, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	GetPreferences(ctx context.Context, userID uuid.UUID) (*notification.Preferences, error)
	SavePreferences(ctx context.Context, p *notification.Preferences) error
}

type PhotoStore interface {
	Store(ctx context.Context, challengeID uuid.UUID, date string, data []byte) (storage.Stored, error)
	Delete(ctx context.Context, urls ...string) error
}

type EventPublisher interface {
	Publish(ev realtime.Event)
}

var (
	_ ProfileStore      = (*repository.ProfileRepository)(nil)
	_ ChallengeStore    = (*repository.ChallengeRepository)(nil)
	_ ProgressStore     = (*repository.ProgressRepository)(nil)
	_ CommunityStore    = (*repository.CommunityRepository)(nil)
	_ NotificationStore = (*repository.NotificationRepository)(nil)
	_ PhotoStore        = (*storage.Photos)(nil)
	_ EventPublisher    = (*realtime.Hub)(nil)
)
