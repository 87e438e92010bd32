package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"goTheNineAPI/internal/challenge"
	"goTheNineAPI/internal/clock"
	"goTheNineAPI/internal/leaderboard"
	"goTheNineAPI/internal/progress"
	"goTheNineAPI/internal/streak"
	"goTheNineAPI/internal/user"
	"goTheNineAPI/pkg/logger"
	"goTheNineAPI/repository"
)

const leaderboardLimit = 100

type LeaderboardService struct {
	accounts  *Accounts
	community CommunityStore
	progress  ProgressStore
}

func NewLeaderboardService(accounts *Accounts, community CommunityStore, progress ProgressStore) *LeaderboardService {
	return &LeaderboardService{accounts: accounts, community: community, progress: progress}
}

// Community ranks everyone with an active challenge. Each participant's
// "today" is resolved in their own timezone.
func (s *LeaderboardService) Community(ctx context.Context, clerkID string) (*leaderboard.Leaderboard, error) {
	var (
		me           *user.Profile
		participants []repository.Participant
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		me, err = s.accounts.Profile(gctx, clerkID)
		return err
	})
	g.Go(func() error {
		var err error
		participants, err = s.community.ActiveParticipants(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Log.Error("Failed to load leaderboard", zap.String("clerk_id", clerkID), zap.Error(err))
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(participants))
	for _, pt := range participants {
		ids = append(ids, pt.Challenge.ID)
	}
	byChallenge, err := s.progress.ListByChallenges(ctx, ids)
	if err != nil {
		logger.Log.Error("Failed to load leaderboard progress", zap.Error(err))
		return nil, err
	}

	now := s.accounts.clock.Now()
	entries := make([]*leaderboard.Entry, 0, len(participants))
	for _, pt := range participants {
		entries = append(entries, buildEntry(pt, byChallenge[pt.Challenge.ID], now, s.accounts))
	}

	lb := leaderboard.Build(entries, me.ID, leaderboardLimit)
	return &lb, nil
}

func buildEntry(pt repository.Participant, records []*progress.DailyProgress, now time.Time, a *Accounts) *leaderboard.Entry {
	today := clock.Today(now, a.location(&pt.Profile))
	day, _ := challenge.DayNumber(pt.Challenge.StartDate, today)

	e := &leaderboard.Entry{
		UserID:      pt.Profile.ID,
		DisplayName: pt.Profile.Name(),
		AvatarURL:   pt.Profile.AvatarURL,
		DayNumber:   day,
	}
	for _, r := range records {
		if r.Date == today {
			e.TasksToday = r.TasksCompleted
			e.IsCompleteToday = r.IsComplete
			break
		}
	}

	st := streak.Compute(streak.FromProgress(records), today)
	e.CurrentStreak = st.CurrentStreak
	e.LongestStreak = st.LongestStreak
	return e
}
