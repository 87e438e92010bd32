package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"goTheNineAPI/internal/challenge"
	"goTheNineAPI/internal/clock"
	"goTheNineAPI/internal/progress"
	"goTheNineAPI/internal/streak"
	"goTheNineAPI/internal/task"
	"goTheNineAPI/internal/user"
	"goTheNineAPI/pkg/logger"
	"goTheNineAPI/repository"
)

// Start dates may be backdated up to a full challenge or scheduled a week
// ahead.
const maxStartAheadDays = 7

type ChallengeService struct {
	accounts   *Accounts
	profiles   ProfileStore
	challenges ChallengeStore
	progress   ProgressStore
}

func NewChallengeService(accounts *Accounts, profiles ProfileStore, challenges ChallengeStore, progress ProgressStore) *ChallengeService {
	return &ChallengeService{accounts: accounts, profiles: profiles, challenges: challenges, progress: progress}
}

type ChallengeView struct {
	Challenge  *challenge.Challenge `json:"challenge"`
	CurrentDay int                  `json:"current_day"`
	Today      string               `json:"today"`
}

type OnboardingResult struct {
	Profile    *user.Profile        `json:"profile"`
	Challenge  *challenge.Challenge `json:"challenge"`
	CurrentDay int                  `json:"current_day"`
}

func validateStartDate(start, today string) error {
	if !clock.ValidDate(start) {
		return fmt.Errorf("%w: start date %q", ErrInvalidDate, start)
	}
	diff, err := clock.DaysBetween(today, start)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	if diff > maxStartAheadDays || diff < -(challenge.Length-1) {
		return fmt.Errorf("%w: start date %s too far from today", ErrInvalidDate, start)
	}
	return nil
}

// Onboard completes the profile and starts the user's challenge. Calling it
// again, or concurrently, returns the challenge that is already active.
func (s *ChallengeService) Onboard(ctx context.Context, clerkID string, req user.OnboardingRequest) (*OnboardingResult, error) {
	c, err := s.accounts.caller(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	p := c.Profile

	name, err := validateDisplayName(req.DisplayName)
	if err != nil {
		return nil, err
	}
	if name != "" {
		p.DisplayName = name
	}
	if req.AvatarURL != nil && *req.AvatarURL != "" {
		p.AvatarURL = req.AvatarURL
	}
	if req.Timezone != "" {
		if err := validateTimezone(req.Timezone); err != nil {
			return nil, err
		}
		p.Timezone = req.Timezone
		c.Location = s.accounts.location(p)
		c.Today = clock.Today(c.Now, c.Location)
	}

	start := req.StartDate
	if start == "" {
		start = c.Today
	}
	if err := validateStartDate(start, c.Today); err != nil {
		return nil, err
	}

	// OnboardingCompleted is only set once an active challenge exists.
	active, err := s.accounts.startIfMissing(ctx, p, req.ChallengeName, start)
	if err != nil {
		return nil, err
	}

	p.OnboardingCompleted = true
	if err := s.profiles.Update(ctx, p); err != nil {
		logger.Log.Error("Failed to save onboarding profile", zap.String("clerk_id", clerkID), zap.Error(err))
		return nil, err
	}

	day, _ := challenge.DayNumber(active.StartDate, c.Today)
	return &OnboardingResult{Profile: p, Challenge: active, CurrentDay: day}, nil
}

func (s *ChallengeService) Active(ctx context.Context, clerkID string) (*ChallengeView, error) {
	c, err := s.accounts.ResolveOrStart(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	return &ChallengeView{Challenge: c.Challenge, CurrentDay: c.DayNumber(), Today: c.Today}, nil
}

func (s *ChallengeService) History(ctx context.Context, clerkID string) ([]*challenge.Challenge, error) {
	p, err := s.accounts.Profile(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	list, err := s.challenges.ListByUser(ctx, p.ID)
	if err != nil {
		logger.Log.Error("Failed to list challenges", zap.String("clerk_id", clerkID), zap.Error(err))
		return nil, err
	}
	return list, nil
}

// Restart retires the active challenge, keeping its history, and starts a
// new one today.
func (s *ChallengeService) Restart(ctx context.Context, clerkID string) (*ChallengeView, error) {
	c, err := s.accounts.caller(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	name := ""
	if prev, err := s.challenges.GetActive(ctx, c.Profile.ID); err == nil {
		name = prev.Name
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	next, err := challenge.New(c.Profile.ID, name, c.Today)
	if err != nil {
		return nil, err
	}
	if err := s.challenges.Replace(ctx, c.Profile.ID, next); err != nil {
		logger.Log.Error("Failed to restart challenge", zap.String("clerk_id", clerkID), zap.Error(err))
		return nil, err
	}

	logger.Log.Info("Challenge restarted", zap.String("clerk_id", clerkID), zap.String("challenge_id", next.ID.String()))
	return &ChallengeView{Challenge: next, CurrentDay: 1, Today: c.Today}, nil
}

type ShareCode struct {
	URL       string `json:"url"`
	PNGBase64 string `json:"png_base64"`
}

func ShareURL(c *challenge.Challenge) string {
	return "gothenine://challenge/" + c.ID.String()
}

func (s *ChallengeService) ShareCode(ctx context.Context, clerkID string) (*ShareCode, error) {
	c, err := s.accounts.Resolve(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	url := ShareURL(c.Challenge)
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return &ShareCode{URL: url, PNGBase64: base64.StdEncoding.EncodeToString(png)}, nil
}

type Dashboard struct {
	Profile       *user.Profile           `json:"profile"`
	Challenge     *challenge.Challenge    `json:"challenge"`
	CurrentDay    int                     `json:"current_day"`
	Today         string                  `json:"today"`
	TodayProgress *progress.DailyProgress `json:"today_progress"`
	Streak        streak.Data             `json:"streak"`
	Tasks         []task.Definition       `json:"tasks"`
}

// Dashboard is the landing view. A missing record for today is returned as
// an empty day, not an error.
func (s *ChallengeService) Dashboard(ctx context.Context, clerkID string) (*Dashboard, error) {
	c, err := s.accounts.ResolveOrStart(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	var (
		today   *progress.DailyProgress
		records []*progress.DailyProgress
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.progress.Get(gctx, c.Challenge.ID, c.Today)
		if errors.Is(err, repository.ErrNotFound) {
			today = progress.Empty(c.Challenge.ID, c.Today)
			return nil
		}
		today = p
		return err
	})
	g.Go(func() error {
		var err error
		records, err = s.progress.ListByChallenge(gctx, c.Challenge.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Log.Error("Failed to load dashboard", zap.String("clerk_id", clerkID), zap.Error(err))
		return nil, err
	}

	return &Dashboard{
		Profile:       c.Profile,
		Challenge:     c.Challenge,
		CurrentDay:    c.DayNumber(),
		Today:         c.Today,
		TodayProgress: today,
		Streak:        streak.Compute(streak.FromProgress(records), c.Today),
		Tasks:         task.Definitions(),
	}, nil
}
