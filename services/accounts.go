package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"goTheNineAPI/internal/challenge"
	"goTheNineAPI/internal/clock"
	"goTheNineAPI/internal/user"
	"goTheNineAPI/pkg/logger"
	"goTheNineAPI/repository"
)

// Accounts resolves the authenticated caller: their profile, local zone and
// active challenge. It is shared by the services that act on behalf of a
// user.
type Accounts struct {
	profiles   ProfileStore
	challenges ChallengeStore
	clock      clock.Clock
	defaultTZ  string
}

func NewAccounts(profiles ProfileStore, challenges ChallengeStore, clk clock.Clock, defaultTZ string) *Accounts {
	if clk == nil {
		clk = clock.System{}
	}
	if defaultTZ == "" {
		defaultTZ = clock.DefaultTimezone
	}
	return &Accounts{profiles: profiles, challenges: challenges, clock: clk, defaultTZ: defaultTZ}
}

// Caller is the resolved request context. Challenge is nil when the user has
// none active and none was requested.
type Caller struct {
	Profile   *user.Profile
	Location  *time.Location
	Now       time.Time
	Today     string
	Challenge *challenge.Challenge
}

// DayNumber is the caller's current challenge day, 0 without a challenge.
func (c *Caller) DayNumber() int {
	if c.Challenge == nil {
		return 0
	}
	day, err := challenge.DayNumber(c.Challenge.StartDate, c.Today)
	if err != nil {
		return 0
	}
	return day
}

func (a *Accounts) Profile(ctx context.Context, clerkID string) (*user.Profile, error) {
	p, err := a.profiles.GetOrCreate(ctx, clerkID, a.defaultTZ)
	if err != nil {
		logger.Log.Error("Failed to load profile", zap.String("clerk_id", clerkID), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (a *Accounts) location(p *user.Profile) *time.Location {
	loc, err := clock.LoadLocation(p.Timezone)
	if err != nil {
		logger.Log.Warn("Stored timezone is invalid, using default",
			zap.String("clerk_id", p.ClerkID), zap.String("timezone", p.Timezone))
		return clock.MustLocation(a.defaultTZ)
	}
	return loc
}

func (a *Accounts) caller(ctx context.Context, clerkID string) (*Caller, error) {
	p, err := a.Profile(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	loc := a.location(p)
	now := a.clock.Now()
	return &Caller{Profile: p, Location: loc, Now: now, Today: clock.Today(now, loc)}, nil
}

// Resolve loads the caller and their active challenge, failing with
// ErrNoActiveChallenge when there is none.
func (a *Accounts) Resolve(ctx context.Context, clerkID string) (*Caller, error) {
	c, err := a.caller(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	active, err := a.challenges.GetActive(ctx, c.Profile.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoActiveChallenge
	}
	if err != nil {
		return nil, err
	}
	c.Challenge = active
	return c, nil
}

// ResolveOrStart is Resolve that starts a challenge today when the user has
// no active one.
func (a *Accounts) ResolveOrStart(ctx context.Context, clerkID string) (*Caller, error) {
	c, err := a.caller(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	active, err := a.startIfMissing(ctx, c.Profile, "", c.Today)
	if err != nil {
		return nil, err
	}
	c.Challenge = active
	return c, nil
}

// startIfMissing returns the active challenge, creating one when there is
// none. A concurrent creator winning the race is not an error: its row is
// returned instead.
func (a *Accounts) startIfMissing(ctx context.Context, p *user.Profile, name, startDate string) (*challenge.Challenge, error) {
	active, err := a.challenges.GetActive(ctx, p.ID)
	if err == nil {
		return active, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	fresh, err := challenge.New(p.ID, name, startDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}

	err = a.challenges.Create(ctx, fresh)
	if errors.Is(err, repository.ErrDuplicateActiveChallenge) {
		logger.Log.Info("Active challenge already exists, returning it", zap.String("clerk_id", p.ClerkID))
		return a.challenges.GetActive(ctx, p.ID)
	}
	if err != nil {
		logger.Log.Error("Failed to create challenge", zap.String("clerk_id", p.ClerkID), zap.Error(err))
		return nil, err
	}

	logger.Log.Info("Challenge started",
		zap.String("clerk_id", p.ClerkID),
		zap.String("challenge_id", fresh.ID.String()),
		zap.String("start_date", fresh.StartDate))
	return fresh, nil
}

// ResolveDate turns "today", "" or a YYYY-MM-DD string into a date inside the
// caller's challenge. Writes may not target future days.
func (c *Caller) ResolveDate(raw string, write bool) (string, error) {
	date := raw
	if date == "" || date == "today" {
		date = c.Today
	}
	if !clock.ValidDate(date) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	if c.Challenge != nil && !c.Challenge.Contains(date) {
		return "", fmt.Errorf("%w: %s is outside the challenge", ErrInvalidDate, date)
	}
	if write && date > c.Today {
		return "", fmt.Errorf("%w: %s is in the future", ErrInvalidDate, date)
	}
	return date, nil
}
