package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"goTheNineAPI/internal/clock"
	"goTheNineAPI/internal/user"
	"goTheNineAPI/pkg/logger"
	"goTheNineAPI/repository"
)

const maxDisplayNameLength = 50

type ProfileService struct {
	accounts *Accounts
	profiles ProfileStore
}

func NewProfileService(accounts *Accounts, profiles ProfileStore) *ProfileService {
	return &ProfileService{accounts: accounts, profiles: profiles}
}

func (s *ProfileService) Get(ctx context.Context, clerkID string) (*user.Profile, error) {
	return s.accounts.Profile(ctx, clerkID)
}

func validateDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) > maxDisplayNameLength {
		return "", fmt.Errorf("%w: display name longer than %d characters", ErrInvalidMutation, maxDisplayNameLength)
	}
	return name, nil
}

func validateTimezone(tz string) error {
	if tz == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTimezone)
	}
	if _, err := clock.LoadLocation(tz); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return nil
}

func (s *ProfileService) Update(ctx context.Context, clerkID string, req user.UpdateProfileRequest) (*user.Profile, error) {
	p, err := s.accounts.Profile(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		name, err := validateDisplayName(*req.DisplayName)
		if err != nil {
			return nil, err
		}
		p.DisplayName = name
	}
	if req.AvatarURL != nil {
		p.AvatarURL = req.AvatarURL
		if *req.AvatarURL == "" {
			p.AvatarURL = nil
		}
	}
	if req.Timezone != nil {
		if err := validateTimezone(*req.Timezone); err != nil {
			return nil, err
		}
		p.Timezone = *req.Timezone
	}

	if err := s.profiles.Update(ctx, p); err != nil {
		logger.Log.Error("Failed to update profile", zap.String("clerk_id", clerkID), zap.Error(err))
		return nil, err
	}
	return p, nil
}

// SyncFromClerk mirrors a Clerk user's name and avatar onto their profile,
// creating the profile on first sight.
func (s *ProfileService) SyncFromClerk(ctx context.Context, cu user.ClerkUser) (*user.Profile, error) {
	p, err := s.accounts.Profile(ctx, cu.ID)
	if err != nil {
		return nil, err
	}

	if name, err := validateDisplayName(cu.DisplayName()); err == nil && name != "" {
		p.DisplayName = name
	}
	if cu.ImageURL != nil && *cu.ImageURL != "" {
		p.AvatarURL = cu.ImageURL
	}

	if err := s.profiles.Update(ctx, p); err != nil {
		logger.Log.Error("Failed to sync profile from Clerk", zap.String("clerk_id", cu.ID), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (s *ProfileService) Delete(ctx context.Context, clerkID string) error {
	err := s.profiles.Delete(ctx, clerkID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrProfileNotFound
	}
	if err != nil {
		logger.Log.Error("Failed to delete profile", zap.String("clerk_id", clerkID), zap.Error(err))
		return err
	}
	logger.Log.Info("Profile deleted", zap.String("clerk_id", clerkID))
	return nil
}
