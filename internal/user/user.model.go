package user

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the app-side record of a Clerk user.
type Profile struct {
	ID                  uuid.UUID `json:"id"`
	ClerkID             string    `json:"clerk_id"`
	DisplayName         string    `json:"display_name"`
	AvatarURL           *string   `json:"avatar_url"`
	Timezone            string    `json:"timezone"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func NewProfile(clerkID, timezone string) *Profile {
	now := time.Now()
	return &Profile{
		ID:        uuid.New(),
		ClerkID:   clerkID,
		Timezone:  timezone,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Name falls back to a generic label for profiles that never set one.
func (p *Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return "Challenger"
}
