package user

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	Timezone    *string `json:"timezone,omitempty"`
}

type OnboardingRequest struct {
	DisplayName   string  `json:"display_name"`
	AvatarURL     *string `json:"avatar_url,omitempty"`
	Timezone      string  `json:"timezone"`
	ChallengeName string  `json:"challenge_name,omitempty"`
	// StartDate defaults to today in Timezone.
	StartDate string `json:"start_date,omitempty"`
}

// ClerkUser is the subset of a Clerk webhook user payload we read.
type ClerkUser struct {
	ID        string  `json:"id"`
	Username  *string `json:"username"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	ImageURL  *string `json:"image_url"`
}

func (u ClerkUser) DisplayName() string {
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	name := ""
	if u.FirstName != nil {
		name = *u.FirstName
	}
	if u.LastName != nil && *u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += *u.LastName
	}
	return name
}
