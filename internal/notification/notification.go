// Package notification models in-app notifications and reminder
// preferences, decides which reminders are due, and delivers push messages.
package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindMorningReminder Kind = "morning_reminder"
	KindEveningReminder Kind = "evening_reminder"
	KindStreakReminder  Kind = "streak_reminder"
	KindDayComplete     Kind = "day_complete"
)

type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tag       string    `json:"tag"`
	Actions   []Action  `json:"actions"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is what the push provider delivers.
type Message struct {
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Tag     string            `json:"tag"`
	Actions []Action          `json:"actions,omitempty"`
	Data    map[string]string `json:"data,omitempty"`
}

const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)

var ErrInvalidPlatform = errors.New("platform must be one of ios, android, web")

type DeviceToken struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func ValidPlatform(p string) bool {
	switch p {
	case PlatformIOS, PlatformAndroid, PlatformWeb:
		return true
	}
	return false
}

type Preferences struct {
	UserID          uuid.UUID     `json:"user_id"`
	PushEnabled     bool          `json:"push_enabled"`
	InAppEnabled    bool          `json:"in_app_enabled"`
	MorningReminder string        `json:"morning_reminder"`
	EveningReminder string        `json:"evening_reminder"`
	StreakReminder  string        `json:"streak_reminder"`
	QuietHoursStart string        `json:"quiet_hours_start"`
	QuietHoursEnd   string        `json:"quiet_hours_end"`
	DeviceTokens    []DeviceToken `json:"device_tokens"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func DefaultPreferences(userID uuid.UUID) Preferences {
	return Preferences{
		UserID:          userID,
		PushEnabled:     true,
		InAppEnabled:    true,
		MorningReminder: "07:00",
		EveningReminder: "20:00",
		StreakReminder:  "21:00",
		DeviceTokens:    []DeviceToken{},
	}
}

// AddDeviceToken replaces an existing entry for the same token.
func (p *Preferences) AddDeviceToken(dt DeviceToken) {
	for i, existing := range p.DeviceTokens {
		if existing.Token == dt.Token {
			p.DeviceTokens[i] = dt
			return
		}
	}
	p.DeviceTokens = append(p.DeviceTokens, dt)
}

type UpdatePreferencesRequest struct {
	PushEnabled     *bool   `json:"push_enabled,omitempty"`
	InAppEnabled    *bool   `json:"in_app_enabled,omitempty"`
	MorningReminder *string `json:"morning_reminder,omitempty"` // HH:MM, "" disables
	EveningReminder *string `json:"evening_reminder,omitempty"`
	StreakReminder  *string `json:"streak_reminder,omitempty"`
	QuietHoursStart *string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd   *string `json:"quiet_hours_end,omitempty"`
}

// Apply copies the set fields onto p and validates the result.
func (r UpdatePreferencesRequest) Apply(p *Preferences) error {
	if r.PushEnabled != nil {
		p.PushEnabled = *r.PushEnabled
	}
	if r.InAppEnabled != nil {
		p.InAppEnabled = *r.InAppEnabled
	}
	if r.MorningReminder != nil {
		p.MorningReminder = *r.MorningReminder
	}
	if r.EveningReminder != nil {
		p.EveningReminder = *r.EveningReminder
	}
	if r.StreakReminder != nil {
		p.StreakReminder = *r.StreakReminder
	}
	if r.QuietHoursStart != nil {
		p.QuietHoursStart = *r.QuietHoursStart
	}
	if r.QuietHoursEnd != nil {
		p.QuietHoursEnd = *r.QuietHoursEnd
	}
	return p.Validate()
}

type RegisterDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type ListResponse struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unread_count"`
	TotalCount    int            `json:"total_count"`
	Page          int            `json:"page"`
	PageSize      int            `json:"page_size"`
}
