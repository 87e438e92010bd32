package services

import "errors"

var (
	ErrProfileNotFound      = errors.New("profile not found")
	ErrChallengeNotFound    = errors.New("challenge not found")
	ErrNoActiveChallenge    = errors.New("no active challenge")
	ErrUnknownTask          = errors.New("unknown task")
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidTimezone      = errors.New("invalid timezone")
	ErrToggleInFlight       = errors.New("a change to this task is already in progress")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidMutation      = errors.New("invalid mutation")
	ErrInvalidPreferences   = errors.New("invalid notification preferences")
)
