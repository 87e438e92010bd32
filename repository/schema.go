package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id UUID PRIMARY KEY,
		clerk_id TEXT UNIQUE NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		avatar_url TEXT,
		timezone TEXT NOT NULL DEFAULT 'America/New_York',
		onboarding_completed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS challenges (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		name TEXT NOT NULL DEFAULT '75 Hard',
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + activeChallengeIndex + `
		ON challenges (user_id) WHERE is_active`,
	`CREATE INDEX IF NOT EXISTS challenges_user_created ON challenges (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS daily_progress (
		id UUID PRIMARY KEY,
		challenge_id UUID NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		tasks JSONB NOT NULL DEFAULT '{}'::jsonb,
		tasks_completed INT NOT NULL DEFAULT 0,
		is_complete BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (challenge_id, date),
		CHECK (is_complete = (tasks_completed = 6))
	)`,
	`CREATE TABLE IF NOT EXISTS notification_preferences (
		user_id UUID PRIMARY KEY REFERENCES profiles(id) ON DELETE CASCADE,
		push_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		in_app_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		morning_reminder TEXT NOT NULL DEFAULT '07:00',
		evening_reminder TEXT NOT NULL DEFAULT '20:00',
		streak_reminder TEXT NOT NULL DEFAULT '21:00',
		quiet_hours_start TEXT NOT NULL DEFAULT '',
		quiet_hours_end TEXT NOT NULL DEFAULT '',
		device_tokens JSONB NOT NULL DEFAULT '[]'::jsonb,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		tag TEXT NOT NULL,
		actions JSONB NOT NULL DEFAULT '[]'::jsonb,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, tag)
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_user_created ON notifications (user_id, created_at DESC)`,
}

// EnsureSchema creates the tables and indexes that do not exist yet.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
