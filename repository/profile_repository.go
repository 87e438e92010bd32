package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"goTheNineAPI/internal/user"
)

type ProfileRepository struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `id, clerk_id, display_name, avatar_url, timezone, onboarding_completed, created_at, updated_at`

func scanProfile(row pgx.Row) (*user.Profile, error) {
	p := &user.Profile{}
	err := row.Scan(&p.ID, &p.ClerkID, &p.DisplayName, &p.AvatarURL, &p.Timezone, &p.OnboardingCompleted, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *ProfileRepository) GetByClerkID(ctx context.Context, clerkID string) (*user.Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE clerk_id = $1`, clerkID))
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", clerkID, err)
	}
	return p, nil
}

// GetOrCreate inserts a bare profile on first sight of a Clerk user. The
// no-op update makes RETURNING yield the existing row on conflict.
func (r *ProfileRepository) GetOrCreate(ctx context.Context, clerkID, timezone string) (*user.Profile, error) {
	query := `
		INSERT INTO profiles (id, clerk_id, timezone)
		VALUES ($1, $2, $3)
		ON CONFLICT (clerk_id) DO UPDATE SET clerk_id = EXCLUDED.clerk_id
		RETURNING ` + profileColumns

	p, err := scanProfile(r.db.QueryRow(ctx, query, uuid.New(), clerkID, timezone))
	if err != nil {
		return nil, fmt.Errorf("get or create profile %s: %w", clerkID, err)
	}
	return p, nil
}

func (r *ProfileRepository) Update(ctx context.Context, p *user.Profile) error {
	query := `
		UPDATE profiles
		SET display_name = $2, avatar_url = $3, timezone = $4, onboarding_completed = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, p.ID, p.DisplayName, p.AvatarURL, p.Timezone, p.OnboardingCompleted).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update profile %s: %w", p.ClerkID, notFound(err))
	}
	return nil
}

func (r *ProfileRepository) Delete(ctx context.Context, clerkID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("delete profile %s: %w", clerkID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
