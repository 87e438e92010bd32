package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"goTheNineAPI/internal/challenge"
	"goTheNineAPI/internal/clock"
	"goTheNineAPI/internal/user"
)

// Participant is a profile with its active challenge.
type Participant struct {
	Profile   user.Profile
	Challenge challenge.Challenge
}

type CommunityRepository struct {
	db *pgxpool.Pool
}

func NewCommunityRepository(db *pgxpool.Pool) *CommunityRepository {
	return &CommunityRepository{db: db}
}

func (r *CommunityRepository) ActiveParticipants(ctx context.Context) ([]Participant, error) {
	query := `
		SELECT p.id, p.clerk_id, p.display_name, p.avatar_url, p.timezone, p.onboarding_completed, p.created_at, p.updated_at,
		       c.id, c.user_id, c.name, c.start_date, c.end_date, c.is_active, c.created_at
		FROM profiles p
		JOIN challenges c ON c.user_id = p.id AND c.is_active`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	out := []Participant{}
	for rows.Next() {
		var pt Participant
		var start, end time.Time
		p, c := &pt.Profile, &pt.Challenge
		err := rows.Scan(
			&p.ID, &p.ClerkID, &p.DisplayName, &p.AvatarURL, &p.Timezone, &p.OnboardingCompleted, &p.CreatedAt, &p.UpdatedAt,
			&c.ID, &c.UserID, &c.Name, &start, &end, &c.IsActive, &c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		c.StartDate = clock.FormatDate(start)
		c.EndDate = clock.FormatDate(end)
		out = append(out, pt)
	}
	return out, rows.Err()
}
