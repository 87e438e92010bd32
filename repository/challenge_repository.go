package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"goTheNineAPI/internal/challenge"
	"goTheNineAPI/internal/clock"
)

type ChallengeRepository struct {
	db *pgxpool.Pool
}

func NewChallengeRepository(db *pgxpool.Pool) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

const challengeColumns = `id, user_id, name, start_date, end_date, is_active, created_at`

func scanChallenge(row pgx.Row) (*challenge.Challenge, error) {
	c := &challenge.Challenge{}
	var start, end time.Time
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &start, &end, &c.IsActive, &c.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	c.StartDate = clock.FormatDate(start)
	c.EndDate = clock.FormatDate(end)
	return c, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertChallenge(ctx context.Context, db execer, c *challenge.Challenge) error {
	start, err := clock.ParseDate(c.StartDate)
	if err != nil {
		return err
	}
	end, err := clock.ParseDate(c.EndDate)
	if err != nil {
		return err
	}

	_, err = db.Exec(ctx, `
		INSERT INTO challenges (id, user_id, name, start_date, end_date, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.UserID, c.Name, start, end, c.IsActive, c.CreatedAt)
	if isUniqueViolation(err, activeChallengeIndex) {
		return ErrDuplicateActiveChallenge
	}
	return err
}

// Create inserts c. A second active challenge for the same user fails with
// ErrDuplicateActiveChallenge.
func (r *ChallengeRepository) Create(ctx context.Context, c *challenge.Challenge) error {
	if err := insertChallenge(ctx, r.db, c); err != nil {
		return fmt.Errorf("create challenge: %w", err)
	}
	return nil
}

func (r *ChallengeRepository) GetActive(ctx context.Context, userID uuid.UUID) (*challenge.Challenge, error) {
	c, err := scanChallenge(r.db.QueryRow(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE user_id = $1 AND is_active`, userID))
	if err != nil {
		return nil, fmt.Errorf("get active challenge: %w", err)
	}
	return c, nil
}

func (r *ChallengeRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*challenge.Challenge, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	defer rows.Close()

	out := []*challenge.Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Replace deactivates the user's active challenge, if any, and inserts next
// in the same transaction.
func (r *ChallengeRepository) Replace(ctx context.Context, userID uuid.UUID, next *challenge.Challenge) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin restart: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE challenges SET is_active = FALSE WHERE user_id = $1 AND is_active`, userID); err != nil {
		return fmt.Errorf("deactivate challenge: %w", err)
	}
	if err := insertChallenge(ctx, tx, next); err != nil {
		return fmt.Errorf("create challenge: %w", err)
	}
	return tx.Commit(ctx)
}
