package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"goTheNineAPI/internal/progress"
	"goTheNineAPI/internal/task"
)

type ProgressRepository struct {
	db *pgxpool.Pool
}

func NewProgressRepository(db *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{db: db}
}

const progressColumns = `id, challenge_id, date, tasks, tasks_completed, is_complete, created_at, updated_at`

func scanProgress(row pgx.Row) (*progress.DailyProgress, error) {
	p := &progress.DailyProgress{}
	var raw []byte
	if err := row.Scan(&p.ID, &p.ChallengeID, &p.Date, &raw, &p.TasksCompleted, &p.IsComplete, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	p.Tasks = task.Map{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p.Tasks); err != nil {
			return nil, fmt.Errorf("decode tasks for %s: %w", p.Date, err)
		}
	}
	return p, nil
}

func (r *ProgressRepository) Get(ctx context.Context, challengeID uuid.UUID, date string) (*progress.DailyProgress, error) {
	p, err := scanProgress(r.db.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM daily_progress WHERE challenge_id = $1 AND date = $2`, challengeID, date))
	if err != nil {
		return nil, fmt.Errorf("get progress %s: %w", date, err)
	}
	return p, nil
}

func collectProgress(rows pgx.Rows) ([]*progress.DailyProgress, error) {
	defer rows.Close()
	out := []*progress.DailyProgress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListByChallenge returns every recorded day, oldest first.
func (r *ProgressRepository) ListByChallenge(ctx context.Context, challengeID uuid.UUID) ([]*progress.DailyProgress, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+progressColumns+` FROM daily_progress WHERE challenge_id = $1 ORDER BY date`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	out, err := collectProgress(rows)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return out, nil
}

func (r *ProgressRepository) ListByChallenges(ctx context.Context, challengeIDs []uuid.UUID) (map[uuid.UUID][]*progress.DailyProgress, error) {
	byChallenge := make(map[uuid.UUID][]*progress.DailyProgress, len(challengeIDs))
	if len(challengeIDs) == 0 {
		return byChallenge, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+progressColumns+` FROM daily_progress WHERE challenge_id = ANY($1) ORDER BY challenge_id, date`, challengeIDs)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	all, err := collectProgress(rows)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	for _, p := range all {
		byChallenge[p.ChallengeID] = append(byChallenge[p.ChallengeID], p)
	}
	return byChallenge, nil
}

// Mutate loads the day's row under a row lock, creating it when missing,
// applies fn, recounts and writes it back. Concurrent writers to the same
// day are serialized by the lock.
func (r *ProgressRepository) Mutate(ctx context.Context, challengeID uuid.UUID, date string, fn func(*progress.DailyProgress) error) (*progress.DailyProgress, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin progress write: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO daily_progress (id, challenge_id, date)
		VALUES ($1, $2, $3)
		ON CONFLICT (challenge_id, date) DO NOTHING`,
		uuid.New(), challengeID, date)
	if err != nil {
		return nil, fmt.Errorf("create progress %s: %w", date, err)
	}

	p, err := scanProgress(tx.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM daily_progress WHERE challenge_id = $1 AND date = $2 FOR UPDATE`, challengeID, date))
	if err != nil {
		return nil, fmt.Errorf("lock progress %s: %w", date, err)
	}

	if err := fn(p); err != nil {
		return nil, err
	}
	p.Recount()

	raw, err := json.Marshal(p.Tasks)
	if err != nil {
		return nil, fmt.Errorf("encode tasks: %w", err)
	}

	err = tx.QueryRow(ctx, `
		UPDATE daily_progress
		SET tasks = $2, tasks_completed = $3, is_complete = $4, updated_at = $5
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, string(raw), p.TasksCompleted, p.IsComplete, time.Now()).Scan(&p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update progress %s: %w", date, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit progress %s: %w", date, err)
	}
	return p, nil
}
