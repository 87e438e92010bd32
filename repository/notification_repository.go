package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"goTheNineAPI/internal/notification"
)

type NotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores n and reports false when a notification with the same tag
// already exists for the user.
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) (bool, error) {
	actions, err := json.Marshal(n.Actions)
	if err != nil {
		return false, fmt.Errorf("encode actions: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, kind, title, body, tag, actions, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)
		ON CONFLICT (user_id, tag) DO NOTHING`,
		n.ID, n.UserID, n.Kind, n.Title, n.Body, n.Tag, string(actions), n.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("create notification: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// List returns one page, newest first, and the total count.
func (r *NotificationRepository) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]notification.Notification, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, kind, title, body, tag, actions, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := []notification.Notification{}
	for rows.Next() {
		var n notification.Notification
		var actions []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.Tag, &actions, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		if err := json.Unmarshal(actions, &n.Actions); err != nil {
			return nil, 0, fmt.Errorf("decode actions: %w", err)
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *NotificationRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) GetPreferences(ctx context.Context, userID uuid.UUID) (*notification.Preferences, error) {
	p := &notification.Preferences{}
	var tokens []byte
	err := r.db.QueryRow(ctx, `
		SELECT user_id, push_enabled, in_app_enabled, morning_reminder, evening_reminder, streak_reminder,
		       quiet_hours_start, quiet_hours_end, device_tokens, updated_at
		FROM notification_preferences
		WHERE user_id = $1`, userID).Scan(
		&p.UserID, &p.PushEnabled, &p.InAppEnabled, &p.MorningReminder, &p.EveningReminder, &p.StreakReminder,
		&p.QuietHoursStart, &p.QuietHoursEnd, &tokens, &p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", notFound(err))
	}
	if err := json.Unmarshal(tokens, &p.DeviceTokens); err != nil {
		return nil, fmt.Errorf("decode device tokens: %w", err)
	}
	return p, nil
}

func (r *NotificationRepository) SavePreferences(ctx context.Context, p *notification.Preferences) error {
	if p.DeviceTokens == nil {
		p.DeviceTokens = []notification.DeviceToken{}
	}
	tokens, err := json.Marshal(p.DeviceTokens)
	if err != nil {
		return fmt.Errorf("encode device tokens: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO notification_preferences (user_id, push_enabled, in_app_enabled, morning_reminder, evening_reminder,
			streak_reminder, quiet_hours_start, quiet_hours_end, device_tokens, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			push_enabled = EXCLUDED.push_enabled,
			in_app_enabled = EXCLUDED.in_app_enabled,
			morning_reminder = EXCLUDED.morning_reminder,
			evening_reminder = EXCLUDED.evening_reminder,
			streak_reminder = EXCLUDED.streak_reminder,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			device_tokens = EXCLUDED.device_tokens,
			updated_at = NOW()
		RETURNING updated_at`,
		p.UserID, p.PushEnabled, p.InAppEnabled, p.MorningReminder, p.EveningReminder,
		p.StreakReminder, p.QuietHoursStart, p.QuietHoursEnd, string(tokens)).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}
