package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"crewplanner/internal/domain"

	"github.com/google/uuid"
)

// NotificationQueueRepository is the durable notification queue. Producers
// insert rows; the drainer reads pending rows and marks them sent or failed.
type NotificationQueueRepository struct {
	DB  *sql.DB
	now func() time.Time
}

func NewNotificationQueueRepository(db *sql.DB) *NotificationQueueRepository {
	return &NotificationQueueRepository{DB: db, now: time.Now}
}

var (
	_ domain.NotificationQueue  = (*NotificationQueueRepository)(nil)
	_ domain.NotificationOutbox = (*NotificationQueueRepository)(nil)
)

func (r *NotificationQueueRepository) Queue(ctx context.Context, req domain.NotificationRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	props, err := json.Marshal(req.Props)
	if err != nil {
		return fmt.Errorf("marshal notification props: %w", err)
	}
	query := `
		INSERT INTO notification_queue (id, type, recipient, user_key, event_key, props, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.DB.ExecContext(ctx, query, req.ID, string(req.Type), req.To, string(req.UserKey), string(req.EventKey), props, r.now())
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// NextBatch returns up to limit unsent notifications, oldest first, that
// have been tried fewer than maxAttempts times.
func (r *NotificationQueueRepository) NextBatch(ctx context.Context, limit, maxAttempts int) ([]domain.QueuedNotification, error) {
	query := `
		SELECT id, type, recipient, user_key, event_key, props, attempts, created_at
		FROM notification_queue
		WHERE sent_at IS NULL AND attempts < $1
		ORDER BY created_at, id
		LIMIT $2
	`
	rows, err := r.DB.QueryContext(ctx, query, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var batch []domain.QueuedNotification
	for rows.Next() {
		var (
			n     domain.QueuedNotification
			props []byte
		)
		if err := rows.Scan(&n.Request.ID, &n.Request.Type, &n.Request.To, &n.Request.UserKey, &n.Request.EventKey,
			&props, &n.Attempts, &n.CreatedAt); err != nil {
			return nil, err
		}
		if len(props) > 0 {
			if err := json.Unmarshal(props, &n.Request.Props); err != nil {
				return nil, fmt.Errorf("decode props of notification %s: %w", n.Request.ID, err)
			}
		}
		batch = append(batch, n)
	}
	return batch, rows.Err()
}

func (r *NotificationQueueRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	result, err := r.DB.ExecContext(ctx, `UPDATE notification_queue SET sent_at = $2, last_error = NULL WHERE id = $1`, id, sentAt)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *NotificationQueueRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	result, err := r.DB.ExecContext(ctx, `UPDATE notification_queue SET attempts = attempts + 1, last_error = $2 WHERE id = $1`, id, reason)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
