package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-reservations/internal/model"
)

// NotificationRepository is the in-app inbox.
type NotificationRepository struct {
	base
}

// NewNotificationRepository constructs a NotificationRepository.
func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{base{db: db}}
}

// AddNotification stores a notice for a user.
func (r *NotificationRepository) AddNotification(ctx context.Context, n *model.Notification) error {
	_, err := r.exec(ctx,
		`INSERT INTO notifications (id, user_id, reservation_id, kind, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.UserID, n.ReservationID, n.Kind, n.Message, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns a user's newest notices first.
func (r *NotificationRepository) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	rows, err := r.query(ctx,
		`SELECT id, user_id, reservation_id, kind, message, created_at
		 FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		if isInvalidText(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.ReservationID, &n.Kind, &n.Message, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
