package db

import (
	"context"
	"fmt"

	"vendoralerts/internal/model"
)

const notificationColumns = `notification_id, user_id, notification_type, message, entity_type, entity_id,
	queue_id, is_read, created_at, updated_at`

func (s *Store) CreateNotification(ctx context.Context, n *model.Notification) error {
	now := s.now()
	err := s.get(ctx, &n.ID, `
		INSERT INTO notifications
			(user_id, notification_type, message, entity_type, entity_id, queue_id, is_read, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING notification_id
	`, n.UserID, n.Kind, n.Message, n.EntityType, n.EntityID, n.QueueID, false, now, now)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	n.IsRead = false
	n.CreatedAt = now
	n.UpdatedAt = now
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, f model.NotificationFilter) ([]model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ?`
	args := []any{f.UserID}
	if f.IsRead != nil {
		query += " AND is_read = ?"
		args = append(args, *f.IsRead)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " ORDER BY created_at DESC, notification_id DESC LIMIT ?"
	args = append(args, limit)

	notifications := []model.Notification{}
	if err := s.selectAll(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flags a notification owned by userID as read.
func (s *Store) MarkRead(ctx context.Context, userID, notificationID int64) error {
	n, err := s.exec(ctx, `
		UPDATE notifications SET is_read = ?, updated_at = ?
		WHERE notification_id = ? AND user_id = ?
	`, true, s.now(), notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification %d read: %w", notificationID, err)
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}
