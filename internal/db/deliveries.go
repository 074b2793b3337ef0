package db

import (
	"context"
	"fmt"
)

// WasDelivered reports whether queueID already reached userID over channel.
func (s *Store) WasDelivered(ctx context.Context, queueID, userID int64, channel string) (bool, error) {
	var n int
	err := s.get(ctx, &n, `
		SELECT COUNT(*) FROM notification_deliveries
		WHERE queue_id = ? AND user_id = ? AND channel = ?
	`, queueID, userID, channel)
	if err != nil {
		return false, fmt.Errorf("failed to check delivery log: %w", err)
	}
	return n > 0, nil
}

// RecordDelivery is idempotent.
func (s *Store) RecordDelivery(ctx context.Context, queueID, userID int64, channel string) error {
	_, err := s.exec(ctx, `
		INSERT INTO notification_deliveries (queue_id, user_id, channel, delivered_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (queue_id, user_id, channel) DO NOTHING
	`, queueID, userID, channel, s.now())
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}
