package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vendoralerts/internal/model"
)

const requestColumns = `queue_id, notification_type, entity_type, entity_id, message, recipients,
	priority, status, retry_count, error_message, available_at, claimed_by, claimed_at,
	created_at, updated_at`

const defaultListLimit = 100

// Enqueue durably inserts req as a pending request and fills in its
// generated fields.
func (s *Store) Enqueue(ctx context.Context, req *model.Request) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	now := s.now()
	var id int64
	err := s.get(ctx, &id, `
		INSERT INTO notification_queue
			(notification_type, entity_type, entity_id, message, recipients, priority,
			 status, retry_count, available_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
		RETURNING queue_id
	`, req.Kind, req.EntityType, req.EntityID, req.Message, req.Recipients, int(req.Priority),
		string(model.StatusPending), now, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue notification: %w", err)
	}

	req.ID = id
	req.Status = model.StatusPending
	req.RetryCount = 0
	req.ErrorMessage = nil
	req.AvailableAt = now
	req.CreatedAt = now
	req.UpdatedAt = now
	return id, nil
}

// LoadPending returns due pending requests in dispatch order.
func (s *Store) LoadPending(ctx context.Context, now time.Time, limit int) ([]model.Request, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var reqs []model.Request
	err := s.selectAll(ctx, &reqs, `
		SELECT `+requestColumns+`
		FROM notification_queue
		WHERE status = ? AND available_at <= ?
		ORDER BY priority DESC, created_at ASC, queue_id ASC
		LIMIT ?
	`, string(model.StatusPending), now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending notifications: %w", err)
	}
	return reqs, nil
}

// Claim moves a due pending request to processing on behalf of owner.
// It returns model.ErrNotClaimed when the request is not pending, not yet
// due, or was claimed by someone else first.
func (s *Store) Claim(ctx context.Context, id int64, owner string, now time.Time) (*model.Request, error) {
	n, err := s.exec(ctx, `
		UPDATE notification_queue
		SET status = ?, claimed_by = ?, claimed_at = ?, updated_at = ?
		WHERE queue_id = ? AND status = ? AND available_at <= ?
	`, string(model.StatusProcessing), owner, now, now, id, string(model.StatusPending), now)
	if err != nil {
		return nil, fmt.Errorf("failed to claim notification %d: %w", id, err)
	}
	if n == 0 {
		return nil, model.ErrNotClaimed
	}
	return s.GetRequest(ctx, id)
}

// UpdateStatus persists a dispatcher transition. retry_count only ever grows.
func (s *Store) UpdateStatus(ctx context.Context, u model.StatusUpdate) error {
	if !u.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", model.ErrInvalidRequest, u.Status)
	}
	at := u.At
	if at.IsZero() {
		at = s.now()
	}

	sets := []string{"status = ?", "updated_at = ?"}
	args := []any{string(u.Status), at}

	if u.RetryCount != nil {
		sets = append(sets, "retry_count = CASE WHEN ? > retry_count THEN ? ELSE retry_count END")
		args = append(args, *u.RetryCount, *u.RetryCount)
	}
	if u.Error != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, *u.Error)
	}
	if u.AvailableAt != nil {
		sets = append(sets, "available_at = ?")
		args = append(args, *u.AvailableAt)
	}
	if u.Status != model.StatusProcessing {
		sets = append(sets, "claimed_by = NULL", "claimed_at = NULL")
	}

	query := "UPDATE notification_queue SET " + strings.Join(sets, ", ") + " WHERE queue_id = ?"
	args = append(args, u.ID)
	if u.Owner != "" {
		query += " AND status = ? AND claimed_by = ?"
		args = append(args, string(model.StatusProcessing), u.Owner)
	}

	n, err := s.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update notification %d: %w", u.ID, err)
	}
	if n == 0 {
		if u.Owner != "" {
			return model.ErrNotClaimed
		}
		return model.ErrNotFound
	}
	return nil
}

// LeaseExpired is recorded on requests whose worker never finished them.
const LeaseExpired = "processing lease expired"

// ReapStale returns requests stuck in processing for longer than timeout to
// pending, counting the lost attempt, or fails them once maxRetries attempts
// have been used.
func (s *Store) ReapStale(ctx context.Context, timeout time.Duration, maxRetries int, now time.Time) (int, error) {
	cutoff := now.Add(-timeout)
	var total int64

	err := s.WithTx(ctx, func(tx *Store) error {
		n, err := tx.exec(ctx, `
			UPDATE notification_queue
			SET status = ?, retry_count = retry_count + 1, error_message = ?,
			    claimed_by = NULL, claimed_at = NULL, updated_at = ?
			WHERE status = ? AND claimed_at < ? AND retry_count + 1 >= ?
		`, string(model.StatusFailed), LeaseExpired, now, string(model.StatusProcessing), cutoff, maxRetries)
		if err != nil {
			return err
		}
		total += n

		n, err = tx.exec(ctx, `
			UPDATE notification_queue
			SET status = ?, retry_count = retry_count + 1, error_message = ?,
			    available_at = ?, claimed_by = NULL, claimed_at = NULL, updated_at = ?
			WHERE status = ? AND claimed_at < ? AND retry_count + 1 < ?
		`, string(model.StatusPending), LeaseExpired, now, now, string(model.StatusProcessing), cutoff, maxRetries)
		if err != nil {
			return err
		}
		total += n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to reap stale notifications: %w", err)
	}
	return int(total), nil
}

func (s *Store) GetRequest(ctx context.Context, id int64) (*model.Request, error) {
	var req model.Request
	err := s.get(ctx, &req, `SELECT `+requestColumns+` FROM notification_queue WHERE queue_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification %d: %w", id, err)
	}
	return &req, nil
}

// ListRequests is the audit view of the queue, newest first.
func (s *Store) ListRequests(ctx context.Context, f model.RequestFilter) ([]model.Request, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.Kind != "" {
		where = append(where, "notification_type = ?")
		args = append(args, f.Kind)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT ` + requestColumns + ` FROM notification_queue`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, queue_id DESC LIMIT ?"
	args = append(args, limit)

	reqs := []model.Request{}
	if err := s.selectAll(ctx, &reqs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return reqs, nil
}
