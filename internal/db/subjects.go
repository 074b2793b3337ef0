package db

import (
	"context"
	"fmt"
	"time"

	"vendoralerts/internal/model"
)

// ApprovalsToNotify returns approvals changed since the cutoff whose
// watermark is older than their last change.
func (s *Store) ApprovalsToNotify(ctx context.Context, since time.Time) ([]model.Approval, error) {
	var approvals []model.Approval
	err := s.selectAll(ctx, &approvals, `
		SELECT approval_id, vendor_id, product_id, approval_type, regulatory_body, status,
		       last_notification_sent, updated_at
		FROM regulatory_approvals
		WHERE updated_at >= ?
		  AND (last_notification_sent IS NULL OR last_notification_sent < updated_at)
		ORDER BY updated_at, approval_id
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get approvals to notify: %w", err)
	}
	return approvals, nil
}

// ConflictsToNotify returns unresolved conflicts whose watermark is older
// than their last change.
func (s *Store) ConflictsToNotify(ctx context.Context) ([]model.Conflict, error) {
	var conflicts []model.Conflict
	err := s.selectAll(ctx, &conflicts, `
		SELECT conflict_id, entity_type, entity_id, field_name, source_1, value_1, source_2, value_2,
		       conflict_status, last_notification_sent, updated_at
		FROM data_conflicts
		WHERE conflict_status = ?
		  AND (last_notification_sent IS NULL OR last_notification_sent < updated_at)
		ORDER BY updated_at, conflict_id
	`, model.ConflictUnresolved)
	if err != nil {
		return nil, fmt.Errorf("failed to get conflicts to notify: %w", err)
	}
	return conflicts, nil
}

// AdvanceApprovalWatermark sets the watermark to the observed updated_at.
// It reports false when another sweep already advanced it that far.
func (s *Store) AdvanceApprovalWatermark(ctx context.Context, id int64, observed time.Time) (bool, error) {
	n, err := s.exec(ctx, `
		UPDATE regulatory_approvals
		SET last_notification_sent = ?
		WHERE approval_id = ?
		  AND (last_notification_sent IS NULL OR last_notification_sent < ?)
	`, observed, id, observed)
	if err != nil {
		return false, fmt.Errorf("failed to advance approval %d watermark: %w", id, err)
	}
	return n > 0, nil
}

func (s *Store) AdvanceConflictWatermark(ctx context.Context, id int64, observed time.Time) (bool, error) {
	n, err := s.exec(ctx, `
		UPDATE data_conflicts
		SET last_notification_sent = ?
		WHERE conflict_id = ?
		  AND (last_notification_sent IS NULL OR last_notification_sent < ?)
	`, observed, id, observed)
	if err != nil {
		return false, fmt.Errorf("failed to advance conflict %d watermark: %w", id, err)
	}
	return n > 0, nil
}

func (s *Store) GetApproval(ctx context.Context, id int64) (*model.Approval, error) {
	var a model.Approval
	err := s.get(ctx, &a, `
		SELECT approval_id, vendor_id, product_id, approval_type, regulatory_body, status,
		       last_notification_sent, updated_at
		FROM regulatory_approvals WHERE approval_id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get approval %d: %w", id, err)
	}
	return &a, nil
}
