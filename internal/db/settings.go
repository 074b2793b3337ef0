package db

import (
	"context"
	"fmt"

	"vendoralerts/internal/model"
)

const settingColumns = `setting_id, user_id, notification_type, is_enabled, delivery_method, created_at, updated_at`

// GetSetting returns model.ErrNotFound when the user has no row for kind.
func (s *Store) GetSetting(ctx context.Context, userID int64, kind string) (*model.Setting, error) {
	var st model.Setting
	err := s.get(ctx, &st, `
		SELECT `+settingColumns+` FROM notification_settings
		WHERE user_id = ? AND notification_type = ?
	`, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification setting: %w", err)
	}
	return &st, nil
}

func (s *Store) ListSettings(ctx context.Context, userID int64) ([]model.Setting, error) {
	var settings []model.Setting
	err := s.selectAll(ctx, &settings, `
		SELECT `+settingColumns+` FROM notification_settings
		WHERE user_id = ?
		ORDER BY notification_type
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification settings: %w", err)
	}
	return settings, nil
}

// UpsertSetting creates or replaces the user's setting for st.Kind.
func (s *Store) UpsertSetting(ctx context.Context, st *model.Setting) error {
	if !st.DeliveryMethod.Valid() {
		return model.ErrInvalidDeliveryMethod
	}

	now := s.now()
	err := s.get(ctx, &st.ID, `
		INSERT INTO notification_settings
			(user_id, notification_type, is_enabled, delivery_method, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, notification_type) DO UPDATE
		SET is_enabled = excluded.is_enabled,
		    delivery_method = excluded.delivery_method,
		    updated_at = excluded.updated_at
		RETURNING setting_id
	`, st.UserID, st.Kind, st.Enabled, string(st.DeliveryMethod), now, now)
	if err != nil {
		return fmt.Errorf("failed to save notification setting: %w", err)
	}
	st.UpdatedAt = now
	return nil
}
