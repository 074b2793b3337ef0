package notification

import (
	"time"

	"vendoralerts/internal/model"
)

type NotificationView struct {
	ID         int64     `json:"notification_id"`
	Kind       string    `json:"notification_type"`
	Message    string    `json:"message"`
	EntityType *string   `json:"entity_type,omitempty"`
	EntityID   *int64    `json:"entity_id,omitempty"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

type SettingView struct {
	Kind           string               `json:"notification_type"`
	Enabled        bool                 `json:"is_enabled"`
	DeliveryMethod model.DeliveryMethod `json:"delivery_method"`
}

type SettingUpdate struct {
	Kind           string               `json:"notification_type" validate:"required,max=50"`
	Enabled        *bool                `json:"is_enabled" validate:"required"`
	DeliveryMethod model.DeliveryMethod `json:"delivery_method" validate:"required,oneof=in_app email both"`
}

// ManualRequest is an externally submitted notification. Priority defaults
// to low when omitted.
type ManualRequest struct {
	Kind       string           `json:"notification_type" validate:"required,max=50"`
	Message    string           `json:"message" validate:"required"`
	EntityType *string          `json:"entity_type,omitempty" validate:"required_with=EntityID,omitempty,max=50"`
	EntityID   *int64           `json:"entity_id,omitempty" validate:"required_with=EntityType"`
	Recipients model.Recipients `json:"recipients"`
	Priority   model.Priority   `json:"priority" validate:"omitempty,min=1,max=3"`
}

func toView(n model.Notification) NotificationView {
	return NotificationView{
		ID:         n.ID,
		Kind:       n.Kind,
		Message:    n.Message,
		EntityType: n.EntityType,
		EntityID:   n.EntityID,
		IsRead:     n.IsRead,
		CreatedAt:  n.CreatedAt,
	}
}
