package model

import "time"

// Notification is the user-visible in-app record.
type Notification struct {
	ID         int64     `db:"notification_id" json:"notification_id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	Kind       string    `db:"notification_type" json:"notification_type"`
	Message    string    `db:"message" json:"message"`
	EntityType *string   `db:"entity_type" json:"entity_type,omitempty"`
	EntityID   *int64    `db:"entity_id" json:"entity_id,omitempty"`
	QueueID    *int64    `db:"queue_id" json:"queue_id,omitempty"`
	IsRead     bool      `db:"is_read" json:"is_read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

type NotificationFilter struct {
	UserID int64
	IsRead *bool
	Limit  int
}

type RequestFilter struct {
	Status *Status
	Kind   string
	Limit  int
}
