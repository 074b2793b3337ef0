package model

import "time"

type DeliveryMethod string

const (
	DeliveryInApp DeliveryMethod = "in_app"
	DeliveryEmail DeliveryMethod = "email"
	DeliveryBoth  DeliveryMethod = "both"
)

func (m DeliveryMethod) Valid() bool {
	return m == DeliveryInApp || m == DeliveryEmail || m == DeliveryBoth
}

func (m DeliveryMethod) InApp() bool { return m == DeliveryInApp || m == DeliveryBoth }

func (m DeliveryMethod) Email() bool { return m == DeliveryEmail || m == DeliveryBoth }

// Notification kinds produced by this system.
const (
	KindRegulatoryApproval = "regulatory_approval"
	KindDataConflict       = "data_conflict"
	KindSystemUpdate       = "system_update"
)

// KnownKinds are the kinds every user has an effective setting for.
var KnownKinds = []string{KindRegulatoryApproval, KindDataConflict, KindSystemUpdate}

type Setting struct {
	ID             int64          `db:"setting_id" json:"setting_id"`
	UserID         int64          `db:"user_id" json:"user_id"`
	Kind           string         `db:"notification_type" json:"notification_type"`
	Enabled        bool           `db:"is_enabled" json:"is_enabled"`
	DeliveryMethod DeliveryMethod `db:"delivery_method" json:"delivery_method"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// DefaultSetting is what applies when a user has no row for kind.
func DefaultSetting(userID int64, kind string) Setting {
	return Setting{
		UserID:         userID,
		Kind:           kind,
		Enabled:        true,
		DeliveryMethod: DeliveryInApp,
	}
}
