package model

import "time"

const (
	EntityApproval = "approval"
	EntityVendor   = "vendor"
	EntityProduct  = "product"
)

const ConflictUnresolved = "unresolved"

// Approval is a regulatory approval owned by the catalog.
type Approval struct {
	ID                   int64      `db:"approval_id"`
	VendorID             int64      `db:"vendor_id"`
	ProductID            *int64     `db:"product_id"`
	ApprovalType         string     `db:"approval_type"`
	RegulatoryBody       string     `db:"regulatory_body"`
	Status               string     `db:"status"`
	LastNotificationSent *time.Time `db:"last_notification_sent"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

// Conflict is a disagreement between two data sources for one field.
type Conflict struct {
	ID                   int64      `db:"conflict_id"`
	EntityType           string     `db:"entity_type"`
	EntityID             int64      `db:"entity_id"`
	FieldName            string     `db:"field_name"`
	Source1              string     `db:"source_1"`
	Value1               string     `db:"value_1"`
	Source2              string     `db:"source_2"`
	Value2               string     `db:"value_2"`
	Status               string     `db:"conflict_status"`
	LastNotificationSent *time.Time `db:"last_notification_sent"`
	UpdatedAt            time.Time  `db:"updated_at"`
}
