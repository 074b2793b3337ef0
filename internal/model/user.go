package model

import "time"

const (
	RoleAdmin             = "admin"
	RoleComplianceManager = "compliance_manager"
	RoleDataManager       = "data_manager"
)

type User struct {
	ID        int64     `db:"user_id" json:"user_id"`
	Username  string    `db:"username" json:"username"`
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"role"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Now is the clock used for every persisted timestamp. Times are UTC with
// microsecond precision so they compare equal after a database round trip.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
