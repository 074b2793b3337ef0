// Package dbtest provides an in-memory SQLite store with the full schema
// applied, plus seeding helpers for catalog-owned tables.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"vendoralerts/internal/config"
	"vendoralerts/internal/db"
	"vendoralerts/internal/migrations"
	"vendoralerts/internal/model"
)

// New returns a migrated store that is closed when the test ends.
func New(t testing.TB, opts ...db.Option) *db.Store {
	t.Helper()

	conn, err := db.Connect(config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	m, err := migrations.NewSQLite(conn.DB)
	require.NoError(t, err)
	require.NoError(t, m.Up())

	return db.New(conn, opts...)
}

// User inserts an active user with the given role.
func User(t testing.TB, store *db.Store, username, role string) model.User {
	t.Helper()
	u := model.User{Username: username, Email: username + "@example.com", Role: role, IsActive: true}
	require.NoError(t, store.CreateUser(context.Background(), &u))
	return u
}

// InactiveUser inserts a deactivated user with the given role.
func InactiveUser(t testing.TB, store *db.Store, username, role string) model.User {
	t.Helper()
	u := model.User{Username: username, Email: username + "@example.com", Role: role}
	require.NoError(t, store.CreateUser(context.Background(), &u))
	return u
}

// Approval inserts a regulatory approval and returns its id.
func Approval(t testing.TB, conn *sqlx.DB, a model.Approval) int64 {
	t.Helper()
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = model.Now()
	}
	if a.Status == "" {
		a.Status = "active"
	}

	var id int64
	err := conn.Get(&id, conn.Rebind(`
		INSERT INTO regulatory_approvals
			(approval_id, vendor_id, product_id, approval_type, regulatory_body, status,
			 last_notification_sent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING approval_id
	`), nullID(a.ID), a.VendorID, a.ProductID, a.ApprovalType, a.RegulatoryBody, a.Status,
		a.LastNotificationSent, a.UpdatedAt, a.UpdatedAt)
	require.NoError(t, err)
	return id
}

// Conflict inserts a data conflict and returns its id.
func Conflict(t testing.TB, conn *sqlx.DB, c model.Conflict) int64 {
	t.Helper()
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = model.Now()
	}
	if c.Status == "" {
		c.Status = model.ConflictUnresolved
	}

	var id int64
	err := conn.Get(&id, conn.Rebind(`
		INSERT INTO data_conflicts
			(entity_type, entity_id, field_name, source_1, value_1, source_2, value_2,
			 conflict_status, last_notification_sent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING conflict_id
	`), c.EntityType, c.EntityID, c.FieldName, c.Source1, c.Value1, c.Source2, c.Value2,
		c.Status, c.LastNotificationSent, c.UpdatedAt, c.UpdatedAt)
	require.NoError(t, err)
	return id
}

// Touch sets updated_at on a catalog row, as a catalog edit would.
func Touch(t testing.TB, conn *sqlx.DB, table, idColumn string, id int64, at time.Time) {
	t.Helper()
	_, err := conn.Exec(conn.Rebind(`UPDATE `+table+` SET updated_at = ? WHERE `+idColumn+` = ?`), at, id)
	require.NoError(t, err)
}

func nullID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
