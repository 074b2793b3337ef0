package migrations

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"vendoralerts/internal/config"
)

func openMemory(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteUpDown(t *testing.T) {
	db := openMemory(t)

	m, err := NewSQLite(db.DB)
	require.NoError(t, err)
	defer m.Close()

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, m.Up())
	require.NoError(t, m.Up(), "second Up is a no-op")

	version, dirty, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	var n int
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM notification_queue"))
	assert.Zero(t, n)

	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	err = db.Get(&n, "SELECT COUNT(*) FROM notification_queue")
	assert.Error(t, err)

	// The caller's handle survives Close.
	require.NoError(t, m.Close())
	require.NoError(t, db.Ping())
}

func TestQueueConstraints(t *testing.T) {
	db := openMemory(t)
	m, err := NewSQLite(db.DB)
	require.NoError(t, err)
	require.NoError(t, m.Up())

	_, err = db.Exec(`INSERT INTO notification_queue (notification_type, message, priority) VALUES ('x', 'm', 4)`)
	assert.Error(t, err)

	_, err = db.Exec(`INSERT INTO notification_queue (notification_type, message, status) VALUES ('x', 'm', 'lost')`)
	assert.Error(t, err)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(config.DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)
}
