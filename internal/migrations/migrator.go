package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"vendoralerts/internal/config"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Migrator wraps a migrate instance for one of the supported dialects.
type Migrator struct {
	m *migrate.Migrate
	// owned is false when the database handle belongs to the caller.
	owned bool
}

func source(driver string) (fs.FS, string, error) {
	switch driver {
	case config.DriverPostgres, config.DriverSQLite:
		return files, driver, nil
	default:
		return nil, "", fmt.Errorf("unsupported migration driver %q", driver)
	}
}

// New opens its own connection from the configured migrate URL.
func New(cfg config.DatabaseConfig) (*Migrator, error) {
	fsys, dir, err := source(cfg.Driver)
	if err != nil {
		return nil, err
	}

	sourceDriver, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return &Migrator{m: m, owned: true}, nil
}

// NewSQLite migrates an already open SQLite handle, which is how in-memory
// databases get their schema. The handle stays open after Close.
func NewSQLite(db *sql.DB) (*Migrator, error) {
	sourceDriver, err := iofs.New(files, config.DriverSQLite)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	dbDriver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, config.DriverSQLite, dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return &Migrator{m: m}, nil
}

// Close releases the migrator's own connection, if it has one.
func (m *Migrator) Close() error {
	if !m.owned {
		return nil
	}
	srcErr, dbErr := m.m.Close()
	if srcErr != nil {
		return fmt.Errorf("failed to close migration source: %w", srcErr)
	}
	if dbErr != nil {
		return fmt.Errorf("failed to close migration database: %w", dbErr)
	}
	return nil
}
