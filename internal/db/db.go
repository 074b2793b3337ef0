package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"vendoralerts/internal/config"
	"vendoralerts/internal/model"
)

// sqliteParams makes timestamps sortable as text and enforces foreign keys.
const sqliteParams = "_time_format=sqlite&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// Connect opens and pings the configured database.
func Connect(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := cfg.DSN()
	if cfg.Driver == config.DriverSQLite {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + sqliteParams
	}

	db, err := sqlx.Connect(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	switch {
	case cfg.Driver == config.DriverSQLite:
		// Single writer. Also every connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	slog.Info("Successfully connected to database", "driver", cfg.Driver)
	return db, nil
}

// Store is the persistence layer of the notification pipeline. A Store
// returned by WithTx runs every query inside that transaction.
type Store struct {
	db  *sqlx.DB
	q   sqlx.ExtContext
	now func() time.Time
}

type Option func(*Store)

// WithClock replaces the clock used for every timestamp the Store writes.
// Dispatchers and scanners sharing a test clock should get the same one.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, q: db, now: model.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying pool, or nil for a transaction-scoped Store.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

// WithTx runs fn in a transaction, committing when fn returns nil.
// Calling WithTx on a transaction-scoped Store reuses the transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&Store{q: tx, now: s.now}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, dest any, query string, args ...any) error {
	err := sqlx.GetContext(ctx, s.q, dest, s.q.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

func (s *Store) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, s.q, dest, s.q.Rebind(query), args...)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.q.ExecContext(ctx, s.q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
