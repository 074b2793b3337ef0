package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"vendoralerts/internal/auth"
	"vendoralerts/internal/catalog"
	"vendoralerts/internal/config"
	"vendoralerts/internal/db"
	"vendoralerts/internal/delivery"
	"vendoralerts/internal/handlers"
	"vendoralerts/internal/metrics"
	"vendoralerts/internal/migrations"
	"vendoralerts/internal/notification"
	"vendoralerts/internal/worker"
	"vendoralerts/server"
)

func newServeCmd(a *app) *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the notification workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, !skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations on startup")
	return cmd
}

func (a *app) serve(ctx context.Context, migrate bool) error {
	cfg, log := a.cfg, a.log
	if cfg.HTTP.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer conn.Close()

	if migrate {
		if err := migrateUp(cfg.DB, conn); err != nil {
			return err
		}
	}

	metrics.Init()
	store := db.New(conn)
	names := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout, log)
	email := delivery.NewEmail(cfg.SMTP.From, delivery.NewSMTPSender(cfg.SMTP), cfg.SMTP.RatePerSec, log)
	dispatcher := worker.NewDispatcher(store, delivery.NewInApp(store), email, cfg.Worker, log)
	workers := worker.NewService(store, dispatcher, cfg.Worker, log,
		worker.NewApprovalScanner(store, names, dispatcher, log),
		worker.NewConflictScanner(store, names, dispatcher, log),
	)

	limiter, err := auth.NewRateLimiter(cfg.HTTP.RateLimit)
	if err != nil {
		return err
	}
	h := handlers.New(notification.NewService(store, dispatcher, log), store, log)
	srv := server.NewServer(cfg.HTTP, h, limiter, log)

	workers.Start(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case serveErr = <-errCh:
		if serveErr != nil {
			log.Error("HTTP server failed", "error", serveErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Worker.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}
	if err := workers.Stop(); err != nil {
		log.Error("Workers did not stop cleanly", "error", err)
	}

	log.Info("Service shut down gracefully")
	return serveErr
}

// openMigrator migrates SQLite through the already open handle so that
// in-memory and file databases behave the same.
func openMigrator(cfg config.DatabaseConfig, conn *sqlx.DB) (*migrations.Migrator, error) {
	if cfg.Driver == config.DriverSQLite {
		return migrations.NewSQLite(conn.DB)
	}
	return migrations.New(cfg)
}

func migrateUp(cfg config.DatabaseConfig, conn *sqlx.DB) error {
	m, err := openMigrator(cfg, conn)
	if err != nil {
		return err
	}
	defer m.Close()

	return m.Up()
}
