package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	limiterpkg "github.com/ulule/limiter/v3"

	"vendoralerts/internal/config"
	"vendoralerts/internal/handlers"
	"vendoralerts/internal/metrics"
	"vendoralerts/internal/routes"
)

type Server struct {
	config config.HTTPConfig
	echo   *echo.Echo
	log    *slog.Logger
}

func NewServer(cfg config.HTTPConfig, h *handlers.Handler, limiter *limiterpkg.Limiter, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	metrics.Init()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()
	e.Use(middleware.Recover())
	e.Use(metrics.Middleware())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	routes.SetupRoutes(e.Group("/api"), h, cfg.JWTSecret, limiter)

	return &Server{config: cfg, echo: e, log: log}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks until the server is shut down.
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server", "addr", s.config.Addr)
	if err := s.echo.Start(s.config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
