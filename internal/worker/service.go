package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"vendoralerts/internal/config"
	"vendoralerts/internal/db"
)

const reapInterval = time.Minute

var ErrStopTimeout = errors.New("workers did not stop in time")

// Service runs the dispatcher, the scanners and the stale lease reaper as
// independent goroutines for the lifetime of the process.
type Service struct {
	store      *db.Store
	dispatcher *Dispatcher
	scanners   []Scanner
	cfg        config.WorkerConfig
	log        *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(store *db.Store, dispatcher *Dispatcher, cfg config.WorkerConfig, log *slog.Logger, scanners ...Scanner) *Service {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 300 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		scanners:   scanners,
		cfg:        cfg,
		log:        log,
	}
}

// Start launches the background loops. Calling Start on a running service
// does nothing.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)

	s.spawn(func() { s.dispatcher.Run(ctx) })
	for _, sc := range s.scanners {
		s.spawn(func() { runPeriodic(ctx, s.log, s.cfg.CheckInterval, sc) })
	}
	if s.cfg.ProcessingTimeout > 0 {
		s.spawn(func() { s.reap(ctx) })
	}

	s.log.Info("Notification service started", "scanners", len(s.scanners))
}

func (s *Service) spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Stop cancels the loops and waits for them up to the shutdown timeout.
// Work still in flight after that is abandoned; its lease expires and the
// reaper of a later run picks it up.
func (s *Service) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("Notification service stopped")
		return nil
	case <-time.After(s.cfg.ShutdownTimeout):
		s.log.Warn("Notification service stop timed out", "timeout", s.cfg.ShutdownTimeout)
		return ErrStopTimeout
	}
}

func (s *Service) reap(ctx context.Context) {
	t := time.NewTicker(reapInterval)
	defer t.Stop()
	for {
		n, err := s.store.ReapStale(ctx, s.cfg.ProcessingTimeout, s.dispatcher.cfg.MaxRetries, s.dispatcher.now())
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			s.log.Error("Error reaping stale notifications", "error", err)
		case n > 0:
			s.log.Warn("Reaped notifications with expired processing lease", "count", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
