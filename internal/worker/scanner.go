package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vendoralerts/internal/db"
	"vendoralerts/internal/metrics"
	"vendoralerts/internal/model"
)

// approvalWindow bounds how far back approval changes are considered.
const approvalWindow = 30 * 24 * time.Hour

// Namer resolves catalog display names. Implementations return a
// placeholder instead of failing.
type Namer interface {
	VendorName(ctx context.Context, id int64) string
	ProductName(ctx context.Context, id int64) string
	EntityName(ctx context.Context, entityType string, id int64) string
}

// Offerer receives requests right after they are committed.
type Offerer interface {
	Offer(req model.Request)
}

// Scanner turns catalog changes into notification requests, once per change.
type Scanner interface {
	Name() string
	Sweep(ctx context.Context) (int, error)
}

type scanner struct {
	store *db.Store
	names Namer
	offer Offerer
	log   *slog.Logger
	now   func() time.Time
}

// enqueue advances the subject's watermark and inserts req in one
// transaction. It reports false when the watermark had already moved, in
// which case nothing is enqueued.
func (s *scanner) enqueue(ctx context.Context, req *model.Request, advance func(tx *db.Store) (bool, error)) (bool, error) {
	var enqueued bool
	err := s.store.WithTx(ctx, func(tx *db.Store) error {
		ok, err := advance(tx)
		if err != nil || !ok {
			return err
		}
		if _, err := tx.Enqueue(ctx, req); err != nil {
			return err
		}
		enqueued = true
		return nil
	})
	if err != nil || !enqueued {
		return false, err
	}

	if s.offer != nil {
		s.offer.Offer(*req)
	}
	return true, nil
}

// ApprovalScanner notifies admins and compliance managers about recently
// changed regulatory approvals.
type ApprovalScanner struct {
	scanner
}

func NewApprovalScanner(store *db.Store, names Namer, offer Offerer, log *slog.Logger) *ApprovalScanner {
	if log == nil {
		log = slog.Default()
	}
	return &ApprovalScanner{scanner{
		store: store,
		names: names,
		offer: offer,
		log:   log.With("component", "approval_scanner"),
		now:   model.Now,
	}}
}

func (s *ApprovalScanner) Name() string { return "approvals" }

func (s *ApprovalScanner) Sweep(ctx context.Context) (int, error) {
	approvals, err := s.store.ApprovalsToNotify(ctx, s.now().Add(-approvalWindow))
	if err != nil {
		return 0, err
	}

	count := 0
	for _, a := range approvals {
		vendor := s.names.VendorName(ctx, a.VendorID)
		product := "N/A"
		if a.ProductID != nil {
			product = s.names.ProductName(ctx, *a.ProductID)
		}

		req := model.Request{
			Kind: model.KindRegulatoryApproval,
			Message: fmt.Sprintf("Regulatory approval update: %s from %s for %s (%s). Status: %s.",
				a.ApprovalType, a.RegulatoryBody, vendor, product, a.Status),
			Recipients: model.RoleRecipients(model.RoleAdmin, model.RoleComplianceManager),
			Priority:   model.PriorityMedium,
		}
		req.SetSubject(&model.Subject{EntityType: model.EntityApproval, EntityID: a.ID})

		ok, err := s.enqueue(ctx, &req, func(tx *db.Store) (bool, error) {
			return tx.AdvanceApprovalWatermark(ctx, a.ID, a.UpdatedAt)
		})
		if err != nil {
			s.log.Error("Failed to enqueue approval notification", "approval_id", a.ID, "error", err)
			continue
		}
		if ok {
			count++
			metrics.Enqueued.WithLabelValues("approvals").Inc()
			s.log.Info("Enqueued approval notification", "approval_id", a.ID, "queue_id", req.ID)
		}
	}
	return count, nil
}

// ConflictScanner notifies admins and data managers about unresolved data
// conflicts.
type ConflictScanner struct {
	scanner
}

func NewConflictScanner(store *db.Store, names Namer, offer Offerer, log *slog.Logger) *ConflictScanner {
	if log == nil {
		log = slog.Default()
	}
	return &ConflictScanner{scanner{
		store: store,
		names: names,
		offer: offer,
		log:   log.With("component", "conflict_scanner"),
		now:   model.Now,
	}}
}

func (s *ConflictScanner) Name() string { return "conflicts" }

func (s *ConflictScanner) Sweep(ctx context.Context) (int, error) {
	conflicts, err := s.store.ConflictsToNotify(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, c := range conflicts {
		name := s.names.EntityName(ctx, c.EntityType, c.EntityID)

		req := model.Request{
			Kind: model.KindDataConflict,
			Message: fmt.Sprintf("Data conflict detected for %s '%s' in field '%s'. Values: '%s' (from %s) vs '%s' (from %s).",
				c.EntityType, name, c.FieldName, c.Value1, c.Source1, c.Value2, c.Source2),
			Recipients: model.RoleRecipients(model.RoleAdmin, model.RoleDataManager),
			Priority:   model.PriorityMedium,
		}
		req.SetSubject(&model.Subject{EntityType: c.EntityType, EntityID: c.EntityID})

		ok, err := s.enqueue(ctx, &req, func(tx *db.Store) (bool, error) {
			return tx.AdvanceConflictWatermark(ctx, c.ID, c.UpdatedAt)
		})
		if err != nil {
			s.log.Error("Failed to enqueue conflict notification", "conflict_id", c.ID, "error", err)
			continue
		}
		if ok {
			count++
			metrics.Enqueued.WithLabelValues("conflicts").Inc()
			s.log.Info("Enqueued conflict notification", "conflict_id", c.ID, "queue_id", req.ID)
		}
	}
	return count, nil
}

// runPeriodic sweeps immediately and then every interval until ctx ends.
func runPeriodic(ctx context.Context, log *slog.Logger, interval time.Duration, sc Scanner) {
	log = log.With("scanner", sc.Name())
	log.Info("Scanner started", "interval", interval)
	defer log.Info("Scanner stopped")

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		n, err := sc.Sweep(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			log.Error("Error running scanner", "error", err)
		case n > 0:
			log.Info("Scanner enqueued notifications", "count", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
