package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vendoralerts/internal/config"
	"vendoralerts/internal/db"
	"vendoralerts/internal/delivery"
	"vendoralerts/internal/metrics"
	"vendoralerts/internal/model"
	"vendoralerts/internal/queue"
)

const errorDelay = 5 * time.Second

// Dispatcher drains the notification queue: it claims the next due request,
// resolves its recipients, applies their settings, delivers, and records
// the outcome with retry and backoff.
type Dispatcher struct {
	store  *db.Store
	inApp  delivery.Channel
	email  delivery.Channel
	queue  *queue.Queue
	cfg    config.WorkerConfig
	id     string
	log    *slog.Logger
	now    func() time.Time
	wakeup chan struct{}
}

type DispatcherOption func(*Dispatcher)

// WithClock replaces the wall clock used for claims and backoff.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(store *db.Store, inApp, email delivery.Channel, cfg config.WorkerConfig, log *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	id := "dispatcher-" + uuid.NewString()
	d := &Dispatcher{
		store:  store,
		inApp:  inApp,
		email:  email,
		queue:  queue.New(),
		cfg:    cfg,
		id:     id,
		log:    log.With("component", "dispatcher", "worker_id", id),
		now:    model.Now,
		wakeup: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ID is the owner recorded on claimed requests.
func (d *Dispatcher) ID() string { return d.id }

// Offer hands a just-enqueued request to the in-memory queue so it is
// dispatched without waiting for the next refill.
func (d *Dispatcher) Offer(req model.Request) {
	if req.Status != model.StatusPending {
		return
	}
	d.queue.Push(req)
	metrics.QueueDepth.Set(float64(d.queue.Len()))
	select {
	case d.wakeup <- struct{}{}:
	default:
	}
}

// Run dispatches until ctx is cancelled. Errors are logged and retried
// after a fixed delay.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Info("Notification dispatcher started",
		"max_retries", d.cfg.MaxRetries, "retry_delay", d.cfg.RetryDelay)
	defer d.log.Info("Notification dispatcher stopped")

	for {
		processed, err := d.RunOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		var wait time.Duration
		switch {
		case err != nil:
			d.log.Error("Error in notification dispatcher", "error", err)
			wait = errorDelay
		case !processed:
			wait = d.cfg.PollInterval
		}

		if wait > 0 && !d.sleep(ctx, wait) {
			return
		}
	}
}

func (d *Dispatcher) sleep(ctx context.Context, wait time.Duration) bool {
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-d.wakeup:
		return true
	case <-t.C:
		return true
	}
}

// RunOnce dispatches at most one request and reports whether it did.
func (d *Dispatcher) RunOnce(ctx context.Context) (bool, error) {
	now := d.now()

	if d.queue.Len() == 0 {
		pending, err := d.store.LoadPending(ctx, now, d.cfg.BatchSize)
		if err != nil {
			return false, err
		}
		for _, req := range pending {
			d.queue.Push(req)
		}
	}

	for {
		next, ok := d.queue.Pop()
		metrics.QueueDepth.Set(float64(d.queue.Len()))
		if !ok {
			return false, nil
		}

		req, err := d.store.Claim(ctx, next.ID, d.id, now)
		if errors.Is(err, model.ErrNotClaimed) {
			// finished, claimed elsewhere, or not due yet
			continue
		}
		if err != nil {
			return false, err
		}

		// A claimed request is always carried to an outcome, even during shutdown.
		d.process(context.WithoutCancel(ctx), req)
		return true, nil
	}
}

func (d *Dispatcher) process(ctx context.Context, req *model.Request) {
	log := d.log.With("queue_id", req.ID, "notification_type", req.Kind, "attempt", req.RetryCount+1)
	deliverErr := d.deliver(ctx, req, log)
	at := d.now()

	update := model.StatusUpdate{ID: req.ID, Owner: d.id, At: at}
	outcome := "sent"
	switch {
	case deliverErr == nil:
		update.Status = model.StatusSent
	case req.RetryCount+1 < d.cfg.MaxRetries:
		retries := req.RetryCount + 1
		msg := deliverErr.Error()
		next := at.Add(d.cfg.RetryDelay)
		update.Status = model.StatusPending
		update.RetryCount = &retries
		update.Error = &msg
		update.AvailableAt = &next
		outcome = "retry"
	default:
		retries := req.RetryCount + 1
		msg := deliverErr.Error()
		update.Status = model.StatusFailed
		update.RetryCount = &retries
		update.Error = &msg
		outcome = "failed"
	}

	if err := d.store.UpdateStatus(ctx, update); err != nil {
		if errors.Is(err, model.ErrNotClaimed) {
			log.Warn("Lost processing lease before recording outcome", "outcome", outcome)
			return
		}
		log.Error("Failed to record notification outcome", "outcome", outcome, "error", err)
		return
	}
	metrics.Dispatched.WithLabelValues(outcome).Inc()

	switch outcome {
	case "sent":
		log.Info("Notification processed successfully")
	case "retry":
		log.Warn("Notification delivery failed, will retry",
			"error", deliverErr, "retry_count", *update.RetryCount, "retry_at", *update.AvailableAt)
	default:
		log.Error("Notification failed after max retries",
			"error", deliverErr, "retry_count", *update.RetryCount)
	}
}

// deliver fans req out to every resolved recipient. Users whose settings
// disable the kind or name an unknown method are skipped. Delivery errors
// do not stop the remaining users; they are joined and returned.
func (d *Dispatcher) deliver(ctx context.Context, req *model.Request, log *slog.Logger) error {
	users, err := d.resolve(ctx, req.Recipients)
	if err != nil {
		return err
	}

	var errs []error
	for _, user := range users {
		setting, err := d.store.GetSetting(ctx, user.ID, req.Kind)
		switch {
		case errors.Is(err, model.ErrNotFound):
			def := model.DefaultSetting(user.ID, req.Kind)
			setting = &def
		case err != nil:
			return err
		}

		if !setting.Enabled {
			log.Debug("Notifications disabled for user", "user_id", user.ID)
			continue
		}
		if !setting.DeliveryMethod.Valid() {
			log.Warn("Skipping user with unknown delivery method",
				"user_id", user.ID, "delivery_method", setting.DeliveryMethod)
			continue
		}

		msg := delivery.Message{
			QueueID: req.ID,
			User:    user,
			Kind:    req.Kind,
			Text:    req.Message,
			Subject: req.Subject(),
		}
		if setting.DeliveryMethod.InApp() {
			if err := d.send(ctx, d.inApp, msg); err != nil {
				errs = append(errs, err)
			}
		}
		if setting.DeliveryMethod.Email() {
			if err := d.send(ctx, d.email, msg); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) resolve(ctx context.Context, r model.Recipients) ([]model.User, error) {
	if err := r.Err(); err != nil {
		return nil, err
	}
	if r.ByRole() {
		return d.store.ActiveUsersByRoles(ctx, r.Roles)
	}
	return d.store.UsersByIDs(ctx, r.UserIDs)
}

func (d *Dispatcher) send(ctx context.Context, ch delivery.Channel, msg delivery.Message) error {
	if ch == nil {
		return errors.New("delivery channel not configured")
	}

	done, err := d.store.WasDelivered(ctx, msg.QueueID, msg.User.ID, ch.Name())
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	if err := ch.Deliver(ctx, msg); err != nil {
		metrics.Deliveries.WithLabelValues(ch.Name(), "error").Inc()
		return fmt.Errorf("%s delivery to user %d failed: %w", ch.Name(), msg.User.ID, err)
	}
	metrics.Deliveries.WithLabelValues(ch.Name(), "ok").Inc()

	return d.store.RecordDelivery(ctx, msg.QueueID, msg.User.ID, ch.Name())
}
