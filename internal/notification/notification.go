// Package notification is the API-facing side of the pipeline: users read
// their inbox and settings, and callers submit notification requests.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"vendoralerts/internal/db"
	"vendoralerts/internal/metrics"
	"vendoralerts/internal/model"
)

const DefaultLimit = 100

// Offerer is told about requests as soon as they are committed.
type Offerer interface {
	Offer(req model.Request)
}

type Service struct {
	store *db.Store
	offer Offerer
	log   *slog.Logger
}

func NewService(store *db.Store, offer Offerer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, offer: offer, log: log}
}

func (s *Service) ListNotifications(ctx context.Context, userID int64, isRead *bool, limit int) ([]NotificationView, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	list, err := s.store.ListNotifications(ctx, model.NotificationFilter{UserID: userID, IsRead: isRead, Limit: limit})
	if err != nil {
		return nil, err
	}

	views := make([]NotificationView, 0, len(list))
	for _, n := range list {
		views = append(views, toView(n))
	}
	return views, nil
}

// MarkRead returns model.ErrNotFound unless the notification belongs to userID.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID int64) error {
	return s.store.MarkRead(ctx, userID, notificationID)
}

// GetSettings returns the effective setting for every known kind plus any
// other kind the user has configured.
func (s *Service) GetSettings(ctx context.Context, userID int64) ([]SettingView, error) {
	stored, err := s.store.ListSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	byKind := make(map[string]SettingView, len(stored)+len(model.KnownKinds))
	for _, kind := range model.KnownKinds {
		def := model.DefaultSetting(userID, kind)
		byKind[kind] = SettingView{Kind: kind, Enabled: def.Enabled, DeliveryMethod: def.DeliveryMethod}
	}
	for _, st := range stored {
		byKind[st.Kind] = SettingView{Kind: st.Kind, Enabled: st.Enabled, DeliveryMethod: st.DeliveryMethod}
	}

	views := make([]SettingView, 0, len(byKind))
	for _, v := range byKind {
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Kind < views[j].Kind })
	return views, nil
}

// UpdateSettings applies all updates or none.
func (s *Service) UpdateSettings(ctx context.Context, userID int64, updates []SettingUpdate) error {
	for _, u := range updates {
		if u.Kind == "" {
			return fmt.Errorf("%w: notification type is required", model.ErrInvalidRequest)
		}
		if u.Enabled == nil {
			return fmt.Errorf("%w: is_enabled is required for %s", model.ErrInvalidRequest, u.Kind)
		}
		if !u.DeliveryMethod.Valid() {
			return model.ErrInvalidDeliveryMethod
		}
	}

	return s.store.WithTx(ctx, func(tx *db.Store) error {
		for _, u := range updates {
			st := model.Setting{
				UserID:         userID,
				Kind:           u.Kind,
				Enabled:        *u.Enabled,
				DeliveryMethod: u.DeliveryMethod,
			}
			if err := tx.UpsertSetting(ctx, &st); err != nil {
				return err
			}
		}
		return nil
	})
}

// EnqueueManual validates and stores a request, then hands it to the
// in-process dispatcher.
func (s *Service) EnqueueManual(ctx context.Context, in ManualRequest) (int64, error) {
	req := model.Request{
		Kind:       in.Kind,
		Message:    in.Message,
		Recipients: in.Recipients,
		Priority:   in.Priority,
	}
	if req.Priority == 0 {
		req.Priority = model.PriorityLow
	}
	switch {
	case in.EntityType != nil && in.EntityID != nil:
		req.SetSubject(&model.Subject{EntityType: *in.EntityType, EntityID: *in.EntityID})
	case in.EntityType != nil || in.EntityID != nil:
		return 0, fmt.Errorf("%w: entity_type and entity_id go together", model.ErrInvalidRequest)
	}

	id, err := s.store.Enqueue(ctx, &req)
	if err != nil {
		return 0, err
	}
	metrics.Enqueued.WithLabelValues("api").Inc()
	s.log.Info("Notification added to queue", "queue_id", id, "notification_type", req.Kind, "priority", req.Priority.String())

	if s.offer != nil {
		s.offer.Offer(req)
	}
	return id, nil
}

func (s *Service) GetRequest(ctx context.Context, id int64) (*model.Request, error) {
	return s.store.GetRequest(ctx, id)
}

func (s *Service) ListRequests(ctx context.Context, f model.RequestFilter) ([]model.Request, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrInvalidRequest, *f.Status)
	}
	return s.store.ListRequests(ctx, f)
}
