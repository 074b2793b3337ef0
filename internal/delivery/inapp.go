package delivery

import (
	"context"
	"fmt"

	"vendoralerts/internal/db"
	"vendoralerts/internal/model"
)

// InApp records the notification in the user's inbox. The record and its
// delivery log entry are written together, so a retried request never
// creates a second record for the same user.
type InApp struct {
	store *db.Store
}

func NewInApp(store *db.Store) *InApp {
	return &InApp{store: store}
}

func (c *InApp) Name() string { return ChannelInApp }

func (c *InApp) Deliver(ctx context.Context, msg Message) error {
	return c.store.WithTx(ctx, func(tx *db.Store) error {
		if msg.QueueID != 0 {
			done, err := tx.WasDelivered(ctx, msg.QueueID, msg.User.ID, ChannelInApp)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}

		n := model.Notification{
			UserID:  msg.User.ID,
			Kind:    msg.Kind,
			Message: msg.Text,
		}
		if msg.Subject != nil {
			et, id := msg.Subject.EntityType, msg.Subject.EntityID
			n.EntityType, n.EntityID = &et, &id
		}
		if msg.QueueID != 0 {
			qid := msg.QueueID
			n.QueueID = &qid
		}

		if err := tx.CreateNotification(ctx, &n); err != nil {
			return fmt.Errorf("failed to deliver in-app notification to user %d: %w", msg.User.ID, err)
		}
		if msg.QueueID != 0 {
			return tx.RecordDelivery(ctx, msg.QueueID, msg.User.ID, ChannelInApp)
		}
		return nil
	})
}
