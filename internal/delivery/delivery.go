// Package delivery sends one rendered notification to one user over one
// medium. Channels do not retry; the dispatcher owns retry and backoff.
package delivery

import (
	"context"

	"vendoralerts/internal/model"
)

const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
)

// Message is a queued request addressed to a single user.
type Message struct {
	QueueID int64
	User    model.User
	Kind    string
	Text    string
	Subject *model.Subject
}

type Channel interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}
