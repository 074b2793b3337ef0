package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"vendoralerts/internal/config"
	"vendoralerts/internal/delivery"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWorkerConfig() config.WorkerConfig {
	return config.WorkerConfig{
		CheckInterval:     time.Hour,
		MaxRetries:        3,
		RetryDelay:        60 * time.Second,
		ProcessingTimeout: 15 * time.Minute,
		PollInterval:      10 * time.Millisecond,
		BatchSize:         100,
		ShutdownTimeout:   5 * time.Second,
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type attempt struct {
	msg delivery.Message
	at  time.Time
}

// recordingChannel records every call and fails when fail returns an error.
type recordingChannel struct {
	name  string
	clock func() time.Time
	fail  func(delivery.Message) error

	mu    sync.Mutex
	calls []attempt
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Deliver(_ context.Context, msg delivery.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	at := time.Time{}
	if c.clock != nil {
		at = c.clock()
	}
	c.calls = append(c.calls, attempt{msg: msg, at: at})
	if c.fail != nil {
		return c.fail(msg)
	}
	return nil
}

func (c *recordingChannel) Calls() []attempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]attempt(nil), c.calls...)
}

var errSMTPDown = errors.New("smtp: connection refused")

type stubNamer struct {
	vendors  map[int64]string
	products map[int64]string
}

func (n stubNamer) VendorName(_ context.Context, id int64) string {
	if name, ok := n.vendors[id]; ok {
		return name
	}
	return fmt.Sprintf("Vendor %d", id)
}

func (n stubNamer) ProductName(_ context.Context, id int64) string {
	if name, ok := n.products[id]; ok {
		return name
	}
	return fmt.Sprintf("Product %d", id)
}

func (n stubNamer) EntityName(ctx context.Context, entityType string, id int64) string {
	switch entityType {
	case "vendor":
		return n.VendorName(ctx, id)
	case "product":
		return n.ProductName(ctx, id)
	}
	return fmt.Sprintf("%s %d", entityType, id)
}
