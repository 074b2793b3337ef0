package delivery

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendoralerts/internal/config"
	"vendoralerts/internal/db/dbtest"
	"vendoralerts/internal/model"
)

type sentMail struct {
	from string
	to   []string
	body []byte
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(_ context.Context, from string, to []string, msg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{from: from, to: to, body: msg})
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEmailDeliver(t *testing.T) {
	sender := &fakeSender{}
	ch := NewEmail("notifications@advintpharma.in", sender, 0, quietLogger())

	msg := Message{
		QueueID: 1,
		User:    model.User{ID: 5, Username: "alice", Email: "alice@example.com"},
		Kind:    model.KindDataConflict,
		Text:    "Data conflict detected for vendor 'Acme <Ltd>'",
	}
	require.NoError(t, ch.Deliver(context.Background(), msg))
	require.Len(t, sender.sent, 1)

	sent := sender.sent[0]
	assert.Equal(t, "notifications@advintpharma.in", sent.from)
	assert.Equal(t, []string{"alice@example.com"}, sent.to)

	r, err := mail.CreateReader(strings.NewReader(string(sent.body)))
	require.NoError(t, err)

	subject, err := r.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Advint Pharma Notification: data_conflict", subject)

	part, err := r.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(part.Body)
	require.NoError(t, err)

	html := string(body)
	assert.Contains(t, html, "<h2>Advint Pharma Vendor Database Notification</h2>")
	assert.Contains(t, html, "<strong>Type:</strong> data_conflict")
	assert.Contains(t, html, "Acme &lt;Ltd&gt;")
	assert.Contains(t, html, "This is an automated message, please do not reply.")
}

func TestEmailErrors(t *testing.T) {
	sender := &fakeSender{err: assert.AnError}
	ch := NewEmail("from@example.com", sender, 0, quietLogger())

	err := ch.Deliver(context.Background(), Message{User: model.User{ID: 1, Email: "a@example.com"}, Kind: "k", Text: "t"})
	assert.ErrorIs(t, err, assert.AnError)

	err = ch.Deliver(context.Background(), Message{User: model.User{ID: 2}, Kind: "k", Text: "t"})
	assert.Error(t, err)
}

func TestEmailRateLimitHonoursContext(t *testing.T) {
	sender := &fakeSender{}
	ch := NewEmail("from@example.com", sender, 0.001, quietLogger())
	msg := Message{User: model.User{ID: 1, Email: "a@example.com"}, Kind: "k", Text: "t"}

	require.NoError(t, ch.Deliver(context.Background(), msg))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, ch.Deliver(ctx, msg))
	assert.Len(t, sender.sent, 1)
}

func TestInAppDeliverOncePerRequest(t *testing.T) {
	ctx := context.Background()
	store := dbtest.New(t)
	alice := dbtest.User(t, store, "alice", model.RoleAdmin)

	req := &model.Request{
		Kind:       model.KindSystemUpdate,
		Message:    "maintenance",
		Recipients: model.UserRecipients(alice.ID),
		Priority:   model.PriorityLow,
	}
	id, err := store.Enqueue(ctx, req)
	require.NoError(t, err)

	ch := NewInApp(store)
	msg := Message{
		QueueID: id,
		User:    alice,
		Kind:    req.Kind,
		Text:    req.Message,
		Subject: &model.Subject{EntityType: model.EntityVendor, EntityID: 3},
	}
	require.NoError(t, ch.Deliver(ctx, msg))
	require.NoError(t, ch.Deliver(ctx, msg))

	list, err := store.ListNotifications(ctx, model.NotificationFilter{UserID: alice.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "maintenance", list[0].Message)
	require.NotNil(t, list[0].QueueID)
	assert.Equal(t, id, *list[0].QueueID)
	require.NotNil(t, list[0].EntityType)
	assert.Equal(t, model.EntityVendor, *list[0].EntityType)

	done, err := store.WasDelivered(ctx, id, alice.ID, ChannelInApp)
	require.NoError(t, err)
	assert.True(t, done)
}

// silentServer accepts connections and never sends a greeting.
func silentServer(t *testing.T) *net.TCPAddr {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	return ln.Addr().(*net.TCPAddr)
}

func TestSMTPSenderTimesOutWaitingForGreeting(t *testing.T) {
	addr := silentServer(t)
	sender := NewSMTPSender(config.SMTPConfig{
		Server:      "127.0.0.1",
		Port:        addr.Port,
		DialTimeout: 200 * time.Millisecond,
	})

	start := time.Now()
	err := sender.Send(context.Background(), "from@example.com", []string{"to@example.com"}, []byte("x"))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSMTPSenderHonoursContext(t *testing.T) {
	addr := silentServer(t)
	sender := NewSMTPSender(config.SMTPConfig{Server: "127.0.0.1", Port: addr.Port})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := sender.Send(ctx, "from@example.com", []string{"to@example.com"}, []byte("x"))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
