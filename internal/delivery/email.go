package delivery

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"golang.org/x/time/rate"

	"vendoralerts/internal/config"
)

var emailBody = template.Must(template.New("email").Parse(`<html>
<body>
    <h2>Advint Pharma Vendor Database Notification</h2>
    <p><strong>Type:</strong> {{.Kind}}</p>
    <p><strong>Message:</strong> {{.Text}}</p>
    <p>Please log in to the Vendor Database system for more details.</p>
    <p>This is an automated message, please do not reply.</p>
</body>
</html>
`))

// Sender hands a complete RFC 5322 message to a mail transport.
type Sender interface {
	Send(ctx context.Context, from string, to []string, msg []byte) error
}

// SMTPSender submits over SMTP with STARTTLS and PLAIN authentication.
type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, from string, to []string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c, stop, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer stop()
	defer c.Close()

	if s.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)); err != nil {
			return fmt.Errorf("failed to authenticate with SMTP server: %w", err)
		}
	}

	if err := c.SendMail(from, to, bytes.NewReader(msg)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return c.Quit()
}

// dial connects and upgrades to TLS. SMTP_TIMEOUT bounds the connect, the
// greeting, the handshake and every later command. The connection is closed
// when ctx ends; the returned stop func detaches that.
func (s *SMTPSender) dial(ctx context.Context) (*smtp.Client, func() bool, error) {
	timeout := s.cfg.DialTimeout
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.cfg.Addr())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	if timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			stop()
			conn.Close()
			return nil, nil, fmt.Errorf("failed to set SMTP deadline: %w", err)
		}
	}

	c := smtp.NewClient(conn)
	if timeout > 0 {
		c.CommandTimeout = timeout
		c.SubmissionTimeout = timeout
	}
	if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Server}); err != nil {
		stop()
		c.Close()
		return nil, nil, fmt.Errorf("failed to start TLS with SMTP server: %w", err)
	}
	return c, stop, nil
}

// Email renders the notification template and sends it to the user's
// address, throttled to the configured rate.
type Email struct {
	from    string
	sender  Sender
	limiter *rate.Limiter
	log     *slog.Logger
	now     func() time.Time
}

func NewEmail(from string, sender Sender, perSecond float64, log *slog.Logger) *Email {
	limit := rate.Inf
	burst := 1
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
		burst = max(1, int(perSecond))
	}
	if log == nil {
		log = slog.Default()
	}
	return &Email{
		from:    from,
		sender:  sender,
		limiter: rate.NewLimiter(limit, burst),
		log:     log,
		now:     time.Now,
	}
}

func (c *Email) Name() string { return ChannelEmail }

func (c *Email) Deliver(ctx context.Context, msg Message) error {
	if msg.User.Email == "" {
		return errors.New("user has no email address")
	}

	body, err := c.compose(msg)
	if err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("email rate limiter: %w", err)
	}

	if err := c.sender.Send(ctx, c.from, []string{msg.User.Email}, body); err != nil {
		return err
	}

	c.log.Info("Email notification sent", "user_id", msg.User.ID, "email", msg.User.Email)
	return nil
}

func (c *Email) compose(msg Message) ([]byte, error) {
	var h mail.Header
	h.SetDate(c.now())
	h.SetAddressList("From", []*mail.Address{{Address: c.from}})
	h.SetAddressList("To", []*mail.Address{{Name: msg.User.Username, Address: msg.User.Email}})
	h.SetSubject("Advint Pharma Notification: " + msg.Kind)
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create email writer: %w", err)
	}
	if err := emailBody.Execute(w, msg); err != nil {
		return nil, fmt.Errorf("failed to render email: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish email: %w", err)
	}
	return buf.Bytes(), nil
}
