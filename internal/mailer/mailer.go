// Package mailer relays notification emails through the operator's SMTP
// account. One message per call, no retry, no queue: callers treat delivery
// as best effort.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// ErrIncompleteConfig means at least one of the six required SMTP settings is
// absent. The send is not attempted and must not be retried.
var ErrIncompleteConfig = errors.New("missing SMTP/email configuration in environment variables")

// Config holds the six required mail transport settings.
type Config struct {
	Host string
	Port int
	User string
	Pass string
	From string
	To   string
}

// Validate reports which settings are missing, if any.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Host) == "" {
		missing = append(missing, "FOODWATCH_SMTP_HOST")
	}
	if c.Port == 0 {
		missing = append(missing, "FOODWATCH_SMTP_PORT")
	}
	if strings.TrimSpace(c.User) == "" {
		missing = append(missing, "FOODWATCH_SMTP_USER")
	}
	if strings.TrimSpace(c.Pass) == "" {
		missing = append(missing, "FOODWATCH_SMTP_PASS")
	}
	if strings.TrimSpace(c.From) == "" {
		missing = append(missing, "FOODWATCH_NOTIFY_FROM")
	}
	if strings.TrimSpace(c.To) == "" {
		missing = append(missing, "FOODWATCH_NOTIFY_TO")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrIncompleteConfig, strings.Join(missing, ", "))
	}
	return nil
}

// Mailer sends plain-text notifications.
type Mailer struct {
	cfg Config
	log *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log}
}

// Send delivers one plain-text message to the configured recipient. Port 465
// uses implicit TLS; everything else goes through the transport default
// (opportunistic STARTTLS).
func (m *Mailer) Send(ctx context.Context, subject, text string) error {
	if err := m.cfg.Validate(); err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.User),
		mail.WithPassword(m.cfg.Pass),
	}
	if m.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create mail client: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(m.cfg.To); err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, text)

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	m.log.Info("notification email sent", zap.String("subject", subject), zap.String("to", m.cfg.To))
	return nil
}
