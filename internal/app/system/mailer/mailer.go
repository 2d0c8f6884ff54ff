// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/pantry/email"
	"go.uber.org/zap"
)

// Email is one outbound message. Both bodies are sent as alternatives.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers emails. *Mailer is the SMTP implementation; tests use fakes.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Config holds SMTP relay settings. Port 465 selects implicit TLS; any other
// port uses STARTTLS.
type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
	Timeout  time.Duration
}

// Mailer sends mail through an SMTP relay (Mailpit locally, SES in prod).
type Mailer struct {
	log     *zap.Logger
	deliver func(ctx context.Context, msg email.Message) error
}

var ErrNoRecipient = errors.New("mailer: email has no recipient")

// New creates an SMTP mailer.
func New(cfg Config, logger *zap.Logger) *Mailer {
	s := email.NewSender(email.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.User,
		Password:    cfg.Pass,
		FromAddress: cfg.From,
		FromName:    cfg.FromName,
		UseSSL:      cfg.Port == 465,
		Timeout:     cfg.Timeout,
	})
	return &Mailer{log: logger, deliver: s.Send}
}

// Send hands e to the relay. ctx bounds the SMTP session.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	if e.To == "" {
		return ErrNoRecipient
	}
	msg := email.Message{
		To:       []string{e.To},
		Subject:  e.Subject,
		TextBody: e.TextBody,
		HTMLBody: e.HTMLBody,
	}
	if err := m.deliver(ctx, msg); err != nil {
		m.log.Warn("smtp send failed", zap.String("to", e.To), zap.String("subject", e.Subject), zap.Error(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	m.log.Debug("email sent", zap.String("to", e.To), zap.String("subject", e.Subject))
	return nil
}
