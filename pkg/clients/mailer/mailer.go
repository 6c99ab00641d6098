// Package mailer delivers outbound email through SMTP, an HTTP relay or the log.
package mailer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/chung140204/TKPM-BTL-sub000/internal/config"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends one message. Implementations must honor ctx cancellation where
// the transport allows it.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ErrNoRecipient is returned when a message has no address.
var ErrNoRecipient = errors.New("message has no recipient address")

// New picks the transport named by cfg.Driver.
func New(cfg config.MailConfig, logger *zap.Logger) Mailer {
	switch cfg.Driver {
	case config.MailSMTP:
		return NewSMTPMailer(cfg)
	case config.MailRelay:
		return NewRelayClient(cfg)
	default:
		return NewLogMailer(logger)
	}
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs the recipient and subject.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	m.logger.Info("email (log transport)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}
