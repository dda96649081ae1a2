// Package notify emails users about new and resolved matches.
//
// Delivery never affects the caller: every failure is logged and dropped.
package notify

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dshills/lostfound/internal/config"
)

// Message is one email
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Sender delivers a Message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender records messages in the log instead of sending them.
// It stands in when no SMTP host is configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info().
		Str("reason", "SMTP not configured").
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Msg("email skipped")
	return nil
}

// NewSender returns an SMTPSender, or a LogSender when the host is empty
// or "localhost".
func NewSender(cfg config.NotifyConfig, logger zerolog.Logger) Sender {
	host := strings.TrimSpace(cfg.SMTPHost)
	if host == "" || strings.EqualFold(host, "localhost") {
		return NewLogSender(logger)
	}
	return NewSMTPSender(cfg)
}
