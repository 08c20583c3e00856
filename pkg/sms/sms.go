// Package sms delivers short text messages. The default implementation only
// logs the message body; real carrier integration is intentionally out of
// scope and codes must never be treated as secrets delivered this way.
package sms

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/mgiordano/clasificados/pkg/logger"
)

// Message is an outbound text message.
type Message struct {
	To   string
	Body string
}

// Sender dispatches SMS messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender simulates SMS delivery by writing the message to the log, the
// same way the original deployment printed codes to the console.
type LogSender struct {
	log *zap.Logger
}

// NewLogSender builds a simulated sender. A nil logger falls back to the
// global application logger.
func NewLogSender(log *zap.Logger) *LogSender {
	if log == nil {
		log = logger.WithModule("sms")
	}
	return &LogSender{log: log}
}

// Send logs the message instead of dispatching it.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return errors.New("sms: recipient number is required")
	}

	s.log.Info("simulated sms delivery",
		zap.String("to", to),
		zap.String("body", msg.Body),
	)
	return nil
}
