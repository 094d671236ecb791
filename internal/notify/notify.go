// Package notify sends outbound customer SMS. Transport stays behind the
// Sender interface so the scheduling core never depends on a carrier.
package notify

import (
	"context"

	"github.com/radiancemd/spa-scheduler/pkg/logging"
)

// Sender delivers one SMS to an E.164 destination.
type Sender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// LogSender logs instead of sending. Used in development and as the wiring
// default when no carrier is configured.
type LogSender struct {
	Logger *logging.Logger
}

func (s LogSender) SendSMS(_ context.Context, to, body string) error {
	logger := s.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger.Info("sms (log only)", "to", to, "body", body)
	return nil
}
