// Package notify delivers user-facing alerts for simulation events. Alerts
// are observational; delivery failures never affect simulation state.
package notify

import "github.com/rs/zerolog"

// Notifier defines the requirements for sending notifications.
type Notifier interface {
	// Send delivers the provided message.
	Send(message string)
}

// LogNotifier writes notifications to the application log. It is the fallback
// when no external notification channel is configured.
type LogNotifier struct {
	logger *zerolog.Logger
}

// Ensure the log notifier implements the Notifier interface.
var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier initializes a new log notifier.
func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{
		logger: logger,
	}
}

// Send delivers the provided message.
func (n *LogNotifier) Send(message string) {
	n.logger.Info().Msg(message)
}
