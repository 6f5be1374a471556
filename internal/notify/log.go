package notify

import (
	"context"

	"whatsup-go/internal/whatsup"
)

// LogNotifier writes notifications to the logger instead of delivering them.
type LogNotifier struct {
	logger whatsup.Logger
}

var _ whatsup.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a LogNotifier that logs at info level.
func NewLogNotifier(logger whatsup.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the message with its destination address. It never fails.
func (n *LogNotifier) Send(_ context.Context, address string, message string) error {
	n.logger.Info("notification", "to", address, "message", message)
	return nil
}
