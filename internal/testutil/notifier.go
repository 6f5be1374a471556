package testutil

import (
	"context"
	"sync"

	"whatsup-go/internal/whatsup"
)

// Notification is one message captured by RecordingNotifier.
type Notification struct {
	Address string
	Message string
}

// RecordingNotifier captures sent notifications. Set Err to make Send fail.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	Err  error
}

var _ whatsup.Notifier = (*RecordingNotifier)(nil)

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) Send(_ context.Context, address string, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.sent = append(n.sent, Notification{Address: address, Message: message})
	return nil
}

// Sent returns a copy of the notifications sent so far.
func (n *RecordingNotifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}
