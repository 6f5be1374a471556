package notify

import (
	"fmt"

	"whatsup-go/internal/config"
	"whatsup-go/internal/whatsup"
)

// NewNotifierFromConfig creates a Notifier based on the notifier config type.
// Notifiers holding a connection also implement io.Closer.
func NewNotifierFromConfig(cfg config.NotifierConfig, logger whatsup.Logger) (whatsup.Notifier, error) {
	switch cfg.Type {
	case "", "log":
		return NewLogNotifier(logger), nil
	case "mqtt":
		if cfg.MQTTBroker == "" {
			return nil, fmt.Errorf("mqtt_broker required for mqtt notifier")
		}
		n, err := NewMQTTNotifier(cfg)
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unknown notifier type: %s", cfg.Type)
	}
}
