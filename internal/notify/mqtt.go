package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"whatsup-go/internal/config"
	"whatsup-go/internal/whatsup"
)

// publisher is the part of mqtt.Client the notifier uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTNotifier publishes each notification to <topic_prefix><address>.
type MQTTNotifier struct {
	client      publisher
	disconnect  func()
	topicPrefix string
	qos         byte
}

var _ whatsup.Notifier = (*MQTTNotifier)(nil)

// NewMQTTNotifier connects to the configured broker.
func NewMQTTNotifier(cfg config.NotifierConfig) (*MQTTNotifier, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTTBroker)
	clientID := cfg.MQTTClientID
	if clientID == "" {
		clientID = "whatsup"
	}
	opts.SetClientID(clientID)

	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
	}
	if cfg.MQTTPassword != "" {
		opts.SetPassword(cfg.MQTTPassword)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	n := newMQTTNotifier(client, cfg.MQTTTopicPrefix, cfg.MQTTQoS)
	n.disconnect = func() { client.Disconnect(250) }
	return n, nil
}

func newMQTTNotifier(client publisher, topicPrefix string, qos byte) *MQTTNotifier {
	return &MQTTNotifier{
		client:      client,
		topicPrefix: topicPrefix,
		qos:         qos,
	}
}

// Send publishes message and waits for the broker to acknowledge it or for
// ctx to end. Without a deadline on ctx the wait is capped at sendTimeout.
func (n *MQTTNotifier) Send(ctx context.Context, address string, message string) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sendTimeout)
		defer cancel()
	}

	topic := n.Topic(address)
	token := n.client.Publish(topic, n.qos, false, []byte(message))

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publishing to %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

// Topic returns the topic a message for address is published to.
// MQTT wildcards in the address are replaced so they cannot widen the topic.
func (n *MQTTNotifier) Topic(address string) string {
	return n.topicPrefix + topicEscaper.Replace(address)
}

var topicEscaper = strings.NewReplacer("+", "_", "#", "_")

// Close disconnects from the broker.
func (n *MQTTNotifier) Close() error {
	if n.disconnect != nil {
		n.disconnect()
	}
	return nil
}

// sendTimeout bounds a publish when the caller's context has no deadline.
const sendTimeout = 10 * time.Second
