// Package bus wraps paho.mqtt.golang into the thin pub/sub contract the
// event orchestrator depends on: subscribe with handlers, publish with a
// QoS/retained policy, and a last-will status message.
package bus

import (
	"fmt"
	"time"

	"sentrycore/internal/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	// QoSEventStream is used for all fire-and-forget event-stream messages
	// (detection/result/detected/context).
	QoSEventStream byte = 0
	// QoSRetainedStatus is used for the retained {prefix}/status message.
	QoSRetainedStatus byte = 1

	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
	disconnectGraceMS = 250
)

// Handler processes one message's raw payload bytes for a matched topic.
type Handler func(topic string, payload []byte)

// Bus is the orchestrator's message-bus collaborator.
type Bus struct {
	client       mqtt.Client
	statusPrefix string
	log          *logger.Logger
}

// Config configures the broker connection and status prefix.
type Config struct {
	BrokerURL    string
	ClientID     string
	StatusPrefix string // e.g. "sentrycore" -> topics published as sentrycore/{camera_id}/...
}

// New builds a Bus with a last-will "{prefix}/status" = "offline" message
// configured, but does not connect yet.
func New(cfg Config, log *logger.Logger) *Bus {
	b := &Bus{statusPrefix: cfg.StatusPrefix, log: log}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetWill(b.statusTopic(), StatusOffline, QoSRetainedStatus, true)

	opts.OnConnect = func(c mqtt.Client) {
		log.Info("bus connected to broker")
		if token := c.Publish(b.statusTopic(), QoSRetainedStatus, true, StatusOnline); token.WaitTimeout(publishTimeout) {
			if err := token.Error(); err != nil {
				log.Error("bus: failed to publish online status: %v", err)
			}
		}
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		log.Warning("bus connection lost: %v", err)
	}

	b.client = mqtt.NewClient(opts)
	return b
}

func (b *Bus) statusTopic() string {
	return fmt.Sprintf("%s/status", b.statusPrefix)
}

// ResultTopic, DetectionTopic, DetectedTopic, and ContextTopic build the
// per-camera publish topics under the configured status prefix.
func (b *Bus) ResultTopic(cameraID string) string    { return fmt.Sprintf("%s/%s/result", b.statusPrefix, cameraID) }
func (b *Bus) DetectionTopic(cameraID string) string { return fmt.Sprintf("%s/%s/detection", b.statusPrefix, cameraID) }
func (b *Bus) DetectedTopic(cameraID string) string  { return fmt.Sprintf("%s/%s/detected", b.statusPrefix, cameraID) }
func (b *Bus) ContextTopic(cameraID string) string   { return fmt.Sprintf("%s/%s/context", b.statusPrefix, cameraID) }

// Connect opens the broker connection and blocks until connected or timed
// out.
func (b *Bus) Connect() error {
	token := b.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("bus: connect timeout")
	}
	return token.Error()
}

// Subscribe registers handler for topic (which may use MQTT's native `+`
// and `#` wildcards — paho matches these natively, so no custom wildcard
// matcher is needed here).
func (b *Bus) Subscribe(topic string, qos byte, handler Handler) error {
	token := b.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("bus: subscribe timeout for %s", topic)
	}
	return token.Error()
}

// Publish sends payload to topic, fire-and-forget for QoS 0. Never blocks
// longer than publishTimeout regardless of QoS.
func (b *Bus) Publish(topic string, payload []byte, qos byte, retained bool) error {
	token := b.client.Publish(topic, qos, retained, payload)
	if qos == QoSEventStream {
		return nil // fire-and-forget, do not await acknowledgement
	}
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("bus: publish timeout for %s", topic)
	}
	return token.Error()
}

// PublishString is a convenience wrapper for non-JSON string payloads
// (e.g. the "ON"/"OFF" detected topic).
func (b *Bus) PublishString(topic, payload string, qos byte, retained bool) error {
	return b.Publish(topic, []byte(payload), qos, retained)
}

// Connected reports the current broker connection state.
func (b *Bus) Connected() bool {
	return b.client.IsConnected()
}

// Disconnect publishes the offline status and closes the connection with a
// short grace period.
func (b *Bus) Disconnect() {
	if b.client.IsConnected() {
		token := b.client.Publish(b.statusTopic(), QoSRetainedStatus, true, StatusOffline)
		token.WaitTimeout(publishTimeout)
		b.client.Disconnect(disconnectGraceMS)
	}
}
