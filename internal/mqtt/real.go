package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// BufferSize is how many messages are held while disconnected.
const BufferSize = 100

const publishTimeout = 5 * time.Second

// client is the part of paho.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	IsConnectionOpen() bool
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an MQTT broker. While the connection is down
// messages go to a ring buffer and are replayed, in order, on reconnect.
type RealPublisher struct {
	client client

	mu       sync.Mutex
	buf      *ringBuffer
	connects int
}

// NewRealPublisher starts connecting to broker in the background and
// returns immediately. A retained OFFLINE will is registered on TopicSystem.
func NewRealPublisher(broker, clientID string) *RealPublisher {
	p := &RealPublisher{buf: newRingBuffer(BufferSize)}

	will, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE"})
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			slog.Warn("mqtt: connection lost", "error", err)
		})

	c := paho.NewClient(opts)
	p.client = c
	c.Connect()
	return p
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// onConnect replays buffered messages. After the first connection it also
// announces the reconnect.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	p.connects++
	reconnect := p.connects > 1
	msgs, dropped := p.buf.drain()
	p.mu.Unlock()

	slog.Info("mqtt: connected", "replay", len(msgs), "dropped", dropped)
	for _, m := range msgs {
		if err := p.send(m); err != nil {
			slog.Warn("mqtt: replay failed", "topic", m.topic, "error", err)
		}
	}

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err := p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1}); err != nil {
			slog.Warn("mqtt: reconnect event failed", "error", err)
		}
	}
}

func (p *RealPublisher) send(m bufferedMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// publish sends m now, or buffers it if the broker is unreachable.
func (p *RealPublisher) publish(m bufferedMsg) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.buf.push(m)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.send(m)
}

// PublishGesture sends a gesture event at QoS 0.
func (p *RealPublisher) PublishGesture(event GestureEvent) error {
	payload, err := FormatGesturePayload(event)
	if err != nil {
		return fmt.Errorf("format gesture payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: TopicEvents, payload: payload})
}

// PublishFan sends a fan event at QoS 0.
func (p *RealPublisher) PublishFan(event FanEvent) error {
	payload, err := FormatFanPayload(event)
	if err != nil {
		return fmt.Errorf("format fan payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: TopicEvents, payload: payload})
}

// PublishSystem sends a lifecycle event at QoS 1.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// Buffered returns how many messages are waiting for the broker.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker, waiting up to a second for in-flight
// messages.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
