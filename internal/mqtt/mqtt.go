// Package mqtt publishes button gestures, fan changes and lifecycle events.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/rockpi-quad/internal/logic"
)

// TopicEvents carries gesture and fan events.
const TopicEvents = "rockpi/quad/events"

// TopicSystem carries lifecycle events (STARTUP, SHUTDOWN, HEARTBEAT, OFFLINE).
const TopicSystem = "rockpi/quad/system"

// Publisher publishes events to MQTT. Errors are for logging only; the
// daemon keeps running when the broker is unreachable.
type Publisher interface {
	PublishGesture(event GestureEvent) error
	PublishFan(event FanEvent) error
	PublishSystem(event SystemEvent) error
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// GestureEvent is a classified button gesture and the action it triggered.
type GestureEvent struct {
	Timestamp time.Time
	Gesture   logic.Gesture
	Action    logic.Action
}

// FanEvent reports a change of the applied duty cycle or the fan switch.
type FanEvent struct {
	Timestamp   time.Time
	Enabled     bool
	Duty        int
	Temperature float64
}

// SystemEvent represents a lifecycle event.
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // STARTUP, SHUTDOWN, HEARTBEAT, OFFLINE, RECONNECTED
	Reason     string // signal name, shutdown only
	RawPayload []byte // pre-formatted status snapshot, used as is when set
	Retained   bool
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// GesturePayload is the JSON body of a gesture event.
type GesturePayload struct {
	Gesture struct {
		Timestamp string `json:"timestamp"`
		Type      string `json:"type"`
		Action    string `json:"action"`
	} `json:"gesture"`
}

// FormatGesturePayload creates the JSON payload for a gesture event.
func FormatGesturePayload(event GestureEvent) ([]byte, error) {
	var p GesturePayload
	p.Gesture.Timestamp = timestamp(event.Timestamp)
	p.Gesture.Type = string(event.Gesture)
	p.Gesture.Action = string(event.Action)
	return json.Marshal(p)
}

// FanPayload is the JSON body of a fan event.
type FanPayload struct {
	Fan struct {
		Timestamp   string  `json:"timestamp"`
		Enabled     bool    `json:"enabled"`
		Duty        int     `json:"duty"`
		Temperature float64 `json:"temperature"`
	} `json:"fan"`
}

// FormatFanPayload creates the JSON payload for a fan event.
func FormatFanPayload(event FanEvent) ([]byte, error) {
	var p FanPayload
	p.Fan.Timestamp = timestamp(event.Timestamp)
	p.Fan.Enabled = event.Enabled
	p.Fan.Duty = event.Duty
	p.Fan.Temperature = event.Temperature
	return json.Marshal(p)
}

// SystemPayload is the body of simple lifecycle events that carry no status
// snapshot (OFFLINE will, RECONNECTED).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload returns event.RawPayload if set, otherwise a
// SystemPayload.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: timestamp(event.Timestamp),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}
