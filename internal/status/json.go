package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Fan           FanJSON      `json:"fan"`
	Page          PageJSON     `json:"page"`
	Gestures      GesturesJSON `json:"gestures"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// FanJSON is the last fan cycle. Duty is null before the first cycle.
type FanJSON struct {
	Enabled     bool    `json:"enabled"`
	Duty        *int    `json:"duty"`
	Temperature float64 `json:"temperature"`
	UpdatedAt   string  `json:"updated_at,omitempty"`
}

// PageJSON is the page on the display. Index is null before the first page.
type PageJSON struct {
	Index *int   `json:"index"`
	Count int    `json:"count"`
	Title string `json:"title,omitempty"`
}

// GesturesJSON counts gestures and names the last one.
type GesturesJSON struct {
	Click  int    `json:"click"`
	Twice  int    `json:"twice"`
	Press  int    `json:"press"`
	Last   string `json:"last,omitempty"`
	LastAt string `json:"last_at,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	IP         string   `json:"ip"`
	Interfaces []string `json:"interfaces"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	ConfigPath  string     `json:"config_path,omitempty"`
	SampleMs    int64      `json:"sample_ms"`
	FanPollMs   int64      `json:"fan_poll_ms"`
	SlideMs     int64      `json:"slide_ms"`
	AutoSlide   bool       `json:"auto_slide"`
	HeartbeatMs int64      `json:"heartbeat_ms"`
	Broker      string     `json:"broker"`
	HTTPAddr    string     `json:"http_addr"`
	Curve       string     `json:"curve"`
	Thresholds  [4]float64 `json:"thresholds"`
	Keys        KeysJSON   `json:"keys"`
}

// KeysJSON is the gesture to action mapping.
type KeysJSON struct {
	Click string `json:"click"`
	Twice string `json:"twice"`
	Press string `json:"press"`
}

func rfc3339(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Fan: FanJSON{
			Enabled:     snap.Fan.Enabled,
			Temperature: snap.Fan.Temperature,
			UpdatedAt:   rfc3339(snap.Fan.UpdatedAt),
		},
		Page: PageJSON{Count: snap.Page.Count, Title: snap.Page.Title},
		Gestures: GesturesJSON{
			Click:  snap.Counts.Click,
			Twice:  snap.Counts.Twice,
			Press:  snap.Counts.Press,
			Last:   string(snap.LastGesture),
			LastAt: rfc3339(snap.LastGestureAt),
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config:        buildConfig(snap.Config),
	}
	if snap.Fan.Duty >= 0 {
		d := snap.Fan.Duty
		inner.Fan.Duty = &d
	}
	if snap.Page.Index >= 0 {
		i := snap.Page.Index
		inner.Page.Index = &i
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			IP:         snap.Network.IP,
			Interfaces: snap.Network.Interfaces,
		}
	}
	return inner
}

func buildConfig(c Config) ConfigJSON {
	curve := "stepped"
	if c.Curve.Linear {
		curve = "linear"
	}
	return ConfigJSON{
		ConfigPath:  c.ConfigPath,
		SampleMs:    c.SampleMs,
		FanPollMs:   c.FanPollMs,
		SlideMs:     c.SlideMs,
		AutoSlide:   c.AutoSlide,
		HeartbeatMs: c.HeartbeatMs,
		Broker:      c.Broker,
		HTTPAddr:    c.HTTPAddr,
		Curve:       curve,
		Thresholds:  [4]float64{c.Curve.Lv0, c.Curve.Lv1, c.Curve.Lv2, c.Curve.Lv3},
		Keys: KeysJSON{
			Click: string(c.Keys.Click),
			Twice: string(c.Keys.Twice),
			Press: string(c.Keys.Press),
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
