// Package status provides a thread-safe status tracker for the hat daemon.
// It is written by the daemon loops and read by HTTP handlers and the MQTT
// heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/rockpi-quad/internal/logic"
)

// NetworkInfo is the host's network identity.
type NetworkInfo struct {
	IP         string
	Interfaces []string
}

// Config contains daemon configuration for display.
type Config struct {
	ConfigPath  string
	SampleMs    int64
	FanPollMs   int64
	SlideMs     int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	Curve       logic.FanConfig
	Keys        logic.KeyMap
	AutoSlide   bool
}

// FanState is the last fan cycle.
type FanState struct {
	Enabled     bool
	Duty        int     // -1 before the first cycle
	Temperature float64 // Celsius
	UpdatedAt   time.Time
}

// PageState is the page currently on the display.
type PageState struct {
	Index int // -1 before the first page
	Count int
	Title string
}

// GestureCounts counts classified gestures since start.
type GestureCounts struct {
	Click int
	Twice int
	Press int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Fan           FanState
	Page          PageState
	Counts        GestureCounts
	LastGesture   logic.Gesture
	LastGestureAt time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Fan:       FanState{Duty: -1},
			Page:      PageState{Index: -1},
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetFan records a completed fan cycle.
func (t *Tracker) SetFan(temp float64, duty int, enabled bool) {
	t.mu.Lock()
	t.snap.Fan = FanState{Enabled: enabled, Duty: duty, Temperature: temp, UpdatedAt: t.now()}
	t.mu.Unlock()
}

// SetFanEnabled records a latch change before the next fan cycle sees it.
func (t *Tracker) SetFanEnabled(enabled bool) {
	t.mu.Lock()
	t.snap.Fan.Enabled = enabled
	t.mu.Unlock()
}

// Duty returns the last applied duty cycle, or -1 before the first cycle.
func (t *Tracker) Duty() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap.Fan.Duty
}

// SetPage records the page now on the display.
func (t *Tracker) SetPage(index, count int, title string) {
	t.mu.Lock()
	t.snap.Page = PageState{Index: index, Count: count, Title: title}
	t.mu.Unlock()
}

// RecordGesture counts a classified gesture.
func (t *Tracker) RecordGesture(g logic.Gesture) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch g {
	case logic.GestureClick:
		t.snap.Counts.Click++
	case logic.GestureTwice:
		t.snap.Counts.Twice++
	case logic.GesturePress:
		t.snap.Counts.Press++
	default:
		return
	}
	t.snap.LastGesture = g
	t.snap.LastGestureAt = t.now()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if s.Network != nil {
		n := *s.Network
		n.Interfaces = append([]string(nil), n.Interfaces...)
		s.Network = &n
	}
	s.Now = t.now()
	return s
}
