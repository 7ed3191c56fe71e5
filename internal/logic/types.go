// Package logic contains the pure control core of the SATA hat daemon:
// the fan curve, the fan latch, button gesture classification, gesture
// dispatch and page rotation.
// This package has NO external dependencies (no GPIO, display, MQTT, OS, or time.Sleep).
// Time only enters as configured durations; loops live in internal/daemon.
package logic

import "time"

// Gesture is a classified button gesture. The values match the keys of the
// [key] section of the configuration file.
type Gesture string

const (
	GestureNone  Gesture = ""
	GestureClick Gesture = "click"
	GestureTwice Gesture = "twice"
	GesturePress Gesture = "press"
)

// Action is what a gesture is mapped to.
type Action string

const (
	ActionSlider Action = "slider"
	ActionSwitch Action = "switch"
	ActionNone   Action = "none"
)

// ParseAction converts a configured action name. Anything unknown is ActionNone.
func ParseAction(s string) Action {
	switch Action(s) {
	case ActionSlider, ActionSwitch:
		return Action(s)
	}
	return ActionNone
}

// KeyMap maps each gesture to an action.
type KeyMap struct {
	Click Action
	Twice Action
	Press Action
}

// DefaultKeyMap is click=slider, twice=switch, press=none.
func DefaultKeyMap() KeyMap {
	return KeyMap{Click: ActionSlider, Twice: ActionSwitch, Press: ActionNone}
}

// Lookup returns the action for a gesture. Unknown gestures map to ActionNone.
func (k KeyMap) Lookup(g Gesture) Action {
	switch g {
	case GestureClick:
		return ParseAction(string(k.Click))
	case GestureTwice:
		return ParseAction(string(k.Twice))
	case GesturePress:
		return ParseAction(string(k.Press))
	}
	return ActionNone
}

// FanConfig holds the four temperature thresholds (Celsius) and the curve mode.
// Thresholds should be non-decreasing: Lv0 <= Lv1 <= Lv2 <= Lv3.
type FanConfig struct {
	Lv0    float64
	Lv1    float64
	Lv2    float64
	Lv3    float64
	Linear bool
}

// DefaultFanConfig is 35/40/45/50 °C in stepped mode.
func DefaultFanConfig() FanConfig {
	return FanConfig{Lv0: 35, Lv1: 40, Lv2: 45, Lv3: 50}
}

// GestureTiming holds the gesture windows and the sampling interval.
type GestureTiming struct {
	Twice    time.Duration // quiet period after a release that confirms a single click
	Press    time.Duration // how long the button must be held for a long press
	Interval time.Duration // sampling interval
}

// DefaultGestureTiming is twice=0.7s, press=1.8s sampled every 100ms.
func DefaultGestureTiming() GestureTiming {
	return GestureTiming{
		Twice:    700 * time.Millisecond,
		Press:    1800 * time.Millisecond,
		Interval: 100 * time.Millisecond,
	}
}

// TwiceSamples is the click confirmation window in samples.
func (t GestureTiming) TwiceSamples() int {
	return samples(t.Twice, t.Interval)
}

// PressSamples is the long press window in samples.
func (t GestureTiming) PressSamples() int {
	return samples(t.Press, t.Interval)
}

func samples(d, interval time.Duration) int {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	n := int(d / interval)
	if n < 1 {
		n = 1
	}
	return n
}

// Line is a single draw instruction: text at a position in a font size.
type Line struct {
	X    int
	Y    int
	Text string
	Size int
}

// Page is one screenful of status content.
type Page struct {
	Title string
	Lines []Line
	// Refresh marks pages whose content changes quickly (disk I/O). They
	// use the slider refresh delay instead of the slide delay.
	Refresh bool
}

// SliderTiming controls automatic page rotation.
type SliderTiming struct {
	Auto    bool
	Time    time.Duration
	Refresh time.Duration // 0 means use Time
}

// DefaultSliderTiming is auto rotation every 10s with no refresh override.
func DefaultSliderTiming() SliderTiming {
	return SliderTiming{Auto: true, Time: 10 * time.Second}
}

// Delay returns how long page p stays on screen.
func (s SliderTiming) Delay(p Page) time.Duration {
	if p.Refresh && s.Refresh > 0 {
		return s.Refresh
	}
	return s.Time
}
