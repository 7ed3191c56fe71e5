// Package daemon runs the hat's concurrent loops: button sampling, fan
// control, page rotation and the MQTT heartbeat. The loops share only the
// fan latch, the page advance signal and the status tracker.
package daemon

import (
	"log/slog"

	"github.com/sweeney/rockpi-quad/internal/logic"
	"github.com/sweeney/rockpi-quad/internal/status"
)

// Advancer carries manual page-advance requests to the slider loop.
// Requests made while one is pending are merged into it.
type Advancer struct {
	ch chan struct{}
}

// NewAdvancer creates an Advancer.
func NewAdvancer() *Advancer {
	return &Advancer{ch: make(chan struct{}, 1)}
}

// Advance requests a page advance. It never blocks.
func (a *Advancer) Advance() {
	select {
	case a.ch <- struct{}{}:
	default:
	}
}

// C is the channel the slider loop waits on.
func (a *Advancer) C() <-chan struct{} {
	return a.ch
}

// Controls performs user actions from the button and the HTTP API through
// the same dispatcher, keeping the tracker in step.
type Controls struct {
	Dispatcher *logic.Dispatcher
	Tracker    *status.Tracker // optional
}

// Gesture performs the action mapped to g.
func (c *Controls) Gesture(g logic.Gesture) logic.Action {
	action := c.Dispatcher.Dispatch(g)
	if c.Tracker != nil {
		c.Tracker.RecordGesture(g)
	}
	c.applied(action)
	slog.Info("gesture", "gesture", g, "action", action)
	return action
}

// Perform carries out action directly.
func (c *Controls) Perform(action logic.Action) logic.Action {
	done := c.Dispatcher.Perform(action)
	c.applied(done)
	slog.Info("action", "requested", action, "performed", done)
	return done
}

// FanEnabled reports the latch state.
func (c *Controls) FanEnabled() bool {
	return c.Dispatcher.Latch != nil && c.Dispatcher.Latch.Enabled()
}

func (c *Controls) applied(action logic.Action) {
	if action == logic.ActionSwitch && c.Tracker != nil {
		c.Tracker.SetFanEnabled(c.FanEnabled())
	}
}
