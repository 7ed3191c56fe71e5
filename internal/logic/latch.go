package logic

import "sync/atomic"

// FanLatch is the shared "fan enabled" flag. It is written by the gesture
// dispatcher and read by the fan loop; both sides go through atomic
// operations so a toggle is visible to the next fan cycle.
type FanLatch struct {
	enabled atomic.Bool
}

// NewFanLatch creates a latch in the given state.
func NewFanLatch(enabled bool) *FanLatch {
	l := &FanLatch{}
	l.enabled.Store(enabled)
	return l
}

// Toggle flips the latch and returns the new state.
func (l *FanLatch) Toggle() bool {
	for {
		old := l.enabled.Load()
		if l.enabled.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Enabled reports whether the fan may run.
func (l *FanLatch) Enabled() bool {
	return l.enabled.Load()
}

// Set forces the latch state.
func (l *FanLatch) Set(enabled bool) {
	l.enabled.Store(enabled)
}
