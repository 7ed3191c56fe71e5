package logic

import "strings"

// doubleClickTail is the minimum number of released samples that close a
// double click.
const doubleClickTail = 3

// Classifier turns a stream of button samples into gestures.
//
// Samples are logical: true means released, false means pressed. The window
// holds the most recent samples, oldest first, and is scanned as runs of
// equal samples anchored at the oldest one. Patterns, in precedence order:
//
//	click: released, pressed, released for at least TwiceSamples
//	twice: released, pressed, released, pressed, released for at least 3
//	press: released, pressed for at least PressSamples
//
// The window is cleared after every match, so one physical gesture is
// reported once. Pressed samples are not recorded into an empty window:
// a button still held after a long press reports nothing more until it is
// released.
type Classifier struct {
	twice  int
	press  int
	window []bool
}

// NewClassifier creates a classifier for the given timing.
func NewClassifier(timing GestureTiming) *Classifier {
	c := &Classifier{
		twice: timing.TwiceSamples(),
		press: timing.PressSamples(),
	}
	c.window = make([]bool, 0, c.Capacity())
	return c
}

// Capacity is the window size: one released sample plus a full long press,
// the longest gesture.
func (c *Classifier) Capacity() int {
	return c.press + 1
}

// Push adds a sample and returns the gesture it completes, or GestureNone.
func (c *Classifier) Push(released bool) Gesture {
	// A pattern can only start on a released sample.
	if len(c.window) == 0 && !released {
		return GestureNone
	}
	if len(c.window) == c.Capacity() {
		copy(c.window, c.window[1:])
		c.window = c.window[:len(c.window)-1]
	}
	c.window = append(c.window, released)

	g := c.match()
	if g != GestureNone {
		c.Reset()
	}
	return g
}

// Reset clears the window.
func (c *Classifier) Reset() {
	c.window = c.window[:0]
}

// Window returns the window as a string of '1' (released) and '0' (pressed).
func (c *Classifier) Window() string {
	var b strings.Builder
	for _, s := range c.window {
		if s {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func (c *Classifier) match() Gesture {
	runs := runLengths(c.window)
	if len(runs) == 0 || !c.window[0] {
		return GestureNone
	}

	// runs alternate released/pressed starting with released.
	switch {
	case len(runs) >= 3 && runs[2] >= c.twice:
		return GestureClick
	case len(runs) >= 5 && runs[4] >= doubleClickTail:
		return GestureTwice
	case len(runs) >= 2 && runs[1] >= c.press:
		return GesturePress
	}
	return GestureNone
}

// runLengths returns the lengths of consecutive equal samples.
func runLengths(window []bool) []int {
	var runs []int
	for i, s := range window {
		if i == 0 || s != window[i-1] {
			runs = append(runs, 0)
		}
		runs[len(runs)-1]++
	}
	return runs
}
