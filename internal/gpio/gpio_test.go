package gpio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sweeney/rockpi-quad/internal/logic"
)

func TestReleased(t *testing.T) {
	tests := []struct {
		raw        int
		pressedLow bool
		want       bool
	}{
		{raw: 1, pressedLow: true, want: true},
		{raw: 0, pressedLow: true, want: false},
		{raw: 1, pressedLow: false, want: false},
		{raw: 0, pressedLow: false, want: true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Released(tt.raw, tt.pressedLow), "raw %d pressedLow %v", tt.raw, tt.pressedLow)
	}
}

func TestRawClickClassifiesAsClick(t *testing.T) {
	// Idle high, two samples pulled low, then idle again.
	raw := strings.Repeat("1", 10) + "00" + strings.Repeat("1", 24)

	c := logic.NewClassifier(logic.DefaultGestureTiming())
	var got []logic.Gesture
	for _, r := range raw {
		if g := c.Push(Released(int(r-'0'), true)); g != logic.GestureNone {
			got = append(got, g)
		}
	}
	assert.Equal(t, []logic.Gesture{logic.GestureClick}, got)
}

func TestRawHoldClassifiesAsPress(t *testing.T) {
	raw := "1" + strings.Repeat("0", 20) + "111"

	c := logic.NewClassifier(logic.DefaultGestureTiming())
	var got []logic.Gesture
	for _, r := range raw {
		if g := c.Push(Released(int(r-'0'), true)); g != logic.GestureNone {
			got = append(got, g)
		}
	}
	assert.Equal(t, []logic.Gesture{logic.GesturePress}, got)
}
