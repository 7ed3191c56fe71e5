// Package gpio provides the hat's GPIO lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device and the
// sysfs PWM class. The fake implementations allow testing without hardware.
package gpio

// ButtonReader samples the hat button.
type ButtonReader interface {
	// Read returns true while the button is released.
	// The wiring polarity is handled by the implementation.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// FanDriver applies a duty cycle to the fan.
type FanDriver interface {
	// SetDuty sets the fan duty cycle in percent, clamped to [0, 100].
	SetDuty(percent int) error

	// Close stops driving the fan and releases resources.
	Close() error
}

// PowerSwitch controls the SATA power rails.
type PowerSwitch interface {
	SetSATA(on bool) error
	Close() error
}

// Line identifies a GPIO line on a chip. A negative Offset means the line
// is not wired.
type Line struct {
	Chip   string
	Offset int
}

// Wired reports whether the line is configured.
func (l Line) Wired() bool {
	return l.Offset >= 0
}

// Released maps a raw button level to the released state. pressedLow is
// set when the line reads 0 while the button is held.
func Released(raw int, pressedLow bool) bool {
	return (raw == 1) == pressedLow
}

// DefaultChip is used when no chip is configured.
const DefaultChip = "gpiochip0"

// PWM period used for the fan, 25 kHz.
const fanPeriodNs = 40000

func clampDuty(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// chipName accepts "gpiochip4" or a bare chip number "4".
func chipName(chip string) string {
	if chip == "" {
		return DefaultChip
	}
	for _, r := range chip {
		if r < '0' || r > '9' {
			return chip
		}
	}
	return "gpiochip" + chip
}
