//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealButton reads the hat button from the GPIO character device.
type RealButton struct {
	line       *gpiocdev.Line
	pressedLow bool
}

// NewRealButton requests the button line as an input with pull-up.
// pressedLow is true when the line reads 0 while the button is held.
func NewRealButton(l Line, pressedLow bool) (*RealButton, error) {
	line, err := gpiocdev.RequestLine(chipName(l.Chip), l.Offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithConsumer("hat_button"))
	if err != nil {
		return nil, fmt.Errorf("request button %s:%d: %w", l.Chip, l.Offset, err)
	}
	return &RealButton{line: line, pressedLow: pressedLow}, nil
}

// Read returns true while the button is released.
func (b *RealButton) Read() (bool, error) {
	v, err := b.line.Value()
	if err != nil {
		return false, fmt.Errorf("read button: %w", err)
	}
	return Released(v, b.pressedLow), nil
}

// Close releases the button line.
func (b *RealButton) Close() error {
	if b.line == nil {
		return nil
	}
	if err := b.line.Close(); err != nil {
		return fmt.Errorf("close button: %w", err)
	}
	return nil
}

// RealSATA drives the SATA power enable lines.
type RealSATA struct {
	lines []*gpiocdev.Line
}

// NewRealSATA requests the given lines as outputs, initially on.
func NewRealSATA(lines ...Line) (*RealSATA, error) {
	s := &RealSATA{}
	for i, l := range lines {
		if !l.Wired() {
			continue
		}
		line, err := gpiocdev.RequestLine(chipName(l.Chip), l.Offset,
			gpiocdev.AsOutput(1),
			gpiocdev.WithConsumer(fmt.Sprintf("SATA_LINE_%d", i+1)))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("request SATA line %s:%d: %w", l.Chip, l.Offset, err)
		}
		s.lines = append(s.lines, line)
	}
	return s, nil
}

// SetSATA switches every SATA rail on or off.
func (s *RealSATA) SetSATA(on bool) error {
	v := 0
	if on {
		v = 1
	}
	var errs []error
	for _, l := range s.lines {
		if err := l.SetValue(v); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("set SATA power: %w", errors.Join(errs...))
	}
	return nil
}

// Close releases the lines. The rails keep their last state.
func (s *RealSATA) Close() error {
	var errs []error
	for _, l := range s.lines {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.lines = nil
	if len(errs) > 0 {
		return fmt.Errorf("close SATA lines: %w", errors.Join(errs...))
	}
	return nil
}

// softPeriod is the software PWM period. Scheduling jitter makes anything
// much faster pointless.
const softPeriod = 10 * time.Millisecond

// SoftPWM drives the fan by toggling a plain output line, for boards where
// the fan header is not on a hardware PWM channel.
type SoftPWM struct {
	line   *gpiocdev.Line
	invert bool
	duty   atomic.Int32
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewSoftPWM requests the fan line and starts the PWM goroutine at 0%.
func NewSoftPWM(l Line, invert bool) (*SoftPWM, error) {
	off := 0
	if invert {
		off = 1
	}
	line, err := gpiocdev.RequestLine(chipName(l.Chip), l.Offset,
		gpiocdev.AsOutput(off),
		gpiocdev.WithConsumer("fan"))
	if err != nil {
		return nil, fmt.Errorf("request fan line %s:%d: %w", l.Chip, l.Offset, err)
	}
	p := &SoftPWM{line: line, invert: invert, done: make(chan struct{})}
	p.wg.Add(1)
	go p.run()
	return p, nil
}

// SetDuty sets the duty cycle in percent.
func (p *SoftPWM) SetDuty(percent int) error {
	p.duty.Store(int32(clampDuty(percent)))
	return nil
}

func (p *SoftPWM) level(on bool) int {
	if on != p.invert {
		return 1
	}
	return 0
}

func (p *SoftPWM) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			p.line.SetValue(p.level(false))
			return
		default:
		}

		high := softPeriod * time.Duration(p.duty.Load()) / 100
		if high > 0 {
			p.line.SetValue(p.level(true))
			time.Sleep(high)
		}
		if high < softPeriod {
			p.line.SetValue(p.level(false))
			time.Sleep(softPeriod - high)
		}
	}
}

// Close stops the PWM goroutine, leaves the fan off and releases the line.
func (p *SoftPWM) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		p.wg.Wait()
		if cerr := p.line.Close(); cerr != nil {
			err = fmt.Errorf("close fan line: %w", cerr)
		}
	})
	return err
}
