//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealButton is not available on non-Linux platforms.
type RealButton struct{}

// NewRealButton returns an error on non-Linux platforms.
func NewRealButton(l Line, pressedLow bool) (*RealButton, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (b *RealButton) Read() (bool, error) {
	return false, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (b *RealButton) Close() error {
	return nil
}

// RealSATA is not available on non-Linux platforms.
type RealSATA struct{}

// NewRealSATA returns an error on non-Linux platforms.
func NewRealSATA(lines ...Line) (*RealSATA, error) {
	return nil, errUnsupported
}

// SetSATA is not implemented on non-Linux platforms.
func (s *RealSATA) SetSATA(on bool) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (s *RealSATA) Close() error {
	return nil
}

// SoftPWM is not available on non-Linux platforms.
type SoftPWM struct{}

// NewSoftPWM returns an error on non-Linux platforms.
func NewSoftPWM(l Line, invert bool) (*SoftPWM, error) {
	return nil, errUnsupported
}

// SetDuty is not implemented on non-Linux platforms.
func (p *SoftPWM) SetDuty(percent int) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (p *SoftPWM) Close() error {
	return nil
}
