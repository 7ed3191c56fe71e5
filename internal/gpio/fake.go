package gpio

import (
	"errors"
	"sync"
)

// FakeButton is a test double that returns scripted button samples.
type FakeButton struct {
	// Samples contains scripted values, true = released.
	// Each call to Read() consumes the next sample.
	Samples []bool

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeButton creates a FakeButton with the given samples.
func NewFakeButton(samples []bool) *FakeButton {
	return &FakeButton{Samples: samples}
}

// NewFakeButtonString creates a FakeButton from a string of '1' (released)
// and '0' (pressed).
func NewFakeButtonString(s string) *FakeButton {
	samples := make([]bool, 0, len(s))
	for _, c := range s {
		samples = append(samples, c == '1')
	}
	return NewFakeButton(samples)
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeButton) Read() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the button as closed.
func (f *FakeButton) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the button to the beginning of samples.
func (f *FakeButton) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeFan records every duty cycle applied. Safe for concurrent use.
type FakeFan struct {
	mu     sync.Mutex
	duties []int
	closed bool

	// SetError, if set, is returned by SetDuty and nothing is recorded.
	SetError error
}

// NewFakeFan creates a FakeFan.
func NewFakeFan() *FakeFan {
	return &FakeFan{}
}

// SetDuty records the clamped duty cycle.
func (f *FakeFan) SetDuty(percent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.duties = append(f.duties, clampDuty(percent))
	return nil
}

// Duties returns a copy of the recorded duty cycles.
func (f *FakeFan) Duties() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.duties...)
}

// Last returns the last duty cycle applied, or -1 if none.
func (f *FakeFan) Last() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.duties) == 0 {
		return -1
	}
	return f.duties[len(f.duties)-1]
}

// Close marks the fan as closed.
func (f *FakeFan) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeFan) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// FakeSATA records the SATA rail state.
type FakeSATA struct {
	On     bool
	Calls  int
	Closed bool
}

// SetSATA records the requested state.
func (f *FakeSATA) SetSATA(on bool) error {
	f.On = on
	f.Calls++
	return nil
}

// Close marks the switch as closed.
func (f *FakeSATA) Close() error {
	f.Closed = true
	return nil
}
