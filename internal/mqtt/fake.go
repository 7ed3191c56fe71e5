package mqtt

import "sync"

// FakePublisher records published events for test assertions. Safe for
// concurrent use; read the recorded slices through the accessor methods
// while loops are still running.
type FakePublisher struct {
	mu sync.Mutex

	gestures []GestureEvent
	fans     []FanEvent
	system   []SystemEvent
	payloads [][]byte

	// PublishError, if set, is returned by every Publish method and nothing
	// is recorded.
	PublishError error

	// Connected controls the return value of IsConnected.
	Connected bool

	closed bool
}

// NewFakePublisher creates a FakePublisher.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) record(payload []byte, err error, add func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	if err != nil {
		return err
	}
	add()
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *FakePublisher) PublishGesture(event GestureEvent) error {
	payload, err := FormatGesturePayload(event)
	return f.record(payload, err, func() { f.gestures = append(f.gestures, event) })
}

func (f *FakePublisher) PublishFan(event FanEvent) error {
	payload, err := FormatFanPayload(event)
	return f.record(payload, err, func() { f.fans = append(f.fans, event) })
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	return f.record(payload, err, func() { f.system = append(f.system, event) })
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakePublisher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Gestures returns the gesture events published so far.
func (f *FakePublisher) Gestures() []GestureEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]GestureEvent(nil), f.gestures...)
}

// Fans returns the fan events published so far.
func (f *FakePublisher) Fans() []FanEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FanEvent(nil), f.fans...)
}

// SystemEvents returns the lifecycle events published so far.
func (f *FakePublisher) SystemEvents() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.system...)
}

// Payloads returns every JSON payload published, in order.
func (f *FakePublisher) Payloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gestures = nil
	f.fans = nil
	f.system = nil
	f.payloads = nil
	f.closed = false
	f.PublishError = nil
	f.Connected = false
}
