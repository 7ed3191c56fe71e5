package telemetry

import (
	"sync"
	"time"
)

const mib = 1024 * 1024

// RateMeter turns monotonically increasing byte counters into MiB/s.
// The first sample of a key reports zero. Safe for concurrent use.
type RateMeter struct {
	mu   sync.Mutex
	last map[string]counterSample
	now  func() time.Time
}

type counterSample struct {
	in, out uint64
	at      time.Time
}

// NewRateMeter creates a RateMeter using the wall clock.
func NewRateMeter() *RateMeter {
	return &RateMeter{last: make(map[string]counterSample), now: time.Now}
}

// Observe records the counters for key and returns the rate since the
// previous observation.
func (m *RateMeter) Observe(key string, in, out uint64) Rate {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	prev, ok := m.last[key]
	m.last[key] = counterSample{in: in, out: out, at: now}
	if !ok {
		return Rate{}
	}

	secs := now.Sub(prev.at).Seconds()
	if secs <= 0 {
		return Rate{}
	}
	return Rate{
		In:  delta(prev.in, in) / mib / secs,
		Out: delta(prev.out, out) / mib / secs,
	}
}

// delta treats a counter that went backwards as reset.
func delta(prev, cur uint64) float64 {
	if cur < prev {
		return 0
	}
	return float64(cur - prev)
}
