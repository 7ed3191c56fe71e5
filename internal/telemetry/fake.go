package telemetry

import (
	"context"
	"maps"
	"sync"
	"time"
)

// FakeProvider returns scripted telemetry. Safe for concurrent use.
type FakeProvider struct {
	mu sync.Mutex

	CPU       float64
	DiskTemp  map[string]float64
	UptimeVal time.Duration
	IPAddr    string
	Load      float64
	Mem       Memory
	Root      float64
	Usages    []Usage
	DiskNames []string
	Ifaces    []string
	DiskIO    map[string]Rate
	NetIO     map[string]Rate

	// CPUErr and DiskErr, if set, are returned by the temperature reads.
	CPUErr  error
	DiskErr error

	cpuCalls int
}

// SetCPU changes the CPU temperature returned from now on.
func (f *FakeProvider) SetCPU(t float64) {
	f.mu.Lock()
	f.CPU = t
	f.mu.Unlock()
}

// SetCPUErr changes the CPU temperature error.
func (f *FakeProvider) SetCPUErr(err error) {
	f.mu.Lock()
	f.CPUErr = err
	f.mu.Unlock()
}

// CPUCalls returns how many times CPUTemp was called.
func (f *FakeProvider) CPUCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cpuCalls
}

func (f *FakeProvider) CPUTemp(context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cpuCalls++
	return f.CPU, f.CPUErr
}

func (f *FakeProvider) DiskTemps(context.Context) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DiskErr != nil {
		return nil, f.DiskErr
	}
	return maps.Clone(f.DiskTemp), nil
}

func (f *FakeProvider) Uptime(context.Context) (time.Duration, error) { return f.UptimeVal, nil }
func (f *FakeProvider) IP(context.Context) (string, error)             { return f.IPAddr, nil }
func (f *FakeProvider) CPULoad(context.Context) (float64, error)       { return f.Load, nil }
func (f *FakeProvider) Memory(context.Context) (Memory, error)         { return f.Mem, nil }
func (f *FakeProvider) RootUsage(context.Context) (float64, error)     { return f.Root, nil }

func (f *FakeProvider) DiskUsage(context.Context, []string) ([]Usage, error) {
	return f.Usages, nil
}

func (f *FakeProvider) Disks(context.Context, []string) ([]string, error) {
	return f.DiskNames, nil
}

func (f *FakeProvider) Interfaces(context.Context) ([]string, error) {
	return f.Ifaces, nil
}

func (f *FakeProvider) DiskRates(_ context.Context, disks []string) (map[string]Rate, error) {
	return pick(f.DiskIO, disks), nil
}

func (f *FakeProvider) NetRates(_ context.Context, ifaces []string) (map[string]Rate, error) {
	return pick(f.NetIO, ifaces), nil
}

func pick(m map[string]Rate, keys []string) map[string]Rate {
	out := make(map[string]Rate, len(keys))
	for _, k := range keys {
		if r, ok := m[k]; ok {
			out[k] = r
		}
	}
	return out
}
