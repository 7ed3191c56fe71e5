package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

// DefaultThermalZone is the SoC temperature in millidegrees Celsius.
const DefaultThermalZone = "/sys/class/thermal/thermal_zone0/temp"

// UsageCacheTTL is how long disk usage figures are reused.
const UsageCacheTTL = 30 * time.Second

// System reads telemetry from the running host.
type System struct {
	ThermalZone string
	Smart       *Smart

	rates struct {
		disk *RateMeter
		net  *RateMeter
	}

	mu    sync.Mutex
	usage map[string]usageEntry
	now   func() time.Time
}

type usageEntry struct {
	usage []Usage
	at    time.Time
}

// NewSystem creates a System. smart may be nil when disk temperatures are
// not wanted.
func NewSystem(smart *Smart) *System {
	s := &System{
		ThermalZone: DefaultThermalZone,
		Smart:       smart,
		usage:       make(map[string]usageEntry),
		now:         time.Now,
	}
	s.rates.disk = NewRateMeter()
	s.rates.net = NewRateMeter()
	return s
}

// CPUTemp reads the thermal zone, falling back to the first hwmon sensor.
func (s *System) CPUTemp(ctx context.Context) (float64, error) {
	t, zoneErr := readMilliCelsius(s.ThermalZone)
	if zoneErr == nil {
		return t, nil
	}

	sensors, err := host.SensorsTemperaturesWithContext(ctx)
	for _, ts := range sensors {
		if ts.Temperature > 0 {
			return ts.Temperature, nil
		}
	}
	return 0, fmt.Errorf("read cpu temperature: %w", errors.Join(zoneErr, err))
}

func readMilliCelsius(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v / 1000, nil
}

// DiskTemps returns nothing when no smartctl reader is configured.
func (s *System) DiskTemps(ctx context.Context) (map[string]float64, error) {
	if s.Smart == nil {
		return map[string]float64{}, nil
	}
	return s.Smart.DiskTemps(ctx)
}

func (s *System) Uptime(ctx context.Context) (time.Duration, error) {
	secs, err := host.UptimeWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("read uptime: %w", err)
	}
	return time.Duration(secs) * time.Second, nil
}

// IP returns the first IPv4 address of an interface that is up and not
// loopback.
func (s *System) IP(ctx context.Context) (string, error) {
	ifaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if !isUp(iface) || isLoopback(iface) {
			continue
		}
		for _, a := range iface.Addrs {
			p, err := netip.ParsePrefix(a.Addr)
			if err != nil || !p.Addr().Is4() {
				continue
			}
			return p.Addr().String(), nil
		}
	}
	return "", errors.New("no IPv4 address")
}

// CPULoad returns the one minute load average.
func (s *System) CPULoad(ctx context.Context) (float64, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("read load: %w", err)
	}
	return avg.Load1, nil
}

func (s *System) Memory(ctx context.Context) (Memory, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Memory{}, fmt.Errorf("read memory: %w", err)
	}
	return Memory{UsedMB: vm.Used / mib, TotalMB: vm.Total / mib}, nil
}

func (s *System) RootUsage(ctx context.Context) (float64, error) {
	u, err := s.cachedUsage("/", func() ([]Usage, error) {
		st, err := disk.UsageWithContext(ctx, "/")
		if err != nil {
			return nil, fmt.Errorf("read usage of /: %w", err)
		}
		return []Usage{{Disk: "root", UsedPercent: st.UsedPercent}}, nil
	})
	if err != nil {
		return 0, err
	}
	return u[0].UsedPercent, nil
}

// DiskUsage results are cached for UsageCacheTTL.
func (s *System) DiskUsage(ctx context.Context, mountPoints []string) ([]Usage, error) {
	key := strings.Join(mountPoints, "|")
	return s.cachedUsage(key, func() ([]Usage, error) {
		devices, err := s.mounts(ctx)
		if err != nil {
			return nil, err
		}
		var out []Usage
		for _, mp := range mountPoints {
			dev, ok := devices[mp]
			if !ok {
				continue
			}
			st, err := disk.UsageWithContext(ctx, mp)
			if err != nil {
				return nil, fmt.Errorf("read usage of %s: %w", mp, err)
			}
			out = append(out, Usage{Disk: dev, UsedPercent: st.UsedPercent})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Disk < out[j].Disk })
		return out, nil
	})
}

func (s *System) cachedUsage(key string, fetch func() ([]Usage, error)) ([]Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.usage[key]; ok && s.now().Sub(c.at) <= UsageCacheTTL {
		return c.usage, nil
	}
	u, err := fetch()
	if err != nil {
		return nil, err
	}
	s.usage[key] = usageEntry{usage: u, at: s.now()}
	return u, nil
}

// mounts maps mount point to the partition name backing it.
func (s *System) mounts(ctx context.Context) (map[string]string, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	m := make(map[string]string, len(parts))
	for _, p := range parts {
		m[p.Mountpoint] = strings.TrimPrefix(p.Device, "/dev/")
	}
	return m, nil
}

// Disks returns sorted, de-duplicated disk names with partition numbers
// removed.
func (s *System) Disks(ctx context.Context, mountPoints []string) ([]string, error) {
	devices, err := s.mounts(ctx)
	if err != nil {
		return nil, err
	}
	var disks []string
	for _, mp := range mountPoints {
		if dev, ok := devices[mp]; ok {
			disks = append(disks, StripPartition(dev))
		}
	}
	sort.Strings(disks)
	return slices.Compact(disks), nil
}

// Interfaces returns the sorted names of interfaces that are up.
func (s *System) Interfaces(ctx context.Context) ([]string, error) {
	ifaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}
	var names []string
	for _, iface := range ifaces {
		if isUp(iface) && !isLoopback(iface) {
			names = append(names, iface.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *System) DiskRates(ctx context.Context, disks []string) (map[string]Rate, error) {
	if len(disks) == 0 {
		return map[string]Rate{}, nil
	}
	counters, err := disk.IOCountersWithContext(ctx, disks...)
	if err != nil {
		return nil, fmt.Errorf("read disk counters: %w", err)
	}
	out := make(map[string]Rate, len(disks))
	for _, d := range disks {
		c, ok := counters[d]
		if !ok {
			continue
		}
		out[d] = s.rates.disk.Observe(d, c.ReadBytes, c.WriteBytes)
	}
	return out, nil
}

func (s *System) NetRates(ctx context.Context, ifaces []string) (map[string]Rate, error) {
	if len(ifaces) == 0 {
		return map[string]Rate{}, nil
	}
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("read interface counters: %w", err)
	}
	out := make(map[string]Rate, len(ifaces))
	for _, c := range counters {
		if !slices.Contains(ifaces, c.Name) {
			continue
		}
		out[c.Name] = s.rates.net.Observe(c.Name, c.BytesRecv, c.BytesSent)
	}
	return out, nil
}

func isUp(iface net.InterfaceStat) bool {
	return slices.Contains(iface.Flags, "up")
}

func isLoopback(iface net.InterfaceStat) bool {
	return slices.Contains(iface.Flags, "loopback")
}
