// Package telemetry reads the system figures shown on the display and used
// by the fan loop: temperatures, load, memory, disk usage and I/O rates.
package telemetry

import (
	"context"
	"strings"
	"time"
	"unicode"
)

// Thermometer supplies temperatures in Celsius.
type Thermometer interface {
	CPUTemp(ctx context.Context) (float64, error)
	// DiskTemps returns the current temperature of each disk, keyed by
	// device name (e.g. "sda").
	DiskTemps(ctx context.Context) (map[string]float64, error)
}

// Provider supplies everything the status pages show.
type Provider interface {
	Thermometer

	Uptime(ctx context.Context) (time.Duration, error)
	IP(ctx context.Context) (string, error)
	CPULoad(ctx context.Context) (float64, error)
	Memory(ctx context.Context) (Memory, error)

	// RootUsage returns the used percentage of the root filesystem.
	RootUsage(ctx context.Context) (float64, error)
	// DiskUsage returns the used percentage of each mount point, keyed by
	// the device name backing it.
	DiskUsage(ctx context.Context, mountPoints []string) ([]Usage, error)
	// Disks returns the device names backing the given mount points.
	Disks(ctx context.Context, mountPoints []string) ([]string, error)
	// Interfaces returns the names of the network interfaces that are up.
	Interfaces(ctx context.Context) ([]string, error)

	DiskRates(ctx context.Context, disks []string) (map[string]Rate, error)
	NetRates(ctx context.Context, ifaces []string) (map[string]Rate, error)
}

// Memory is used and total memory in MiB.
type Memory struct {
	UsedMB  uint64
	TotalMB uint64
}

// Usage is the used percentage of one disk.
type Usage struct {
	Disk        string
	UsedPercent float64
}

// Rate is a transfer rate in MiB/s. For disks In is read and Out is write;
// for interfaces In is received and Out is transmitted.
type Rate struct {
	In  float64
	Out float64
}

// StripPartition turns a partition name such as "sda1" into its disk "sda".
// Names that are not sdX partitions are returned unchanged.
func StripPartition(name string) string {
	if !strings.HasPrefix(name, "sd") {
		return name
	}
	return strings.TrimRightFunc(name, unicode.IsDigit)
}

// HottestDisk returns the highest temperature in temps and false if empty.
func HottestDisk(temps map[string]float64) (float64, bool) {
	var hottest float64
	found := false
	for _, t := range temps {
		if !found || t > hottest {
			hottest = t
			found = true
		}
	}
	return hottest, found
}
