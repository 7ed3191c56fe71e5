package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/tidwall/gjson"
)

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Smart reads disk temperatures with `smartctl -A -j`.
type Smart struct {
	Path       string        // smartctl binary
	Timeout    time.Duration // per device
	Concurrent int           // devices scanned in parallel

	// Glob lists the partitions whose disks are scanned.
	Glob string

	run  Runner
	glob func(pattern string) ([]string, error)
}

// NewSmart creates a Smart reader using run to execute smartctl.
func NewSmart(run Runner) *Smart {
	if run == nil {
		run = ExecRunner
	}
	return &Smart{
		Path:       "smartctl",
		Timeout:    10 * time.Second,
		Concurrent: 4,
		Glob:       "/dev/sd*[0-9]",
		run:        run,
		glob:       filepath.Glob,
	}
}

// Devices returns the sorted disk names that have at least one partition.
func (s *Smart) Devices() ([]string, error) {
	matches, err := s.glob(s.Glob)
	if err != nil {
		return nil, fmt.Errorf("list disks: %w", err)
	}
	seen := make(map[string]bool)
	var disks []string
	for _, m := range matches {
		d := StripPartition(filepath.Base(m))
		if !seen[d] {
			seen[d] = true
			disks = append(disks, d)
		}
	}
	sort.Strings(disks)
	return disks, nil
}

type smartResult struct {
	disk string
	temp float64
	err  error
}

// DiskTemps scans every disk concurrently. Disks that fail are logged and
// left out; an error is returned only when every disk failed.
func (s *Smart) DiskTemps(ctx context.Context) (map[string]float64, error) {
	disks, err := s.Devices()
	if err != nil {
		return nil, err
	}
	if len(disks) == 0 {
		return map[string]float64{}, nil
	}

	workers := s.Concurrent
	if workers < 1 {
		workers = 1
	}
	p := pool.New().WithMaxGoroutines(workers)
	results := make(chan smartResult, len(disks))

	for _, disk := range disks {
		p.Go(func() {
			t, err := s.diskTemp(ctx, disk)
			results <- smartResult{disk: disk, temp: t, err: err}
		})
	}

	p.Wait()
	close(results)

	temps := make(map[string]float64, len(disks))
	var errs []error
	for r := range results {
		if r.err != nil {
			slog.Warn("smartctl failed", "disk", r.disk, "error", r.err)
			errs = append(errs, r.err)
			continue
		}
		temps[r.disk] = r.temp
	}
	if len(temps) == 0 {
		return nil, errors.Join(errs...)
	}
	return temps, nil
}

func (s *Smart) diskTemp(ctx context.Context, disk string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	dev := "/dev/" + disk
	bs, err := s.run(ctx, s.Path, "-A", dev, "-j")
	// smartctl sets status bits for drive health; the JSON is still usable.
	if err != nil && (len(bs) == 0 || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return 0, fmt.Errorf("smartctl %s: %w", dev, err)
	}
	return parseSmartTemp(dev, bs)
}

func parseSmartTemp(dev string, bs []byte) (float64, error) {
	if len(bs) == 0 {
		return 0, fmt.Errorf("smartctl %s: no output", dev)
	}
	if !gjson.ValidBytes(bs) {
		return 0, fmt.Errorf("smartctl %s: invalid JSON output", dev)
	}

	res := gjson.ParseBytes(bs)
	for _, msg := range res.Get("smartctl.messages").Array() {
		if msg.Get("severity").String() == "error" {
			return 0, fmt.Errorf("smartctl %s: %s", dev, msg.Get("string"))
		}
	}

	t := res.Get("temperature.current")
	if !t.Exists() {
		return 0, fmt.Errorf("smartctl %s: no temperature reported", dev)
	}
	return t.Float(), nil
}
