package display

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sweeney/rockpi-quad/internal/logic"
	"github.com/sweeney/rockpi-quad/internal/telemetry"
)

// PageOptions selects which pages BuildPages generates.
type PageOptions struct {
	Fahrenheit bool

	// SpaceMounts are the mount points listed on the disk usage page.
	SpaceMounts []string
	// IOMounts get one read/write rate page per disk.
	IOMounts []string
	// Interfaces get one rx/tx rate page each. Ignored when AutoInterfaces
	// is set.
	Interfaces     []string
	AutoInterfaces bool
	DiskTemps      bool

	// FanDuty is the duty cycle last applied to the fan.
	FanDuty func() int
}

// Three-line layout rows, and the roomier two-line layout.
var (
	rows3 = [3]int{-2, 10, 21}
	rows2 = [2]int{2, 18}
)

// BuildPages generates the current page set. Its length depends on the
// configured disks and interfaces and on what the system reports, so it can
// change between calls. Telemetry failures show as "-" rather than dropping
// a page.
func BuildPages(ctx context.Context, p telemetry.Provider, o PageOptions) []logic.Page {
	pages := []logic.Page{
		systemPage(ctx, p, o),
		loadPage(ctx, p, o),
		usagePage(ctx, p, o),
	}
	pages = append(pages, interfacePages(ctx, p, o)...)
	if o.DiskTemps {
		if pg, ok := diskTempPage(ctx, p, o); ok {
			pages = append(pages, pg)
		}
	}
	return append(pages, diskIOPages(ctx, p, o)...)
}

func threeLines(a, b, c string, sizes ...int) []logic.Line {
	size := [3]int{11, 11, 11}
	copy(size[:], sizes)
	return []logic.Line{
		{Y: rows3[0], Text: a, Size: size[0]},
		{Y: rows3[1], Text: b, Size: size[1]},
		{Y: rows3[2], Text: c, Size: size[2]},
	}
}

func twoLines(a, b string) []logic.Line {
	return []logic.Line{
		{Y: rows2[0], Text: a, Size: 12},
		{Y: rows2[1], Text: b, Size: 12},
	}
}

func warn(what string, err error) {
	slog.Debug("telemetry read failed", "what", what, "error", err)
}

func systemPage(ctx context.Context, p telemetry.Provider, o PageOptions) logic.Page {
	up := "Up: -"
	if d, err := p.Uptime(ctx); err == nil {
		up = "Up: " + FormatUptime(d)
	} else {
		warn("uptime", err)
	}

	temp := "CPU Temp: -"
	if t, err := p.CPUTemp(ctx); err == nil {
		temp = "CPU Temp: " + FormatCPUTemp(t, o.Fahrenheit)
	} else {
		warn("cpu temp", err)
	}

	ip := "IP -"
	if addr, err := p.IP(ctx); err == nil {
		ip = "IP " + addr
	} else {
		warn("ip", err)
	}

	return logic.Page{Title: "system", Lines: threeLines(up, temp, ip)}
}

func loadPage(ctx context.Context, p telemetry.Provider, o PageOptions) logic.Page {
	fan := "Fan speed: -"
	if o.FanDuty != nil {
		if duty := o.FanDuty(); duty >= 0 {
			fan = fmt.Sprintf("Fan speed: %d%%", duty)
		}
	}

	cpu := "CPU Load: -"
	if l, err := p.CPULoad(ctx); err == nil {
		cpu = fmt.Sprintf("CPU Load: %.2f", l)
	} else {
		warn("load", err)
	}

	mem := "Mem: -"
	if m, err := p.Memory(ctx); err == nil {
		mem = fmt.Sprintf("Mem: %d/%dMB", m.UsedMB, m.TotalMB)
	} else {
		warn("memory", err)
	}

	return logic.Page{Title: "load", Lines: threeLines(fan, cpu, mem, 11, 12, 12)}
}

type entry struct{ name, value string }

func (e entry) String() string { return e.name + " " + e.value }

// pairs joins entries two to a line.
func pairs(es []entry) []string {
	var out []string
	for i := 0; i < len(es); i += 2 {
		if i+1 < len(es) {
			out = append(out, es[i].String()+"  "+es[i+1].String())
		} else {
			out = append(out, es[i].String())
		}
	}
	return out
}

// listPage lays out a heading and up to four entries.
func listPage(title, heading string, es []entry) logic.Page {
	lines := pairs(es)
	switch {
	case len(lines) >= 2:
		return logic.Page{Title: title, Lines: threeLines(heading, lines[0], lines[1])}
	case len(lines) == 1:
		return logic.Page{Title: title, Lines: twoLines(heading, lines[0])}
	default:
		return logic.Page{Title: title, Lines: []logic.Line{{Y: 2, Text: heading, Size: 14}}}
	}
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v)
}

func usagePage(ctx context.Context, p telemetry.Provider, o PageOptions) logic.Page {
	root := "-"
	if v, err := p.RootUsage(ctx); err == nil {
		root = percent(v)
	} else {
		warn("root usage", err)
	}
	heading := "Disk: root " + root

	var es []entry
	if len(o.SpaceMounts) > 0 {
		usage, err := p.DiskUsage(ctx, o.SpaceMounts)
		if err != nil {
			warn("disk usage", err)
		}
		for _, u := range usage {
			es = append(es, entry{u.Disk, percent(u.UsedPercent)})
		}
	}
	if len(es) > 4 {
		es = es[:4]
	}
	return listPage("disk", heading, es)
}

func diskTempPage(ctx context.Context, p telemetry.Provider, o PageOptions) (logic.Page, bool) {
	temps, err := p.DiskTemps(ctx)
	if err != nil {
		warn("disk temps", err)
		return logic.Page{}, false
	}
	if len(temps) == 0 {
		return logic.Page{}, false
	}

	names := make([]string, 0, len(temps))
	for name := range temps {
		names = append(names, name)
	}
	sort.Strings(names)

	var es []entry
	for _, name := range names {
		es = append(es, entry{name, FormatDiskTemp(temps[name], o.Fahrenheit)})
	}
	if len(es) > 4 {
		es = es[:4]
	}
	return listPage("disk-temp", "Disks Temp:", es), true
}

func interfacePages(ctx context.Context, p telemetry.Provider, o PageOptions) []logic.Page {
	ifaces := o.Interfaces
	if o.AutoInterfaces {
		var err error
		if ifaces, err = p.Interfaces(ctx); err != nil {
			warn("interfaces", err)
			return nil
		}
	}
	if len(ifaces) == 0 {
		return nil
	}

	rates, err := p.NetRates(ctx, ifaces)
	if err != nil {
		warn("net rates", err)
	}
	pages := make([]logic.Page, 0, len(ifaces))
	for _, name := range ifaces {
		r := rates[name]
		pages = append(pages, logic.Page{
			Title: "net-" + name,
			Lines: threeLines(
				"Network ("+name+"):",
				fmt.Sprintf("rx: %.5f MB/s", r.In),
				fmt.Sprintf("tx: %.5f MB/s", r.Out),
			),
		})
	}
	return pages
}

func diskIOPages(ctx context.Context, p telemetry.Provider, o PageOptions) []logic.Page {
	if len(o.IOMounts) == 0 {
		return nil
	}
	disks, err := p.Disks(ctx, o.IOMounts)
	if err != nil {
		warn("io disks", err)
		return nil
	}
	rates, err := p.DiskRates(ctx, disks)
	if err != nil {
		warn("disk rates", err)
	}

	pages := make([]logic.Page, 0, len(disks))
	for _, d := range disks {
		r := rates[d]
		pages = append(pages, logic.Page{
			Title: "io-" + d,
			Lines: threeLines(
				"Disk ("+d+"):",
				fmt.Sprintf("R: %.5f MB/s", r.In),
				fmt.Sprintf("W: %.5f MB/s", r.Out),
			),
			Refresh: true,
		})
	}
	return pages
}

// FormatCPUTemp renders a CPU temperature. The panel font is ASCII only, so
// the unit has no degree sign.
func FormatCPUTemp(c float64, fahrenheit bool) string {
	if fahrenheit {
		return fmt.Sprintf("%.0fF", c*1.8+32)
	}
	return fmt.Sprintf("%.1fC", c)
}

// FormatDiskTemp renders a whole-degree disk temperature.
func FormatDiskTemp(c float64, fahrenheit bool) string {
	if fahrenheit {
		return fmt.Sprintf("%.0fF", c*1.8+32)
	}
	return fmt.Sprintf("%.0fC", c)
}

// FormatUptime renders d as e.g. "1w 2d 3h 4m".
func FormatUptime(d time.Duration) string {
	units := []struct {
		suffix string
		size   time.Duration
	}{
		{"w", 7 * 24 * time.Hour},
		{"d", 24 * time.Hour},
		{"h", time.Hour},
		{"m", time.Minute},
	}

	var parts []string
	for _, u := range units {
		if n := d / u.size; n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, u.suffix))
			d -= n * u.size
		}
	}
	if len(parts) == 0 {
		return "0m"
	}
	return strings.Join(parts, " ")
}
