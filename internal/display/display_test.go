package display

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/sweeney/rockpi-quad/internal/logic"
	"github.com/sweeney/rockpi-quad/internal/telemetry"
)

func litPixels(img *image1bit.VerticalLSB) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestRenderDrawsAndClears(t *testing.T) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height))

	Render(img, WelcomePage.Lines)
	assert.Positive(t, litPixels(img))

	Render(img, nil)
	assert.Zero(t, litPixels(img))
}

func TestRenderRespectsPosition(t *testing.T) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height))

	Render(img, []logic.Line{{X: 64, Y: 0, Text: "X"}})
	for y := 0; y < Height; y++ {
		for x := 0; x < 64; x++ {
			require.Equal(t, image1bit.Off, img.BitAt(x, y), "pixel %d,%d left of the text", x, y)
		}
	}
	assert.Positive(t, litPixels(img))
}

func TestRenderUsesLineSize(t *testing.T) {
	small := image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height))
	large := image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height))

	Render(small, []logic.Line{{Text: "Disk: root 45%", Size: 10}})
	Render(large, []logic.Line{{Text: "Disk: root 45%", Size: 14}})

	assert.NotEqual(t, small.Pix, large.Pix)
	assert.Greater(t, litPixels(large), litPixels(small))
}

func TestFaceForCachesPerSize(t *testing.T) {
	a, err := faceFor(12)
	require.NoError(t, err)
	b, err := faceFor(12)
	require.NoError(t, err)
	assert.Same(t, a, b)

	def, err := faceFor(0)
	require.NoError(t, err)
	assert.Same(t, a, def)

	c, err := faceFor(14)
	require.NoError(t, err)
	assert.Greater(t, c.Metrics().Height, a.Metrics().Height)
}

func TestLoadPageBeforeFirstFanCycle(t *testing.T) {
	pages := BuildPages(context.Background(), fullProvider(), PageOptions{FanDuty: func() int { return -1 }})
	require.GreaterOrEqual(t, len(pages), 2)
	assert.Equal(t, "Fan speed: -", pages[1].Lines[0].Text)
}

func fullProvider() *telemetry.FakeProvider {
	return &telemetry.FakeProvider{
		CPU:       47.3,
		DiskTemp:  map[string]float64{"sdb": 41, "sda": 34},
		UptimeVal: 26*time.Hour + 5*time.Minute,
		IPAddr:    "192.168.1.20",
		Load:      0.42,
		Mem:       telemetry.Memory{UsedMB: 512, TotalMB: 3906},
		Root:      12,
		Usages:    []telemetry.Usage{{Disk: "sda1", UsedPercent: 40}, {Disk: "sdb1", UsedPercent: 7}},
		DiskNames: []string{"sda"},
		Ifaces:    []string{"eth0", "wlan0"},
		DiskIO:    map[string]telemetry.Rate{"sda": {In: 1.5, Out: 0.25}},
		NetIO:     map[string]telemetry.Rate{"eth0": {In: 0.125, Out: 2}},
	}
}

func texts(p logic.Page) []string {
	out := make([]string, len(p.Lines))
	for i, l := range p.Lines {
		out[i] = l.Text
	}
	return out
}

func TestBuildPagesMinimal(t *testing.T) {
	pages := BuildPages(context.Background(), fullProvider(), PageOptions{FanDuty: func() int { return 75 }})
	require.Len(t, pages, 3)

	assert.Equal(t, []string{"Up: 1d 2h 5m", "CPU Temp: 47.3C", "IP 192.168.1.20"}, texts(pages[0]))
	assert.Equal(t, []string{"Fan speed: 75%", "CPU Load: 0.42", "Mem: 512/3906MB"}, texts(pages[1]))
	assert.Equal(t, []string{"Disk: root 12%"}, texts(pages[2]))
	assert.Equal(t, 14, pages[2].Lines[0].Size)
}

func TestBuildPagesFull(t *testing.T) {
	pages := BuildPages(context.Background(), fullProvider(), PageOptions{
		SpaceMounts:    []string{"/mnt/a", "/mnt/b"},
		IOMounts:       []string{"/mnt/a"},
		AutoInterfaces: true,
		DiskTemps:      true,
		Fahrenheit:     true,
	})

	var titles []string
	for _, p := range pages {
		titles = append(titles, p.Title)
	}
	assert.Equal(t, []string{"system", "load", "disk", "net-eth0", "net-wlan0", "disk-temp", "io-sda"}, titles)

	assert.Equal(t, "CPU Temp: 117F", pages[0].Lines[1].Text)
	assert.Equal(t, "Fan speed: -", pages[1].Lines[0].Text)
	assert.Equal(t, []string{"Disk: root 12%", "sda1 40%  sdb1 7%"}, texts(pages[2]))
	assert.Equal(t, []string{"Network (eth0):", "rx: 0.12500 MB/s", "tx: 2.00000 MB/s"}, texts(pages[3]))
	assert.Equal(t, []string{"Network (wlan0):", "rx: 0.00000 MB/s", "tx: 0.00000 MB/s"}, texts(pages[4]))
	assert.Equal(t, []string{"Disks Temp:", "sda 93F  sdb 106F"}, texts(pages[5]))
	assert.Equal(t, []string{"Disk (sda):", "R: 1.50000 MB/s", "W: 0.25000 MB/s"}, texts(pages[6]))

	assert.True(t, pages[6].Refresh)
	assert.False(t, pages[3].Refresh)
}

func TestBuildPagesDiskTempFailureDropsPage(t *testing.T) {
	p := fullProvider()
	p.DiskErr = errors.New("smartctl missing")

	pages := BuildPages(context.Background(), p, PageOptions{DiskTemps: true})
	assert.Len(t, pages, 3)
}

func TestBuildPagesCPUFailureShowsDash(t *testing.T) {
	p := fullProvider()
	p.CPUErr = errors.New("no thermal zone")

	pages := BuildPages(context.Background(), p, PageOptions{})
	assert.Equal(t, "CPU Temp: -", pages[0].Lines[1].Text)
}

func TestListPageLayouts(t *testing.T) {
	es := []entry{{"a", "1"}, {"b", "2"}, {"c", "3"}, {"d", "4"}}

	tests := []struct {
		n     int
		lines []string
		size  int
	}{
		{0, []string{"H"}, 14},
		{1, []string{"H", "a 1"}, 12},
		{2, []string{"H", "a 1  b 2"}, 12},
		{3, []string{"H", "a 1  b 2", "c 3"}, 11},
		{4, []string{"H", "a 1  b 2", "c 3  d 4"}, 11},
	}
	for _, tt := range tests {
		p := listPage("t", "H", es[:tt.n])
		assert.Equal(t, tt.lines, texts(p), "n=%d", tt.n)
		assert.Equal(t, tt.size, p.Lines[0].Size, "n=%d", tt.n)
	}
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "0m", FormatUptime(30*time.Second))
	assert.Equal(t, "5m", FormatUptime(5*time.Minute))
	assert.Equal(t, "1w 2d 3h 4m", FormatUptime(9*24*time.Hour+3*time.Hour+4*time.Minute))
}

func TestFormatTemps(t *testing.T) {
	assert.Equal(t, "45.0C", FormatCPUTemp(45, false))
	assert.Equal(t, "113F", FormatCPUTemp(45, true))
	assert.Equal(t, "38C", FormatDiskTemp(38.4, false))
}

func TestFakeSinkGoodbyeOnce(t *testing.T) {
	f := NewFakeSink()
	require.NoError(t, f.Goodbye())
	require.NoError(t, f.Goodbye())
	assert.Equal(t, 1, f.Goodbyes())
}

func TestDiscardAcceptsEverything(t *testing.T) {
	var s Sink = Discard{}
	assert.NoError(t, s.Welcome())
	assert.NoError(t, s.Show(WelcomePage))
	assert.NoError(t, s.Goodbye())
	assert.NoError(t, s.Close())
}
