// Package config loads the hat configuration file (/etc/rockpi-quad.conf).
//
// Every field has a default. A missing file, or a value that does not parse,
// falls back to the default for that field only, so Load always returns a
// usable Config.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/rockpi-quad/internal/logic"
)

// DefaultPath is where the packaged service looks for its configuration.
const DefaultPath = "/etc/rockpi-quad.conf"

// SampleInterval is the fixed button sampling interval.
const SampleInterval = 100 * time.Millisecond

// InterfacesAuto selects every network interface that is up.
const InterfacesAuto = "auto"

// Config is the parsed configuration. It is treated as immutable after Load.
type Config struct {
	Fan     Fan     `yaml:"fan"`
	Key     Key     `yaml:"key"`
	Time    Time    `yaml:"time"`
	Slider  Slider  `yaml:"slider"`
	OLED    OLED    `yaml:"oled"`
	Disk    Disk    `yaml:"disk"`
	Network Network `yaml:"network"`
}

// Fan is the [fan] section.
type Fan struct {
	Lv0       float64 `yaml:"lv0"`
	Lv1       float64 `yaml:"lv1"`
	Lv2       float64 `yaml:"lv2"`
	Lv3       float64 `yaml:"lv3"`
	Linear    bool    `yaml:"linear"`
	TempDisks bool    `yaml:"temp_disks"` // drive the fan from the hottest disk too
}

// Key is the [key] section: the action for each gesture.
type Key struct {
	Click string `yaml:"click"`
	Twice string `yaml:"twice"`
	Press string `yaml:"press"`
}

// Time is the [time] section: gesture windows.
type Time struct {
	Twice time.Duration `yaml:"twice"`
	Press time.Duration `yaml:"press"`
}

// Slider is the [slider] section.
type Slider struct {
	Auto    bool          `yaml:"auto"`
	Time    time.Duration `yaml:"time"`
	Refresh time.Duration `yaml:"refresh"`
}

// OLED is the [oled] section.
type OLED struct {
	Rotate bool `yaml:"rotate"`
	FTemp  bool `yaml:"f_temp"`
}

// Disk is the [disk] section.
type Disk struct {
	SpaceUsageMountPoints []string `yaml:"space_usage_mnt_points"`
	IOUsageMountPoints    []string `yaml:"io_usage_mnt_points"`
	DisksTemp             bool     `yaml:"disks_temp"`
}

// Network is the [network] section.
type Network struct {
	Interfaces []string `yaml:"interfaces"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	fan := logic.DefaultFanConfig()
	keys := logic.DefaultKeyMap()
	gt := logic.DefaultGestureTiming()
	st := logic.DefaultSliderTiming()

	return Config{
		Fan: Fan{Lv0: fan.Lv0, Lv1: fan.Lv1, Lv2: fan.Lv2, Lv3: fan.Lv3},
		Key: Key{
			Click: string(keys.Click),
			Twice: string(keys.Twice),
			Press: string(keys.Press),
		},
		Time:   Time{Twice: gt.Twice, Press: gt.Press},
		Slider: Slider{Auto: st.Auto, Time: st.Time},
	}
}

// Load reads the configuration file at path. The returned Config is always
// usable; a non-nil error means the file could not be read at all and the
// defaults are in effect.
func Load(path string) (Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return Defaults(), fmt.Errorf("load config %s: %w", path, err)
	}
	return parse(f), nil
}

// Parse reads the configuration from INI data.
func Parse(data []byte) (Config, error) {
	f, err := ini.Load(data)
	if err != nil {
		return Defaults(), fmt.Errorf("parse config: %w", err)
	}
	return parse(f), nil
}

func parse(f *ini.File) Config {
	c := Defaults()
	r := reader{f: f}

	c.Fan.Lv0 = r.float("fan", "lv0", c.Fan.Lv0)
	c.Fan.Lv1 = r.float("fan", "lv1", c.Fan.Lv1)
	c.Fan.Lv2 = r.float("fan", "lv2", c.Fan.Lv2)
	c.Fan.Lv3 = r.float("fan", "lv3", c.Fan.Lv3)
	c.Fan.Linear = r.bool("fan", "linear", c.Fan.Linear)
	c.Fan.TempDisks = r.bool("fan", "temp_disks", c.Fan.TempDisks)

	c.Key.Click = r.action("key", "click", c.Key.Click)
	c.Key.Twice = r.action("key", "twice", c.Key.Twice)
	c.Key.Press = r.action("key", "press", c.Key.Press)

	c.Time.Twice = r.seconds("time", "twice", c.Time.Twice)
	c.Time.Press = r.seconds("time", "press", c.Time.Press)

	c.Slider.Auto = r.bool("slider", "auto", c.Slider.Auto)
	c.Slider.Time = r.seconds("slider", "time", c.Slider.Time)
	c.Slider.Refresh = r.seconds("slider", "refresh", c.Slider.Refresh)
	if c.Slider.Time <= 0 {
		r.warn("slider", "time", "0", Defaults().Slider.Time)
		c.Slider.Time = Defaults().Slider.Time
	}

	c.OLED.Rotate = r.bool("oled", "rotate", c.OLED.Rotate)
	c.OLED.FTemp = r.bool("oled", "f-temp", c.OLED.FTemp)

	c.Disk.SpaceUsageMountPoints = r.list("disk", "space_usage_mnt_points")
	c.Disk.IOUsageMountPoints = r.list("disk", "io_usage_mnt_points")
	c.Disk.DisksTemp = r.bool("disk", "disks_temp", c.Disk.DisksTemp)

	c.Network.Interfaces = r.list("network", "interfaces")

	c.warnInconsistent()
	return c
}

func (c Config) warnInconsistent() {
	f := c.Fan
	if !(f.Lv0 <= f.Lv1 && f.Lv1 <= f.Lv2 && f.Lv2 <= f.Lv3) {
		slog.Warn("config: fan thresholds are not ascending, stepped curve will not be monotonic",
			"lv0", f.Lv0, "lv1", f.Lv1, "lv2", f.Lv2, "lv3", f.Lv3)
	}
	if f.Linear && f.Lv3 <= f.Lv0 {
		slog.Warn("config: lv3 must be above lv0 for the linear curve, using 1%/°C", "lv0", f.Lv0, "lv3", f.Lv3)
	}
}

// FanCurve returns the fan curve parameters.
func (c Config) FanCurve() logic.FanConfig {
	return logic.FanConfig{
		Lv0:    c.Fan.Lv0,
		Lv1:    c.Fan.Lv1,
		Lv2:    c.Fan.Lv2,
		Lv3:    c.Fan.Lv3,
		Linear: c.Fan.Linear,
	}
}

// KeyMap returns the gesture to action mapping.
func (c Config) KeyMap() logic.KeyMap {
	return logic.KeyMap{
		Click: logic.ParseAction(c.Key.Click),
		Twice: logic.ParseAction(c.Key.Twice),
		Press: logic.ParseAction(c.Key.Press),
	}
}

// GestureTiming returns the gesture windows at the fixed sample interval.
func (c Config) GestureTiming() logic.GestureTiming {
	return logic.GestureTiming{
		Twice:    c.Time.Twice,
		Press:    c.Time.Press,
		Interval: SampleInterval,
	}
}

// SliderTiming returns the page rotation settings.
func (c Config) SliderTiming() logic.SliderTiming {
	return logic.SliderTiming{
		Auto:    c.Slider.Auto,
		Time:    c.Slider.Time,
		Refresh: c.Slider.Refresh,
	}
}

// FanPoll returns the fan loop interval. Reading disk temperatures runs
// smartctl on every disk, so with temp_disks the loop slows to one cycle per
// sixteen slides.
func (c Config) FanPoll(base time.Duration) time.Duration {
	if c.Fan.TempDisks {
		return c.Slider.Time * 16
	}
	return base
}

// AutoInterfaces reports whether the interface list should be discovered.
func (c Config) AutoInterfaces() bool {
	return len(c.Network.Interfaces) == 1 && c.Network.Interfaces[0] == InterfacesAuto
}

// WriteYAML writes the effective configuration as YAML.
func (c Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// reader reads typed keys, logging and falling back on bad values.
type reader struct {
	f *ini.File
}

func (r reader) key(section, name string) (*ini.Key, bool) {
	s, err := r.f.GetSection(section)
	if err != nil || !s.HasKey(name) {
		return nil, false
	}
	return s.Key(name), true
}

func (r reader) warn(section, name, value string, def any) {
	slog.Warn("config: invalid value, using default",
		"section", section, "key", name, "value", value, "default", def)
}

func (r reader) float(section, name string, def float64) float64 {
	k, ok := r.key(section, name)
	if !ok {
		return def
	}
	v, err := k.Float64()
	if err != nil {
		r.warn(section, name, k.String(), def)
		return def
	}
	return v
}

func (r reader) bool(section, name string, def bool) bool {
	k, ok := r.key(section, name)
	if !ok {
		return def
	}
	v, err := k.Bool()
	if err != nil {
		r.warn(section, name, k.String(), def)
		return def
	}
	return v
}

// seconds reads a non-negative number of seconds, e.g. "0.7". An empty value is 0.
func (r reader) seconds(section, name string, def time.Duration) time.Duration {
	k, ok := r.key(section, name)
	if !ok {
		return def
	}
	if strings.TrimSpace(k.String()) == "" {
		return 0
	}
	v, err := k.Float64()
	if err != nil || v < 0 {
		r.warn(section, name, k.String(), def)
		return def
	}
	return time.Duration(v * float64(time.Second)).Round(time.Millisecond)
}

func (r reader) action(section, name, def string) string {
	k, ok := r.key(section, name)
	if !ok {
		return def
	}
	v := strings.TrimSpace(k.String())
	if a := logic.ParseAction(v); string(a) != v {
		r.warn(section, name, v, logic.ActionNone)
		return string(logic.ActionNone)
	}
	return v
}

// list reads a '|' separated list, dropping empty entries.
func (r reader) list(section, name string) []string {
	k, ok := r.key(section, name)
	if !ok {
		return nil
	}
	var out []string
	for _, s := range strings.Split(k.String(), "|") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
