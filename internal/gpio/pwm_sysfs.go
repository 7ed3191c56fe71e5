package gpio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// SysfsRoot is the sysfs PWM class directory.
const SysfsRoot = "/sys/class/pwm"

// SysfsPWM drives the fan through a hardware PWM channel exposed by the
// kernel PWM class (/sys/class/pwm/pwmchipN/pwm0).
type SysfsPWM struct {
	dir    string // .../pwmchipN/pwm0
	period int
	invert bool
}

// NewSysfsPWM exports channel 0 of chip, sets a 25 kHz period and enables it.
// chip may be "pwmchip1" or a bare number "1". root is normally SysfsRoot.
func NewSysfsPWM(root, chip string, invert bool) (*SysfsPWM, error) {
	if _, err := strconv.Atoi(chip); err == nil {
		chip = "pwmchip" + chip
	}
	chipDir := filepath.Join(root, chip)
	p := &SysfsPWM{
		dir:    filepath.Join(chipDir, "pwm0"),
		period: fanPeriodNs,
		invert: invert,
	}

	if _, err := os.Stat(p.dir); errors.Is(err, fs.ErrNotExist) {
		if err := writeSysfs(filepath.Join(chipDir, "export"), "0"); err != nil {
			return nil, fmt.Errorf("export %s: %w", chip, err)
		}
		if err := waitExported(p.dir); err != nil {
			return nil, err
		}
	}

	if err := writeSysfs(filepath.Join(p.dir, "period"), strconv.Itoa(p.period)); err != nil {
		return nil, fmt.Errorf("set pwm period: %w", err)
	}
	if err := p.SetDuty(0); err != nil {
		return nil, err
	}
	if err := writeSysfs(filepath.Join(p.dir, "enable"), "1"); err != nil {
		return nil, fmt.Errorf("enable pwm: %w", err)
	}
	return p, nil
}

// SetDuty writes the duty cycle in nanoseconds of the period.
func (p *SysfsPWM) SetDuty(percent int) error {
	percent = clampDuty(percent)
	if p.invert {
		percent = 100 - percent
	}
	ns := p.period * percent / 100
	if err := writeSysfs(filepath.Join(p.dir, "duty_cycle"), strconv.Itoa(ns)); err != nil {
		return fmt.Errorf("set pwm duty: %w", err)
	}
	return nil
}

// Close disables the channel.
func (p *SysfsPWM) Close() error {
	if err := writeSysfs(filepath.Join(p.dir, "enable"), "0"); err != nil {
		return fmt.Errorf("disable pwm: %w", err)
	}
	return nil
}

func writeSysfs(path, value string) error {
	return os.WriteFile(path, []byte(value), 0o644)
}

// waitExported waits for udev to create the channel directory after export.
func waitExported(dir string) error {
	for i := 0; i < 20; i++ {
		if _, err := os.Stat(dir); err == nil {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("pwm channel %s did not appear", dir)
}
