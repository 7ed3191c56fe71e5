package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweeney/rockpi-quad/internal/gpio"
	"github.com/sweeney/rockpi-quad/internal/logic"
	"github.com/sweeney/rockpi-quad/internal/mqtt"
	"github.com/sweeney/rockpi-quad/internal/status"
	"github.com/sweeney/rockpi-quad/internal/telemetry"
)

// FanLoop applies the fan curve to the current temperature.
type FanLoop struct {
	Thermometer telemetry.Thermometer
	Fan         gpio.FanDriver
	Latch       *logic.FanLatch
	Curve       logic.FanConfig
	// UseDisks drives the fan from the hottest of the CPU and the disks.
	UseDisks bool

	Tracker   *status.Tracker // optional
	Publisher mqtt.Publisher  // optional
	Now       func() time.Time

	applied bool
	last    int
	enabled bool
}

// Temperature returns the temperature the curve is applied to.
func (l *FanLoop) Temperature(ctx context.Context) (float64, error) {
	temp, err := l.Thermometer.CPUTemp(ctx)
	if err != nil {
		return 0, fmt.Errorf("read cpu temperature: %w", err)
	}
	if !l.UseDisks {
		return temp, nil
	}

	disks, err := l.Thermometer.DiskTemps(ctx)
	if err != nil {
		slog.Warn("disk temperatures unavailable, using cpu only", "error", err)
		return temp, nil
	}
	if hottest, ok := telemetry.HottestDisk(disks); ok && hottest > temp {
		return hottest, nil
	}
	return temp, nil
}

// Cycle reads the temperature and applies the duty cycle, or 0 when the
// latch is off. On error nothing is applied and the previous duty stays.
func (l *FanLoop) Cycle(ctx context.Context) (int, error) {
	temp, err := l.Temperature(ctx)
	if err != nil {
		return 0, err
	}

	enabled := l.Latch.Enabled()
	duty := 0
	if enabled {
		duty = logic.DutyCycle(temp, l.Curve)
	}
	if err := l.Fan.SetDuty(duty); err != nil {
		return 0, fmt.Errorf("set fan duty %d%%: %w", duty, err)
	}

	if l.Tracker != nil {
		l.Tracker.SetFan(temp, duty, enabled)
	}
	if !l.applied || duty != l.last || enabled != l.enabled {
		slog.Info("fan", "temp", temp, "duty", duty, "enabled", enabled)
		l.publish(temp, duty, enabled)
	}
	l.applied, l.last, l.enabled = true, duty, enabled
	return duty, nil
}

func (l *FanLoop) publish(temp float64, duty int, enabled bool) {
	if l.Publisher == nil {
		return
	}
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	ev := mqtt.FanEvent{Timestamp: now(), Enabled: enabled, Duty: duty, Temperature: temp}
	if err := l.Publisher.PublishFan(ev); err != nil {
		slog.Warn("publish fan event failed", "error", err)
	}
}

// Run runs a cycle immediately and then on every tick until ctx is done.
// A failed cycle is logged and retried on the next tick.
func (l *FanLoop) Run(ctx context.Context, tick <-chan time.Time) error {
	for {
		if _, err := l.Cycle(ctx); err != nil {
			slog.Warn("fan cycle skipped", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
		}
	}
}
