package logic

import "math"

// Duty cycles for each threshold level.
const (
	DutyLv3   = 100
	DutyLv2   = 75
	DutyLv1   = 50
	DutyLv0   = 25
	DutyFloor = 10 // below lv0 the fan keeps spinning slowly
)

// DutyCycle converts a temperature into a fan duty cycle percentage.
//
// Stepped mode returns the duty of the highest level whose threshold is at or
// below temp, or DutyFloor below lv0. Linear mode interpolates from 25% at lv0
// to 100% at lv3, clamped to [25, 100].
func DutyCycle(temp float64, cfg FanConfig) int {
	if cfg.Linear {
		return linearDuty(temp, cfg)
	}

	levels := [...]struct {
		threshold float64
		duty      int
	}{
		{cfg.Lv3, DutyLv3},
		{cfg.Lv2, DutyLv2},
		{cfg.Lv1, DutyLv1},
		{cfg.Lv0, DutyLv0},
	}
	for _, lv := range levels {
		if temp >= lv.threshold {
			return lv.duty
		}
	}
	return DutyFloor
}

func linearDuty(temp float64, cfg FanConfig) int {
	slope := 1.0
	if span := cfg.Lv3 - cfg.Lv0; span > 0 {
		slope = float64(DutyLv3-DutyLv0) / span
	}

	dc := slope*(temp-cfg.Lv0) + DutyLv0
	dc = math.Max(dc, DutyLv0)
	dc = math.Min(dc, DutyLv3)
	if math.IsNaN(dc) {
		return DutyLv0
	}
	return int(math.Round(dc))
}
