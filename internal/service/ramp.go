// internal/service/ramp.go
package service

import (
	"math"

	"github.com/inboxpilot/warmup-backend/internal/config"
	appErrors "github.com/inboxpilot/warmup-backend/internal/errors"
)

// VolumeForDay maps a campaign day onto its send volume. The curve is a
// normalized exponential from a floor of 1 up to dailyVolume, hitting the
// ceiling exactly at day == rampUpDays and clamping beyond it. Identical
// inputs always give identical volumes.
func VolumeForDay(dailyVolume, rampUpDays, day int) (int, error) {
	if rampUpDays <= 0 {
		return 0, appErrors.NewConfiguration("ramp_up_days", "must be positive")
	}
	if dailyVolume <= 0 {
		return 0, appErrors.NewConfiguration("daily_volume", "must be positive")
	}
	if day < 0 {
		return 0, appErrors.NewConfiguration("day", "must not be negative")
	}

	if day >= rampUpDays {
		return dailyVolume, nil
	}

	frac := rampFraction(float64(day)/float64(rampUpDays), config.RampCurveFactor())
	volume := int(math.Round(float64(dailyVolume) * frac))
	if volume < 1 {
		volume = 1
	}
	if volume > dailyVolume {
		volume = dailyVolume
	}
	return volume, nil
}

// rampFraction maps progress in [0,1] onto [0,1]. A curve factor k > 0 bends
// the ramp so early days stay small; k <= 0 degrades to linear.
func rampFraction(progress, k float64) float64 {
	if k <= 0 {
		return progress
	}
	return (math.Exp(k*progress) - 1) / (math.Exp(k) - 1)
}
