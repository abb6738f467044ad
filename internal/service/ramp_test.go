package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/inboxpilot/warmup-backend/internal/errors"
	"github.com/inboxpilot/warmup-backend/internal/service"
)

func TestVolumeForDayMonotonic(t *testing.T) {
	daily := 40
	ramp := 30

	prev := 0
	for day := 0; day <= ramp; day++ {
		volume, err := service.VolumeForDay(daily, ramp, day)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, volume, 1, "day %d", day)
		assert.LessOrEqual(t, volume, daily, "day %d", day)
		assert.GreaterOrEqual(t, volume, prev, "volume must not shrink on day %d", day)
		prev = volume
	}
}

func TestVolumeForDayRampShape(t *testing.T) {
	// Early days stay small, the final day hits the ceiling exactly.
	early, err := service.VolumeForDay(40, 30, 1)
	require.NoError(t, err)
	assert.Less(t, early, 10)

	final, err := service.VolumeForDay(40, 30, 30)
	require.NoError(t, err)
	assert.Equal(t, 40, final)
}

func TestVolumeForDayClampsPastRamp(t *testing.T) {
	volume, err := service.VolumeForDay(40, 30, 45)
	require.NoError(t, err)
	assert.Equal(t, 40, volume)
}

func TestVolumeForDayDeterministic(t *testing.T) {
	a, err := service.VolumeForDay(25, 14, 7)
	require.NoError(t, err)
	b, err := service.VolumeForDay(25, 14, 7)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestVolumeForDayInvalidConfig(t *testing.T) {
	_, err := service.VolumeForDay(40, 0, 1)
	assert.True(t, appErrors.IsConfiguration(err))

	_, err = service.VolumeForDay(40, -3, 1)
	assert.True(t, appErrors.IsConfiguration(err))

	_, err = service.VolumeForDay(0, 30, 1)
	assert.True(t, appErrors.IsConfiguration(err))

	_, err = service.VolumeForDay(40, 30, -1)
	assert.True(t, appErrors.IsConfiguration(err))
}
