// internal/config/config.go
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Tunables with environment overrides, e.g. SCHEDULER_INTERVAL=10s.
func init() {
	viper.SetDefault("scheduler.interval", 30*time.Second)
	viper.SetDefault("scheduler.day_every", 24*time.Hour)

	viper.SetDefault("ramp.curve_factor", 3.0)

	viper.SetDefault("reputation.progress_weight", 0.4)
	viper.SetDefault("reputation.delivery_weight", 0.6)

	viper.SetDefault("dispatch.jitter_max", 5*time.Second)
	viper.SetDefault("dispatch.repair_after", 10*time.Minute)
	viper.SetDefault("dispatch.resolve_min", 2*time.Second)
	viper.SetDefault("dispatch.resolve_max", 15*time.Second)

	viper.SetDefault("simulation.delivery_rate", 0.9)
	viper.SetDefault("simulation.auth_failure_rate", 0.05)
	viper.SetDefault("simulation.transport_failure_rate", 0.05)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// SchedulerInterval is how often the scheduler scans for due campaigns.
func SchedulerInterval() time.Duration {
	return viper.GetDuration("scheduler.interval")
}

// SchedulerDayEvery is the minimum spacing between two logical days of the
// same campaign. 24h in production, shrinkable for demos.
func SchedulerDayEvery() time.Duration {
	return viper.GetDuration("scheduler.day_every")
}

// RampCurveFactor steers the exponential ramp curve. Zero or negative falls
// back to a linear ramp.
func RampCurveFactor() float64 {
	return viper.GetFloat64("ramp.curve_factor")
}

func ReputationProgressWeight() float64 {
	return viper.GetFloat64("reputation.progress_weight")
}

func ReputationDeliveryWeight() float64 {
	return viper.GetFloat64("reputation.delivery_weight")
}

// DispatchJitterMax spreads a day's sends instead of bursting them.
func DispatchJitterMax() time.Duration {
	return viper.GetDuration("dispatch.jitter_max")
}

// DispatchRepairAfter is how old a pending email must be before a later pass
// re-enqueues it. Young rows are assumed to be in flight already.
func DispatchRepairAfter() time.Duration {
	return viper.GetDuration("dispatch.repair_after")
}

func ResolveDelayMin() time.Duration {
	return viper.GetDuration("dispatch.resolve_min")
}

func ResolveDelayMax() time.Duration {
	return viper.GetDuration("dispatch.resolve_max")
}

func SimulationDeliveryRate() float64 {
	return viper.GetFloat64("simulation.delivery_rate")
}

func SimulationAuthFailureRate() float64 {
	return viper.GetFloat64("simulation.auth_failure_rate")
}

func SimulationTransportFailureRate() float64 {
	return viper.GetFloat64("simulation.transport_failure_rate")
}
