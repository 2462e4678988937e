package speed

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Samples at or below this are idle noise & excluded from the average
	MovingSpeedCutoffKmh float64

	// Below this many qualifying samples the base speed is returned unchanged
	MinimumSamples int

	// At most this many recent history rows are read per vehicle
	MaximumSamples int64

	// Trailing window the samples must fall in, as an ISO8601 period
	SampleWindow string

	// Fraction trimmed from each end of the sorted samples
	TrimFraction float64

	// Returned when not enough qualifying samples exist
	BaseSpeedKmh float64

	CacheExpiration time.Duration
}

var defaultConfig = Config{
	MovingSpeedCutoffKmh: 5,
	MinimumSamples:       10,
	MaximumSamples:       1000,
	SampleWindow:         "P7D",
	TrimFraction:         0.1,
	BaseSpeedKmh:         25,
	CacheExpiration:      30 * time.Minute,
}

// GetConfig returns the estimator configuration from environment variables or defaults
func GetConfig() Config {
	config := defaultConfig

	if val := os.Getenv("FLEETPULSE_MOVING_SPEED_CUTOFF_KMH"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.MovingSpeedCutoffKmh = parsed
		}
	}

	if val := os.Getenv("FLEETPULSE_SPEED_MINIMUM_SAMPLES"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.MinimumSamples = parsed
		}
	}

	if val := os.Getenv("FLEETPULSE_SPEED_MAXIMUM_SAMPLES"); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.MaximumSamples = parsed
		}
	}

	if val := os.Getenv("FLEETPULSE_SPEED_SAMPLE_WINDOW"); val != "" {
		config.SampleWindow = val
	}

	if val := os.Getenv("FLEETPULSE_BASE_SPEED_KMH"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.BaseSpeedKmh = parsed
		}
	}

	if val := os.Getenv("FLEETPULSE_SPEED_CACHE_EXPIRATION"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			config.CacheExpiration = parsed
		}
	}

	return config
}
