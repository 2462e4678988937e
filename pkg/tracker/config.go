package tracker

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// A vehicle whose latest fix is older than this counts as offline
	OfflineThreshold time.Duration

	// Fixes reporting worse accuracy than this are accepted but logged
	AccuracyWarningMeters float64
}

var defaultConfig = Config{
	OfflineThreshold:      30 * time.Second,
	AccuracyWarningMeters: 50,
}

// GetConfig returns the tracker configuration from environment variables or defaults
func GetConfig() Config {
	config := defaultConfig

	if val := os.Getenv("FLEETPULSE_OFFLINE_THRESHOLD"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			config.OfflineThreshold = parsed
		}
	}

	if val := os.Getenv("FLEETPULSE_ACCURACY_WARNING_METERS"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.AccuracyWarningMeters = parsed
		}
	}

	return config
}
