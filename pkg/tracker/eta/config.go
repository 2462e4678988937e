package eta

import (
	"os"
	"strconv"
)

type Config struct {
	// Fallback speed when neither a live nor a historical speed is usable
	BaseSpeedKmh float64

	// Effective speed never drops below this, whatever the traffic factors say
	MinimumSpeedKmh float64

	// Straight line to road distance correction
	RoadDistanceFactor float64

	// Weight of the live speed when blending with the historical average
	LiveSpeedWeight float64

	// Live speed above this counts the vehicle as moving
	MovingSpeedCutoffKmh float64
}

var defaultConfig = Config{
	BaseSpeedKmh:         25,
	MinimumSpeedKmh:      10,
	RoadDistanceFactor:   1.4,
	LiveSpeedWeight:      0.6,
	MovingSpeedCutoffKmh: 5,
}

// GetConfig returns the predictor configuration from environment variables or defaults
func GetConfig() Config {
	config := defaultConfig

	if val := os.Getenv("FLEETPULSE_BASE_SPEED_KMH"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.BaseSpeedKmh = parsed
		}
	}

	if val := os.Getenv("FLEETPULSE_MINIMUM_SPEED_KMH"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.MinimumSpeedKmh = parsed
		}
	}

	if val := os.Getenv("FLEETPULSE_ROAD_DISTANCE_FACTOR"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.RoadDistanceFactor = parsed
		}
	}

	if val := os.Getenv("FLEETPULSE_LIVE_SPEED_WEIGHT"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed >= 0 && parsed <= 1 {
			config.LiveSpeedWeight = parsed
		}
	}

	if val := os.Getenv("FLEETPULSE_MOVING_SPEED_CUTOFF_KMH"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.MovingSpeedCutoffKmh = parsed
		}
	}

	return config
}
