package progress

import (
	"os"
	"strconv"
)

type Options struct {
	// A stop closer than this to the vehicle counts as reached
	ReachedThresholdMeters float64

	// The closest stop counts as current within this multiple of the reached threshold
	CurrentThresholdMultiplier float64
}

var defaultOptions = Options{
	ReachedThresholdMeters:     100,
	CurrentThresholdMultiplier: 3,
}

// GetOptions returns the classification options from environment variables or defaults
func GetOptions() Options {
	options := defaultOptions

	if val := os.Getenv("FLEETPULSE_REACHED_THRESHOLD_METERS"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			options.ReachedThresholdMeters = parsed
		}
	}

	if val := os.Getenv("FLEETPULSE_CURRENT_THRESHOLD_MULTIPLIER"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			options.CurrentThresholdMultiplier = parsed
		}
	}

	return options
}

func (options Options) CurrentThresholdMeters() float64 {
	return options.ReachedThresholdMeters * options.CurrentThresholdMultiplier
}
