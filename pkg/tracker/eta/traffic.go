package eta

import (
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// TrafficProfile scales effective speed by time of day & day of week. Factors
// below 1 slow the vehicle down (rush hour), above 1 speed it up (empty
// night roads). Hours or days missing from a table count as factor 1.
type TrafficProfile struct {
	HourFactors map[int]float64    `yaml:"hour_factors"`
	DayFactors  map[string]float64 `yaml:"day_factors"`
}

func DefaultTrafficProfile() *TrafficProfile {
	return &TrafficProfile{
		HourFactors: map[int]float64{
			0: 1.15, 1: 1.15, 2: 1.15, 3: 1.15, 4: 1.15, 5: 1.1,
			6: 0.9, 7: 0.7, 8: 0.7, 9: 0.8,
			10: 0.9, 11: 0.9, 12: 0.85, 13: 0.85, 14: 0.9, 15: 0.8,
			16: 0.7, 17: 0.65, 18: 0.7, 19: 0.85,
			20: 1, 21: 1, 22: 1.1, 23: 1.15,
		},
		DayFactors: map[string]float64{
			"Monday":    1,
			"Tuesday":   1,
			"Wednesday": 0.95,
			"Thursday":  0.95,
			"Friday":    0.9,
			"Saturday":  1.05,
			"Sunday":    1.1,
		},
	}
}

// GetTrafficProfile loads the profile named by FLEETPULSE_TRAFFIC_PROFILE,
// falling back to the built in tables when unset or unreadable
func GetTrafficProfile() *TrafficProfile {
	path := os.Getenv("FLEETPULSE_TRAFFIC_PROFILE")
	if path == "" {
		return DefaultTrafficProfile()
	}

	profileYaml, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to read traffic profile, using default")
		return DefaultTrafficProfile()
	}

	var profile TrafficProfile
	if err := yaml.Unmarshal(profileYaml, &profile); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to parse traffic profile, using default")
		return DefaultTrafficProfile()
	}

	log.Info().Str("path", path).Msg("Loaded traffic profile")

	return &profile
}

// Factor returns the combined hour of day x day of week multiplier for at
func (profile *TrafficProfile) Factor(at time.Time) float64 {
	hourFactor := 1.0
	if factor, exists := profile.HourFactors[at.Hour()]; exists {
		hourFactor = factor
	}

	dayFactor := 1.0
	if factor, exists := profile.DayFactors[at.Weekday().String()]; exists {
		dayFactor = factor
	}

	return hourFactor * dayFactor
}
