// Package eta turns a distance & motion state into a minutes estimate. It
// never fails: missing inputs downgrade the confidence tier instead & bad
// numeric inputs are floored before any arithmetic sees them.
package eta

import (
	"math"
	"time"

	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
)

type Predictor struct {
	Config  Config
	Profile *TrafficProfile
}

func NewPredictor(config Config, profile *TrafficProfile) *Predictor {
	if profile == nil {
		profile = DefaultTrafficProfile()
	}

	return &Predictor{
		Config:  config,
		Profile: profile,
	}
}

// Estimate predicts how many minutes the vehicle needs to cover
// distanceMeters. historicalSpeedKmh is nil when no usable history exists.
//
// Speed tiers, in priority order:
//  1. moving vehicle: live speed blended with the historical average - high
//  2. historical average alone - medium
//  3. base speed constant - low
func (predictor *Predictor) Estimate(stopRef string, distanceMeters float64, currentSpeedKmh float64, historicalSpeedKmh *float64, at time.Time) *ftdf.ETAEstimate {
	config := predictor.Config

	if distanceMeters < 0 {
		distanceMeters = 0
	}
	if currentSpeedKmh < 0 {
		currentSpeedKmh = 0
	}
	if historicalSpeedKmh != nil && *historicalSpeedKmh <= 0 {
		historicalSpeedKmh = nil
	}

	roadDistanceMeters := distanceMeters * config.RoadDistanceFactor

	var speedKmh float64
	var confidence ftdf.ETAConfidence

	switch {
	case currentSpeedKmh > config.MovingSpeedCutoffKmh:
		speedKmh = currentSpeedKmh
		if historicalSpeedKmh != nil {
			speedKmh = currentSpeedKmh*config.LiveSpeedWeight + *historicalSpeedKmh*(1-config.LiveSpeedWeight)
		}
		confidence = ftdf.ETAConfidenceHigh
	case historicalSpeedKmh != nil:
		speedKmh = *historicalSpeedKmh
		confidence = ftdf.ETAConfidenceMedium
	default:
		speedKmh = config.BaseSpeedKmh
		confidence = ftdf.ETAConfidenceLow
	}

	speedKmh *= predictor.Profile.Factor(at)

	// The floor also guarantees a positive denominator below
	if speedKmh < config.MinimumSpeedKmh {
		speedKmh = config.MinimumSpeedKmh
	}

	etaMinutes := int(math.Round(roadDistanceMeters / 1000 / speedKmh * 60))
	if etaMinutes < 0 {
		etaMinutes = 0
	}

	return &ftdf.ETAEstimate{
		StopRef:            stopRef,
		ETAMinutes:         etaMinutes,
		DistanceMeters:     distanceMeters,
		RoadDistanceMeters: roadDistanceMeters,
		EffectiveSpeedKmh:  speedKmh,
		Confidence:         confidence,
		Interval: &ftdf.ETAInterval{
			MinMinutes: int(math.Round(float64(etaMinutes) * 0.8)),
			MaxMinutes: int(math.Round(float64(etaMinutes) * 1.2)),
		},
	}
}
