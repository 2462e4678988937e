package ftdf

type ETAConfidence string

const (
	ETAConfidenceHigh   ETAConfidence = "High"
	ETAConfidenceMedium               = "Medium"
	ETAConfidenceLow                  = "Low"
)

type ETAEstimate struct {
	StopRef string `groups:"basic"`

	ETAMinutes int `groups:"basic"`

	DistanceMeters     float64 `groups:"basic"`
	RoadDistanceMeters float64 `groups:"detailed"`

	EffectiveSpeedKmh float64 `groups:"detailed"`

	Confidence ETAConfidence `groups:"basic"`

	Interval *ETAInterval `groups:"basic"`
}

// ETAInterval is a display band of ±20% around the estimate
type ETAInterval struct {
	MinMinutes int `groups:"basic"`
	MaxMinutes int `groups:"basic"`
}
