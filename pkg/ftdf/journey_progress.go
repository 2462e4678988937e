package ftdf

type StopStatus string

const (
	StopStatusReached  StopStatus = "Reached"
	StopStatusCurrent             = "Current"
	StopStatusUpcoming            = "Upcoming"
	StopStatusSelected            = "Selected"
)

// ClassifiedStop is a stop annotated with its status relative to the vehicle's
// latest fix. Ephemeral - recomputed from scratch on every read.
type ClassifiedStop struct {
	Stop *Stop `groups:"basic"`

	Status StopStatus `groups:"basic"`

	DistanceMeters float64 `groups:"basic"`

	ETA *ETAEstimate `groups:"basic"`
}

type JourneyProgress struct {
	Stops []*ClassifiedStop `groups:"basic"`

	// ReachedStops only ever grows within a viewing session
	ReachedStops []string `groups:"basic"`

	ProgressFraction float64 `groups:"basic"`
}
