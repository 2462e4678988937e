package tracker

import (
	"time"

	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
)

// VehicleSnapshot is the assembled answer for one vehicle: the latest
// location with its derived online state plus the journey classification &
// ETAs against the vehicle's stop list. Recomputed from scratch on every
// read & every publish, it carries no identity between recomputations.
type VehicleSnapshot struct {
	Vehicle  *ftdf.Vehicle         `groups:"basic"`
	Location *ftdf.VehicleLocation `groups:"basic"`

	HasLocation bool `groups:"basic"`
	IsOnline    bool `groups:"basic"`

	Progress *ftdf.JourneyProgress `groups:"basic"`

	GeneratedAt time.Time `groups:"basic"`
}
