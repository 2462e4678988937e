package ftdf

import (
	"time"
)

const VehicleLocationIDFormat = "FLEETPULSE:LOCATION:%s"

// VehicleLocation is the single latest fix held for a vehicle plus its display
// metadata. Exactly one exists per vehicle & every ingest overwrites it.
//
// IsOnline is never stored - it is derived on every read with OnlineStatus so
// a stale flag can never survive a missed update cycle.
type VehicleLocation struct {
	PrimaryIdentifier string `groups:"basic"`

	VehicleRef string `groups:"basic"`
	TenantRef  string `groups:"basic"`

	VehicleName  string `groups:"basic"`
	OperatorName string `groups:"detailed"`

	Location Location `groups:"basic"`

	SpeedKmh  float64  `groups:"basic"`
	Bearing   *float64 `groups:"basic"`
	AccuracyM *float64 `groups:"detailed"`
	AltitudeM *float64 `groups:"detailed"`

	Source FixSource `groups:"detailed"`

	CapturedAt time.Time `groups:"basic"`

	CreationDateTime     time.Time `groups:"detailed"`
	ModificationDateTime time.Time `groups:"detailed"`

	DataSource *DataSource `groups:"internal"`
}

// OnlineStatus reports whether a vehicle with the given capture time counts as
// online at now. Pure function of its inputs so callers & tests can pin now.
func OnlineStatus(now time.Time, capturedAt time.Time, threshold time.Duration) bool {
	return now.Sub(capturedAt) < threshold
}

func (v *VehicleLocation) IsOnline(now time.Time, threshold time.Duration) bool {
	return OnlineStatus(now, v.CapturedAt, threshold)
}
