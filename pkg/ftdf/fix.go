package ftdf

import (
	"errors"
	"time"
)

type FixSource string

const (
	FixSourceDevice FixSource = "DEVICE"
	FixSourceApp              = "APP"
)

// Fix is a single normalised GPS reading for a vehicle. CapturedAt is always
// assigned at ingestion - device supplied timestamps are never trusted.
type Fix struct {
	VehicleRef string `groups:"internal"`
	TenantRef  string `groups:"internal"`

	Location Location `groups:"basic"`

	SpeedKmh  float64  `groups:"basic"`
	Bearing   *float64 `groups:"basic"`
	AccuracyM *float64 `groups:"detailed"`
	AltitudeM *float64 `groups:"detailed"`

	Source FixSource `groups:"detailed"`

	CapturedAt time.Time `groups:"basic"`
}

func (f *Fix) Validate() error {
	if f.VehicleRef == "" {
		return errors.New("fix requires a vehicle reference")
	}
	if f.TenantRef == "" {
		return errors.New("fix requires a tenant reference")
	}
	if err := f.Location.Validate(); err != nil {
		return err
	}
	if f.SpeedKmh < 0 {
		return errors.New("speed cannot be negative")
	}
	if f.Bearing != nil && (*f.Bearing < 0 || *f.Bearing >= 360) {
		return errors.New("bearing must be between 0 & 360")
	}

	return nil
}
