package ftdf

import (
	"time"
)

// HistoryEntry is the durable mirror of a fix, appended once per ingest &
// expired by a TTL index after the retention window.
type HistoryEntry struct {
	VehicleRef string `groups:"internal"`
	TenantRef  string `groups:"internal"`

	Location Location `groups:"basic"`

	SpeedKmh  float64  `groups:"basic"`
	Bearing   *float64 `groups:"basic"`
	AccuracyM *float64 `groups:"detailed"`
	AltitudeM *float64 `groups:"detailed"`

	Source FixSource `groups:"detailed"`

	CapturedAt time.Time `groups:"basic"`
	RecordedAt time.Time `groups:"detailed"`

	DataSource *DataSource `groups:"internal"`
}

func HistoryEntryFromFix(fix *Fix, recordedAt time.Time) *HistoryEntry {
	return &HistoryEntry{
		VehicleRef: fix.VehicleRef,
		TenantRef:  fix.TenantRef,
		Location:   fix.Location,
		SpeedKmh:   fix.SpeedKmh,
		Bearing:    fix.Bearing,
		AccuracyM:  fix.AccuracyM,
		AltitudeM:  fix.AltitudeM,
		Source:     fix.Source,
		CapturedAt: fix.CapturedAt,
		RecordedAt: recordedAt,
	}
}
