package tracker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetpulse/fleetpulse/pkg/elastic_client"
	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
)

type ingestEvent struct {
	Timestamp time.Time `json:"@timestamp"`

	VehicleRef string `json:"vehicle_ref"`
	TenantRef  string `json:"tenant_ref"`

	SpeedKmh float64 `json:"speed_kmh"`
	Source   string  `json:"source"`

	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// recordIngestEvent indexes one accepted fix into the weekly telemetry index.
// No-op when Elasticsearch was never connected.
func (service *Service) recordIngestEvent(location *ftdf.VehicleLocation) {
	event := ingestEvent{
		Timestamp: location.CapturedAt,

		VehicleRef: location.VehicleRef,
		TenantRef:  location.TenantRef,

		SpeedKmh: location.SpeedKmh,
		Source:   string(location.Source),

		Longitude: location.Location.Longitude(),
		Latitude:  location.Location.Latitude(),
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return
	}

	yearNumber, weekNumber := location.CapturedAt.ISOWeek()
	indexName := fmt.Sprintf("fleetpulse-ingest-events-%d-%d", yearNumber, weekNumber)

	elastic_client.IndexRequest(indexName, bytes.NewReader(eventBytes))
}
