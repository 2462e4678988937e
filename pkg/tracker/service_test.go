package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
)

func testVehicle() *ftdf.Vehicle {
	return &ftdf.Vehicle{
		PrimaryIdentifier: "FLEETPULSE:VEHICLE:BUS1",
		TenantRef:         "FLEETPULSE:TENANT:ACME",
		Name:              "Bus 1",
		OperatorName:      "Acme Travel",
	}
}

// testService pins the clock to *now so tests can move time themselves
func testService(now *time.Time) *Service {
	service := NewService(NewLocationCache(30 * time.Second))
	service.Now = func() time.Time { return *now }

	return service
}

func TestIngestEchoesIntoCache(t *testing.T) {
	now := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	service := testService(&now)
	vehicle := testVehicle()

	fix := &ftdf.Fix{
		Location: ftdf.NewLocation(51.5074, -0.1278),
		SpeedKmh: 32.5,
	}

	location, err := service.Ingest(context.Background(), vehicle, fix)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	cached, exists := service.Cache.Latest(vehicle.PrimaryIdentifier)
	if !exists {
		t.Fatal("Latest() returned nothing after a successful ingest")
	}

	if cached.Location.Latitude() != 51.5074 || cached.Location.Longitude() != -0.1278 {
		t.Errorf("cached coordinates = (%v, %v), want the ingested fix echoed back",
			cached.Location.Latitude(), cached.Location.Longitude())
	}
	if cached.SpeedKmh != 32.5 {
		t.Errorf("cached speed = %v, want 32.5", cached.SpeedKmh)
	}
	if !cached.CapturedAt.Equal(now) {
		t.Errorf("cached CapturedAt = %v, want the server receive time %v", cached.CapturedAt, now)
	}
	if location.VehicleName != "Bus 1" || location.TenantRef != "FLEETPULSE:TENANT:ACME" {
		t.Errorf("returned location missing vehicle metadata: %+v", location)
	}
}

func TestIngestServerStampsCapturedAt(t *testing.T) {
	now := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	service := testService(&now)

	fix := &ftdf.Fix{
		Location: ftdf.NewLocation(51.5, -0.12),
		// A device clock far in the future must be ignored
		CapturedAt: now.Add(48 * time.Hour),
	}

	location, err := service.Ingest(context.Background(), testVehicle(), fix)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if !location.CapturedAt.Equal(now) {
		t.Errorf("CapturedAt = %v, want the server time %v", location.CapturedAt, now)
	}
}

func TestIngestRejectionTouchesNothing(t *testing.T) {
	now := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	service := testService(&now)
	vehicle := testVehicle()

	tests := []struct {
		name string
		fix  *ftdf.Fix
	}{
		{"latitude out of range", &ftdf.Fix{Location: ftdf.NewLocation(91, 0)}},
		{"longitude out of range", &ftdf.Fix{Location: ftdf.NewLocation(0, -181)}},
		{"negative speed", &ftdf.Fix{Location: ftdf.NewLocation(51.5, -0.12), SpeedKmh: -4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := service.Ingest(context.Background(), vehicle, tt.fix); err == nil {
				t.Fatal("Ingest() accepted an invalid fix")
			}

			if _, exists := service.Cache.Latest(vehicle.PrimaryIdentifier); exists {
				t.Error("a rejected fix must not write to the cache")
			}
		})
	}
}

func TestOnlineThresholdAndRevival(t *testing.T) {
	now := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	service := testService(&now)
	vehicle := testVehicle()

	if _, err := service.Ingest(context.Background(), vehicle, &ftdf.Fix{Location: ftdf.NewLocation(51.5, -0.12)}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	threshold := service.Cache.OfflineThreshold()
	cached, _ := service.Cache.Latest(vehicle.PrimaryIdentifier)

	if !cached.IsOnline(now.Add(29*time.Second), threshold) {
		t.Error("vehicle reported offline before the threshold elapsed")
	}
	if cached.IsOnline(now.Add(31*time.Second), threshold) {
		t.Error("vehicle reported online after the threshold elapsed")
	}

	// One valid fix revives the vehicle
	now = now.Add(5 * time.Minute)
	if _, err := service.Ingest(context.Background(), vehicle, &ftdf.Fix{Location: ftdf.NewLocation(51.51, -0.12)}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	cached, _ = service.Cache.Latest(vehicle.PrimaryIdentifier)
	if !cached.IsOnline(now, threshold) {
		t.Error("vehicle stayed offline after a fresh fix")
	}
}

func TestStopTrackingFlipsOfflineImmediately(t *testing.T) {
	now := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	service := testService(&now)
	vehicle := testVehicle()

	if _, err := service.Ingest(context.Background(), vehicle, &ftdf.Fix{Location: ftdf.NewLocation(51.5, -0.12)}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if !service.StopTracking(vehicle) {
		t.Fatal("StopTracking() reported no cached location")
	}

	// No threshold wait - the very next read must say offline
	cached, _ := service.Cache.Latest(vehicle.PrimaryIdentifier)
	if cached.IsOnline(now, service.Cache.OfflineThreshold()) {
		t.Error("vehicle still online immediately after StopTracking()")
	}

	// And the next fix brings it straight back
	if _, err := service.Ingest(context.Background(), vehicle, &ftdf.Fix{Location: ftdf.NewLocation(51.5, -0.12)}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	cached, _ = service.Cache.Latest(vehicle.PrimaryIdentifier)
	if !cached.IsOnline(now, service.Cache.OfflineThreshold()) {
		t.Error("vehicle stayed offline after tracking resumed")
	}
}

func TestStopTrackingUnknownVehicle(t *testing.T) {
	now := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	service := testService(&now)

	if service.StopTracking(testVehicle()) {
		t.Error("StopTracking() reported success for a vehicle with no cached location")
	}
}
