package fanout

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
	"github.com/fleetpulse/fleetpulse/pkg/tracker"
)

func testSnapshot(capturedAt time.Time, speedKmh float64) *tracker.VehicleSnapshot {
	return &tracker.VehicleSnapshot{
		Vehicle: &ftdf.Vehicle{
			PrimaryIdentifier: "FLEETPULSE:VEHICLE:BUS1",
			TenantRef:         "FLEETPULSE:TENANT:ACME",
		},
		Location: &ftdf.VehicleLocation{
			VehicleRef: "FLEETPULSE:VEHICLE:BUS1",
			TenantRef:  "FLEETPULSE:TENANT:ACME",
			Location:   ftdf.NewLocation(51.5, -0.12),
			SpeedKmh:   speedKmh,
			CapturedAt: capturedAt,
		},
		HasLocation: true,
		IsOnline:    true,
		Progress:    &ftdf.JourneyProgress{},
		GeneratedAt: capturedAt,
	}
}

func testConnection(buffer int) *Connection {
	return &Connection{
		send:         make(chan []byte, buffer),
		channel:      TenantChannel("FLEETPULSE:TENANT:ACME"),
		lastCaptured: map[string]time.Time{},
		reachedStops: map[string][]string{},
	}
}

func decodeSpeed(t *testing.T, payload []byte) float64 {
	t.Helper()

	var decoded struct {
		Location struct {
			SpeedKmh float64
		}
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("failed to decode delivered payload: %v", err)
	}

	return decoded.Location.SpeedKmh
}

func TestDeliverDropsOutOfOrderSnapshots(t *testing.T) {
	hub := NewHub()
	connection := testConnection(8)
	base := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)

	hub.deliver(connection, testSnapshot(base.Add(5*time.Second), 20))
	if len(connection.send) != 1 {
		t.Fatalf("fresh snapshot not delivered, queue length %d", len(connection.send))
	}

	// A delayed older snapshot arrives after a newer one
	hub.deliver(connection, testSnapshot(base.Add(2*time.Second), 99))
	if len(connection.send) != 1 {
		t.Error("late snapshot must be dropped, not delivered")
	}

	// Exact duplicate
	hub.deliver(connection, testSnapshot(base.Add(5*time.Second), 20))
	if len(connection.send) != 1 {
		t.Error("duplicate snapshot must be dropped")
	}

	hub.deliver(connection, testSnapshot(base.Add(6*time.Second), 25))
	if len(connection.send) != 2 {
		t.Fatal("newer snapshot must be delivered")
	}

	// The subscriber only ever saw the newest values
	if speed := decodeSpeed(t, <-connection.send); speed != 20 {
		t.Errorf("first delivered speed = %v, want 20", speed)
	}
	if speed := decodeSpeed(t, <-connection.send); speed != 25 {
		t.Errorf("second delivered speed = %v, want 25", speed)
	}
}

func TestDeliverDropsOnFullBuffer(t *testing.T) {
	hub := NewHub()
	connection := testConnection(1)
	base := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)

	hub.deliver(connection, testSnapshot(base, 10))
	hub.deliver(connection, testSnapshot(base.Add(time.Second), 11))

	if len(connection.send) != 1 {
		t.Fatalf("queue length = %d, want 1 - a full buffer must drop, never block", len(connection.send))
	}

	// The dropped event is not remembered, the subscriber never saw it
	if !connection.lastCaptured["FLEETPULSE:VEHICLE:BUS1"].Equal(base) {
		t.Errorf("lastCaptured = %v, want the delivered snapshot's time %v",
			connection.lastCaptured["FLEETPULSE:VEHICLE:BUS1"], base)
	}
}

func TestDeliverAppliesFilterExpression(t *testing.T) {
	program, err := CompileFilter("SpeedKmh > 30")
	if err != nil {
		t.Fatalf("CompileFilter() error = %v", err)
	}

	hub := NewHub()
	connection := testConnection(8)
	connection.filter = program
	base := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)

	hub.deliver(connection, testSnapshot(base, 20))
	if len(connection.send) != 0 {
		t.Error("snapshot failing the filter must be skipped")
	}

	hub.deliver(connection, testSnapshot(base.Add(time.Second), 35))
	if len(connection.send) != 1 {
		t.Error("snapshot passing the filter must be delivered")
	}
}

func TestCompileFilterRejectsNonBoolean(t *testing.T) {
	if _, err := CompileFilter("SpeedKmh + 1"); err == nil {
		t.Error("CompileFilter() accepted an expression that is not a boolean")
	}
}

func TestDeliverMergesSessionReachedSet(t *testing.T) {
	hub := NewHub()
	connection := testConnection(8)
	base := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)

	snapshot := testSnapshot(base, 20)
	snapshot.Progress = &ftdf.JourneyProgress{
		Stops: []*ftdf.ClassifiedStop{
			{Stop: &ftdf.Stop{PrimaryIdentifier: "FLEETPULSE:STOP:BUS1:1", Order: 1}, Status: ftdf.StopStatusReached},
			{Stop: &ftdf.Stop{PrimaryIdentifier: "FLEETPULSE:STOP:BUS1:2", Order: 2}, Status: ftdf.StopStatusUpcoming},
		},
		ReachedStops:     []string{"FLEETPULSE:STOP:BUS1:1"},
		ProgressFraction: 0.5,
	}

	// Earlier in this session the connection saw stop 2 reached
	connection.reachedStops["FLEETPULSE:VEHICLE:BUS1"] = []string{"FLEETPULSE:STOP:BUS1:2"}

	hub.deliver(connection, snapshot)

	merged := connection.reachedStops["FLEETPULSE:VEHICLE:BUS1"]
	if len(merged) != 2 {
		t.Fatalf("session reached set = %v, want both stops", merged)
	}

	var decoded struct {
		Progress struct {
			ProgressFraction float64
		}
	}
	if err := json.Unmarshal(<-connection.send, &decoded); err != nil {
		t.Fatalf("failed to decode delivered payload: %v", err)
	}

	if decoded.Progress.ProgressFraction != 1 {
		t.Errorf("delivered fraction = %v, want 1 with both stops reached", decoded.Progress.ProgressFraction)
	}

	// The published snapshot itself must stay untouched
	if snapshot.Progress.Stops[1].Status != ftdf.StopStatusUpcoming {
		t.Error("deliver() mutated the shared published snapshot")
	}
}
