package progress

import (
	"math"
	"testing"
	"time"

	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
	"golang.org/x/exp/slices"
)

// offsetNorth shifts a location north by roughly the given number of meters
func offsetNorth(base ftdf.Location, meters float64) ftdf.Location {
	return ftdf.NewLocation(base.Latitude()+meters/111195.0, base.Longitude())
}

func testRoute(base ftdf.Location, stopDistances []float64) []*ftdf.Stop {
	stops := make([]*ftdf.Stop, len(stopDistances))
	for index, distance := range stopDistances {
		location := offsetNorth(base, distance)
		stops[index] = &ftdf.Stop{
			PrimaryIdentifier: ftdf.StopIdentifier("FLEETPULSE:VEHICLE:BUS-1", index+1),
			VehicleRef:        "FLEETPULSE:VEHICLE:BUS-1",
			Name:              "Stop",
			Location:          &location,
			Order:             index + 1,
		}
	}

	return stops
}

func vehicleAt(base ftdf.Location, meters float64) *ftdf.VehicleLocation {
	return &ftdf.VehicleLocation{
		VehicleRef: "FLEETPULSE:VEHICLE:BUS-1",
		TenantRef:  "FLEETPULSE:TENANT:ACME",
		Location:   offsetNorth(base, meters),
		CapturedAt: time.Now(),
	}
}

func statusOf(result *ftdf.JourneyProgress, order int) ftdf.StopStatus {
	for _, classified := range result.Stops {
		if classified.Stop.Order == order {
			return classified.Status
		}
	}

	return ""
}

func TestClassifyEmptyStopList(t *testing.T) {
	base := ftdf.NewLocation(51.5, -0.12)

	result := Classify(vehicleAt(base, 0), []*ftdf.Stop{}, "", nil, defaultOptions)

	if len(result.Stops) != 0 {
		t.Errorf("expected no classified stops, got %d", len(result.Stops))
	}
	if result.ProgressFraction != 0 {
		t.Errorf("expected zero progress, got %f", result.ProgressFraction)
	}
}

func TestClassifyNoLocation(t *testing.T) {
	base := ftdf.NewLocation(51.5, -0.12)
	stops := testRoute(base, []float64{0, 500, 1000})

	result := Classify(nil, stops, stops[2].PrimaryIdentifier, []string{"previously-reached"}, defaultOptions)

	if statusOf(result, 1) != ftdf.StopStatusUpcoming || statusOf(result, 2) != ftdf.StopStatusUpcoming {
		t.Error("expected non selected stops to be upcoming with no location")
	}
	if statusOf(result, 3) != ftdf.StopStatusSelected {
		t.Error("expected selected stop to keep its selected status")
	}
	if result.ProgressFraction != 0 {
		t.Errorf("expected zero progress, got %f", result.ProgressFraction)
	}
	if !slices.Contains(result.ReachedStops, "previously-reached") {
		t.Error("expected the prior reached set to be carried through")
	}
}

func TestClassifyNearestBetweenThresholds(t *testing.T) {
	base := ftdf.NewLocation(51.5, -0.12)
	stops := testRoute(base, []float64{0, 500, 1000, 1500})

	// 150m short of stop 3 - between the reached (100m) & current (300m) thresholds
	result := Classify(vehicleAt(base, 850), stops, "", nil, defaultOptions)

	if statusOf(result, 1) != ftdf.StopStatusReached {
		t.Errorf("stop 1 = %s, want reached", statusOf(result, 1))
	}
	if statusOf(result, 2) != ftdf.StopStatusReached {
		t.Errorf("stop 2 = %s, want reached", statusOf(result, 2))
	}
	if statusOf(result, 3) != ftdf.StopStatusCurrent {
		t.Errorf("stop 3 = %s, want current", statusOf(result, 3))
	}
	if statusOf(result, 4) != ftdf.StopStatusUpcoming {
		t.Errorf("stop 4 = %s, want upcoming", statusOf(result, 4))
	}

	want := (2 + 0.5) / 4.0
	if math.Abs(result.ProgressFraction-want) > 0.001 {
		t.Errorf("progress = %f, want %f", result.ProgressFraction, want)
	}
}

func TestClassifyIdleAtStop(t *testing.T) {
	base := ftdf.NewLocation(51.5, -0.12)
	stops := testRoute(base, []float64{0, 400, 800})

	// Idle 90m short of stop 2 - inside the reached threshold, but being AT
	// the stop reports it current until the vehicle moves past
	result := Classify(vehicleAt(base, 310), stops, "", nil, defaultOptions)

	if statusOf(result, 1) != ftdf.StopStatusReached {
		t.Errorf("stop 1 = %s, want reached", statusOf(result, 1))
	}
	if statusOf(result, 2) != ftdf.StopStatusCurrent {
		t.Errorf("stop 2 = %s, want current", statusOf(result, 2))
	}
	if statusOf(result, 3) != ftdf.StopStatusUpcoming {
		t.Errorf("stop 3 = %s, want upcoming", statusOf(result, 3))
	}

	if math.Abs(result.ProgressFraction-0.5) > 0.001 {
		t.Errorf("progress = %f, want 0.5", result.ProgressFraction)
	}
}

func TestClassifyReachedSetMonotonic(t *testing.T) {
	base := ftdf.NewLocation(51.5, -0.12)
	stops := testRoute(base, []float64{0, 400, 800})

	// Fix sequence: at stop 2, past it towards stop 3, then jittered back
	positions := []float64{400, 700, 420}

	var reached []string
	var results []*ftdf.JourneyProgress
	for _, position := range positions {
		result := Classify(vehicleAt(base, position), stops, "", reached, defaultOptions)
		reached = result.ReachedStops
		results = append(results, result)
	}

	if !slices.Contains(results[1].ReachedStops, stops[1].PrimaryIdentifier) {
		t.Fatal("expected stop 2 to be reached after the vehicle passed it")
	}

	// The jittered-back fix must not remove stop 2 from the reached set
	if !slices.Contains(results[2].ReachedStops, stops[1].PrimaryIdentifier) {
		t.Error("reached set lost a stop after a jittered fix")
	}
	if statusOf(results[2], 2) != ftdf.StopStatusReached {
		t.Errorf("stop 2 = %s after jitter, want reached", statusOf(results[2], 2))
	}

	for index, result := range results[1:] {
		for _, stopRef := range results[index].ReachedStops {
			if !slices.Contains(result.ReachedStops, stopRef) {
				t.Errorf("reached set shrank between fixes: lost %s", stopRef)
			}
		}
	}
}

func TestClassifyEquidistantTieBreak(t *testing.T) {
	// Equator keeps a pure north/south offset exactly symmetric
	base := ftdf.NewLocation(0, 10)

	north := offsetNorth(base, 200)
	south := offsetNorth(base, -200)

	stops := []*ftdf.Stop{
		{PrimaryIdentifier: "stop-a", Order: 1, Location: &north},
		{PrimaryIdentifier: "stop-b", Order: 2, Location: &south},
	}

	result := Classify(vehicleAt(base, 0), stops, "", nil, defaultOptions)

	// The lower order stop wins the closest slot on an exact tie
	if statusOf(result, 1) != ftdf.StopStatusCurrent {
		t.Errorf("stop a = %s, want current", statusOf(result, 1))
	}
	if statusOf(result, 2) != ftdf.StopStatusUpcoming {
		t.Errorf("stop b = %s, want upcoming", statusOf(result, 2))
	}
}

func TestClassifySelectedDoesNotChangeBookkeeping(t *testing.T) {
	base := ftdf.NewLocation(51.5, -0.12)
	stops := testRoute(base, []float64{0, 500, 1000, 1500})

	plain := Classify(vehicleAt(base, 850), stops, "", nil, defaultOptions)
	selected := Classify(vehicleAt(base, 850), stops, stops[1].PrimaryIdentifier, nil, defaultOptions)

	if statusOf(selected, 2) != ftdf.StopStatusSelected {
		t.Errorf("stop 2 = %s, want selected", statusOf(selected, 2))
	}

	if selected.ProgressFraction != plain.ProgressFraction {
		t.Errorf("selecting a stop changed progress from %f to %f", plain.ProgressFraction, selected.ProgressFraction)
	}
	if !slices.Contains(selected.ReachedStops, stops[1].PrimaryIdentifier) {
		t.Error("selected stop dropped out of the reached set")
	}
}

func TestReapply(t *testing.T) {
	base := ftdf.NewLocation(51.5, -0.12)
	stops := testRoute(base, []float64{0, 400, 800})

	// Stateless classification as fan-out would publish it
	published := Classify(vehicleAt(base, 420), stops, "", nil, defaultOptions)

	if statusOf(published, 2) != ftdf.StopStatusCurrent {
		t.Fatalf("stop 2 = %s, want current before reapply", statusOf(published, 2))
	}

	// A subscriber session that already saw stop 2 reached keeps it reached
	personal := Reapply(published, stops[2].PrimaryIdentifier, []string{stops[1].PrimaryIdentifier})

	if statusOf(personal, 2) != ftdf.StopStatusReached {
		t.Errorf("stop 2 = %s, want reached for the session", statusOf(personal, 2))
	}
	if statusOf(personal, 3) != ftdf.StopStatusSelected {
		t.Errorf("stop 3 = %s, want selected", statusOf(personal, 3))
	}

	want := 2.0 / 3.0
	if math.Abs(personal.ProgressFraction-want) > 0.001 {
		t.Errorf("progress = %f, want %f", personal.ProgressFraction, want)
	}

	// The published result itself must stay untouched
	if statusOf(published, 2) != ftdf.StopStatusCurrent {
		t.Error("reapply mutated the shared published result")
	}
}
