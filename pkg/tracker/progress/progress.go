// Package progress classifies the stops of a vehicle's route against its
// latest location. Classification is pure - callers own any session state
// (the reached set) & pass it back in on the next call.
package progress

import (
	"sort"

	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
	"github.com/fleetpulse/fleetpulse/pkg/util"
	"golang.org/x/exp/slices"
)

// Classify works out the status of every stop relative to the vehicle's
// location. priorReached is the viewing session's reached set - stops in it
// stay reached forever no matter where later fixes land, which stops GPS
// jitter flickering a stop between reached & upcoming.
func Classify(location *ftdf.VehicleLocation, stops []*ftdf.Stop, selectedStopRef string, priorReached []string, options Options) *ftdf.JourneyProgress {
	if len(stops) == 0 {
		return &ftdf.JourneyProgress{
			Stops:            []*ftdf.ClassifiedStop{},
			ReachedStops:     priorReached,
			ProgressFraction: 0,
		}
	}

	ordered := make([]*ftdf.Stop, len(stops))
	copy(ordered, stops)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	// No fix at all - everything is ahead of us
	if location == nil {
		classified := make([]*ftdf.ClassifiedStop, len(ordered))
		for index, stop := range ordered {
			var status ftdf.StopStatus = ftdf.StopStatusUpcoming
			if stop.PrimaryIdentifier == selectedStopRef {
				status = ftdf.StopStatusSelected
			}

			classified[index] = &ftdf.ClassifiedStop{
				Stop:   stop,
				Status: status,
			}
		}

		return &ftdf.JourneyProgress{
			Stops:            classified,
			ReachedStops:     priorReached,
			ProgressFraction: 0,
		}
	}

	distances := make([]float64, len(ordered))
	closestIndex := 0
	for index, stop := range ordered {
		distances[index] = stop.Location.Distance(&location.Location)

		// Strict comparison keeps the lower order stop on an exact tie
		if distances[index] < distances[closestIndex] {
			closestIndex = index
		}
	}

	// A stop is reached once passed: the vehicle is within the reached
	// threshold of it, or its order is before the closest stop - a fast
	// vehicle can cross between two fixes without ever sampling inside the
	// threshold. The closest stop itself is exempt from the distance rule,
	// the vehicle being AT a stop makes it current, not passed.
	reached := make([]bool, len(ordered))
	var newlyReached []string
	for index, stop := range ordered {
		withinThreshold := distances[index] < options.ReachedThresholdMeters && index != closestIndex
		passedByPosition := stop.Order < ordered[closestIndex].Order

		if withinThreshold || passedByPosition || slices.Contains(priorReached, stop.PrimaryIdentifier) {
			reached[index] = true
			newlyReached = append(newlyReached, stop.PrimaryIdentifier)
		}
	}

	reachedSet := util.RemoveDuplicateStrings(append(append([]string{}, priorReached...), newlyReached...), nil)

	currentIndex := -1
	if !reached[closestIndex] && distances[closestIndex] < options.CurrentThresholdMeters() {
		currentIndex = closestIndex
	}

	reachedCount := 0
	classified := make([]*ftdf.ClassifiedStop, len(ordered))
	for index, stop := range ordered {
		var status ftdf.StopStatus
		switch {
		case reached[index]:
			status = ftdf.StopStatusReached
			reachedCount++
		case index == currentIndex:
			status = ftdf.StopStatusCurrent
		default:
			status = ftdf.StopStatusUpcoming
		}

		// Display override only - the selected stop keeps its place in the
		// reached/current bookkeeping above
		if stop.PrimaryIdentifier == selectedStopRef {
			status = ftdf.StopStatusSelected
		}

		classified[index] = &ftdf.ClassifiedStop{
			Stop:           stop,
			Status:         status,
			DistanceMeters: distances[index],
		}
	}

	return &ftdf.JourneyProgress{
		Stops:            classified,
		ReachedStops:     reachedSet,
		ProgressFraction: progressFraction(reachedCount, currentIndex >= 0, len(ordered)),
	}
}

func progressFraction(reachedCount int, hasCurrent bool, totalStops int) float64 {
	if totalStops == 0 {
		return 0
	}

	progress := float64(reachedCount)
	if hasCurrent {
		progress += 0.5
	}

	return progress / float64(totalStops)
}
