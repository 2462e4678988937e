package progress

import (
	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
	"github.com/fleetpulse/fleetpulse/pkg/util"
	"golang.org/x/exp/slices"
)

// Reapply personalises an already classified progress for one subscriber's
// session, merging their reached set & selected stop without remeasuring any
// distances. Fan-out publishes progress with no session state attached & each
// subscriber connection runs this over it.
func Reapply(base *ftdf.JourneyProgress, selectedStopRef string, priorReached []string) *ftdf.JourneyProgress {
	if base == nil {
		return nil
	}

	reachedSet := util.RemoveDuplicateStrings(append(append([]string{}, priorReached...), base.ReachedStops...), nil)

	reachedCount := 0
	hasCurrent := false

	stops := make([]*ftdf.ClassifiedStop, len(base.Stops))
	for index, classifiedStop := range base.Stops {
		status := classifiedStop.Status

		// A stop this session has seen reached stays reached, even if this
		// snapshot put the vehicle farther away again
		if status != ftdf.StopStatusReached && slices.Contains(reachedSet, classifiedStop.Stop.PrimaryIdentifier) {
			status = ftdf.StopStatusReached
		}

		switch status {
		case ftdf.StopStatusReached:
			reachedCount++
		case ftdf.StopStatusCurrent:
			hasCurrent = true
		}

		if classifiedStop.Stop.PrimaryIdentifier == selectedStopRef {
			status = ftdf.StopStatusSelected
		}

		copied := *classifiedStop
		copied.Status = status
		stops[index] = &copied
	}

	return &ftdf.JourneyProgress{
		Stops:            stops,
		ReachedStops:     reachedSet,
		ProgressFraction: progressFraction(reachedCount, hasCurrent, len(stops)),
	}
}
