package fanout

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/fleetpulse/fleetpulse/pkg/tracker"
	"github.com/rs/zerolog/log"
)

// FilterEnv is what a subscription filter expression can see, eg.
// `SpeedKmh > 30 && IsOnline` or `Source == "APP"`.
type FilterEnv struct {
	VehicleRef string
	TenantRef  string

	SpeedKmh  float64
	Bearing   float64
	AccuracyM float64

	IsOnline bool
	Source   string
}

func CompileFilter(expression string) (*vm.Program, error) {
	return expr.Compile(expression, expr.Env(FilterEnv{}), expr.AsBool())
}

// runFilter reports whether the snapshot passes the subscription's filter. A
// nil program matches everything, an evaluation failure matches nothing.
func runFilter(program *vm.Program, snapshot *tracker.VehicleSnapshot) bool {
	if program == nil {
		return true
	}

	env := FilterEnv{
		VehicleRef: snapshot.Vehicle.PrimaryIdentifier,
		TenantRef:  snapshot.Vehicle.TenantRef,

		IsOnline: snapshot.IsOnline,
	}

	if snapshot.Location != nil {
		env.SpeedKmh = snapshot.Location.SpeedKmh
		env.Source = string(snapshot.Location.Source)

		if snapshot.Location.Bearing != nil {
			env.Bearing = *snapshot.Location.Bearing
		}
		if snapshot.Location.AccuracyM != nil {
			env.AccuracyM = *snapshot.Location.AccuracyM
		}
	}

	result, err := expr.Run(program, env)
	if err != nil {
		log.Debug().Err(err).Msg("Subscription filter failed to evaluate")
		return false
	}

	matched, ok := result.(bool)
	return ok && matched
}
