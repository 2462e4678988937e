package ftdf

import (
	"math"
	"testing"
)

func TestLocationValidate(t *testing.T) {
	tests := []struct {
		name     string
		location Location
		wantErr  bool
	}{
		{
			name:     "valid",
			location: NewLocation(51.5074, -0.1278),
			wantErr:  false,
		},
		{
			name:     "latitude too high",
			location: NewLocation(91, 0),
			wantErr:  true,
		},
		{
			name:     "latitude too low",
			location: NewLocation(-90.5, 0),
			wantErr:  true,
		},
		{
			name:     "longitude too high",
			location: NewLocation(0, 181),
			wantErr:  true,
		},
		{
			name:     "longitude too low",
			location: NewLocation(0, -180.01),
			wantErr:  true,
		},
		{
			name:     "boundary values",
			location: NewLocation(90, -180),
			wantErr:  false,
		},
		{
			name:     "missing coordinates",
			location: Location{Type: "Point"},
			wantErr:  true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.location.Validate()
			if (err != nil) != test.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, test.wantErr)
			}
		})
	}
}

func TestLocationDistance(t *testing.T) {
	tests := []struct {
		name       string
		a          Location
		b          Location
		wantMeters float64
		tolerance  float64
	}{
		{
			name:       "same point",
			a:          NewLocation(51.5074, -0.1278),
			b:          NewLocation(51.5074, -0.1278),
			wantMeters: 0,
			tolerance:  0.1,
		},
		{
			name: "london to birmingham",
			a:    NewLocation(51.5074, -0.1278),
			b:    NewLocation(52.4862, -1.8904),
			// straight line roughly 163km
			wantMeters: 163000,
			tolerance:  2000,
		},
		{
			name:       "one degree of latitude",
			a:          NewLocation(0, 0),
			b:          NewLocation(1, 0),
			wantMeters: 111195,
			tolerance:  200,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := test.a.Distance(&test.b)
			if math.Abs(got-test.wantMeters) > test.tolerance {
				t.Errorf("Distance() = %fm, want %fm (±%fm)", got, test.wantMeters, test.tolerance)
			}

			reverse := test.b.Distance(&test.a)
			if math.Abs(got-reverse) > 0.001 {
				t.Errorf("Distance() not symmetric: %f vs %f", got, reverse)
			}
		})
	}
}
