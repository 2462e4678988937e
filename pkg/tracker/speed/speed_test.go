package speed

import "testing"

func TestTrimmedMean(t *testing.T) {
	tests := []struct {
		name           string
		samples        []float64
		minimumSamples int
		trimFraction   float64
		fallback       float64
		want           float64
		wantHasHistory bool
	}{
		{
			name:           "below minimum returns fallback unchanged",
			samples:        []float64{22, 31, 28, 35, 19},
			minimumSamples: 10,
			trimFraction:   0.1,
			fallback:       25,
			want:           25,
			wantHasHistory: false,
		},
		{
			name:           "no samples at all",
			samples:        nil,
			minimumSamples: 10,
			trimFraction:   0.1,
			fallback:       25,
			want:           25,
			wantHasHistory: false,
		},
		{
			name:           "outliers discarded from both ends",
			samples:        []float64{100, 30, 30, 30, 30, 5, 30, 30, 30, 30},
			minimumSamples: 10,
			trimFraction:   0.1,
			fallback:       25,
			want:           30,
			wantHasHistory: true,
		},
		{
			name:           "mean of the trimmed remainder",
			samples:        []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			minimumSamples: 10,
			trimFraction:   0.1,
			fallback:       25,
			want:           55,
			wantHasHistory: true,
		},
		{
			name:           "zero trim keeps every sample",
			samples:        []float64{24, 26, 25, 25},
			minimumSamples: 4,
			trimFraction:   0,
			fallback:       25,
			want:           25,
			wantHasHistory: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hasHistory := TrimmedMean(tt.samples, tt.minimumSamples, tt.trimFraction, tt.fallback)

			if got != tt.want {
				t.Errorf("TrimmedMean() = %v, want %v", got, tt.want)
			}
			if hasHistory != tt.wantHasHistory {
				t.Errorf("TrimmedMean() hasHistory = %v, want %v", hasHistory, tt.wantHasHistory)
			}
		})
	}
}

func TestTrimmedMeanDoesNotReorderInput(t *testing.T) {
	samples := []float64{90, 10, 50, 30, 70, 20, 80, 40, 60, 100}

	TrimmedMean(samples, 10, 0.1, 25)

	if samples[0] != 90 || samples[9] != 100 {
		t.Errorf("TrimmedMean() reordered the caller's slice: %v", samples)
	}
}
