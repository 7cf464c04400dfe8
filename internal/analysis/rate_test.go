package analysis

import (
	"testing"
)

func TestEstimateRate(t *testing.T) {
	p := DefaultParams()

	steady := make([]point, 0, 20)
	for i := 0; i < 20; i++ {
		steady = append(steady, point{i, 10 + 0.5*float64(i)})
	}

	tests := []struct {
		name string
		pts  []point
		want float64
	}{
		{"steady fill", steady, 0.5},
		{"too few samples", []point{{0, 1}, {1, 2}, {2, 3}}, p.FallbackFillRate},
		{"drains and glitches ignored", scenarioC, 0.2},
		{
			"only draining",
			[]point{{0, 100}, {1, 95}, {2, 90}, {3, 85}, {4, 80}, {5, 75}, {6, 70}, {7, 65}, {8, 60}, {9, 55}},
			p.FallbackFillRate,
		},
		{
			"even count takes mean of middle pair",
			[]point{{0, 0}, {1, 1}, {2, 3}, {3, 3}, {4, 3}, {5, 3}, {6, 3}, {7, 3}, {8, 3}, {9, 3}},
			1.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateRate(samplesOf("c1", tt.pts), p)
			assertApprox(t, "EstimateRate", got, tt.want)
		})
	}
}

func TestEstimateRate_ZeroGapSkipped(t *testing.T) {
	p := DefaultParams()
	pts := []point{{0, 0}, {0, 50}, {1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5}, {6, 6}, {7, 7}, {8, 8}}

	got := EstimateRate(samplesOf("c1", pts), p)
	if got <= p.MinFillRate || got >= p.MaxFillRate {
		t.Errorf("EstimateRate = %v, want within (%v, %v)", got, p.MinFillRate, p.MaxFillRate)
	}
}

func TestEstimateRates(t *testing.T) {
	p := DefaultParams()
	series := map[string]*Series{
		"c1": seriesOf("c1", scenarioC),
		"c2": seriesOf("c2", []point{{0, 1}}),
	}

	rates := EstimateRates(series, p)
	if len(rates) != 2 {
		t.Fatalf("rates = %v, want 2 entries", rates)
	}
	assertApprox(t, "c1 rate", rates["c1"], 0.2)
	assertApprox(t, "c2 rate", rates["c2"], p.FallbackFillRate)
}
