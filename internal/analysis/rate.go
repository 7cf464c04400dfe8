package analysis

import (
	"sort"

	"github.com/Fantasim/truthserum/internal/models"
)

// EstimateRate returns a cauldron's steady-state fill rate in units/minute.
//
// Every consecutive pair with a positive time gap yields a rate; only rates in
// the open interval (MinFillRate, MaxFillRate) are kept, which drops drains
// (negative) and sensor glitches (implausibly fast). The median of the rest is
// returned. With fewer than MinSamples samples, or nothing kept, the fallback
// rate is used.
func EstimateRate(samples []models.LevelSample, p Params) float64 {
	if len(samples) < p.MinSamples {
		return p.FallbackFillRate
	}

	rates := make([]float64, 0, len(samples))
	for i := 1; i < len(samples); i++ {
		minutes := samples[i].Timestamp.Sub(samples[i-1].Timestamp).Minutes()
		if minutes <= 0 {
			continue
		}
		r := (samples[i].Level - samples[i-1].Level) / minutes
		if r > p.MinFillRate && r < p.MaxFillRate {
			rates = append(rates, r)
		}
	}

	if len(rates) == 0 {
		return p.FallbackFillRate
	}
	return median(rates)
}

// EstimateRates runs EstimateRate for every series.
func EstimateRates(series map[string]*Series, p Params) map[string]float64 {
	rates := make(map[string]float64, len(series))
	for id, s := range series {
		rates[id] = EstimateRate(s.Samples, p)
	}
	return rates
}

// median sorts values in place.
func median(values []float64) float64 {
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid]
	}
	return (values[mid-1] + values[mid]) / 2
}
