// Package analysis reconciles courier collection tickets against the drain
// behaviour visible in cauldron level histories.
//
// Everything here is a pure function of a models.Dataset and a Params value:
// no I/O, no shared state. Callers that want memoization wrap Run themselves.
package analysis

// Strategy selects how drain episodes are found within a day.
type Strategy string

const (
	// StrategyDaily finds one dominant peak-to-valley drain per day and
	// splits its expected collection evenly across that day's tickets.
	StrategyDaily Strategy = "daily"
	// StrategyLocal finds every local drain episode in a day and matches
	// each ticket to its own drain.
	StrategyLocal Strategy = "local"
)

// Params holds every tunable used by the estimators and classifiers.
// Rates are in units per minute, durations in minutes.
type Params struct {
	Strategy Strategy

	MinSamples       int
	FallbackFillRate float64
	MinFillRate      float64
	MaxFillRate      float64

	DrainSignificance  float64
	LocalDrainMinDrop  float64
	LocalDrainRecovery float64

	VesselCapacity float64

	ValidThresholdPct float64
	FraudThresholdPct float64

	SuspiciousPenalty float64
	FraudulentPenalty float64
}

// DefaultParams returns the canonical (lenient) configuration.
func DefaultParams() Params {
	return Params{
		Strategy:           StrategyDaily,
		MinSamples:         10,
		FallbackFillRate:   0.1,
		MinFillRate:        0.01,
		MaxFillRate:        5.0,
		DrainSignificance:  15,
		LocalDrainMinDrop:  20,
		LocalDrainRecovery: 5,
		VesselCapacity:     100,
		ValidThresholdPct:  10,
		FraudThresholdPct:  25,
		SuspiciousPenalty:  2,
		FraudulentPenalty:  8,
	}
}

// StrictParams returns DefaultParams with the tighter 7%/15% thresholds.
func StrictParams() Params {
	p := DefaultParams()
	p.ValidThresholdPct = 7
	p.FraudThresholdPct = 15
	return p
}
