package analysis

import "github.com/Fantasim/truthserum/internal/models"

// ExpectedCollection is the amount that should have left the cauldron during
// the drain: the visible drop plus the inflow that kept arriving meanwhile.
// A nil drain expects nothing.
func ExpectedCollection(drain *models.DrainEvent, rate float64) float64 {
	if drain == nil {
		return 0
	}
	return drain.DrainAmount + rate*drain.DurationMinutes
}
