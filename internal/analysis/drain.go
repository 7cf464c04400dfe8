package analysis

import (
	"log/slog"

	"github.com/Fantasim/truthserum/internal/models"
)

// DrainDetector finds drain episodes in a cauldron's daily level history.
type DrainDetector struct {
	params Params
}

// NewDrainDetector creates a detector using the thresholds in p.
func NewDrainDetector(p Params) *DrainDetector {
	return &DrainDetector{params: p}
}

// FindDrains returns the drains of the day according to the configured
// strategy, oldest first. The daily strategy yields at most one.
func (d *DrainDetector) FindDrains(s *Series, day string) []models.DrainEvent {
	if d.params.Strategy == StrategyLocal {
		return d.FindLocalDrains(s, day)
	}
	if ev := d.FindDailyDrain(s, day); ev != nil {
		return []models.DrainEvent{*ev}
	}
	return nil
}

// FindDailyDrain returns the day's dominant drain: the global maximum followed
// later by the global minimum. Returns nil when the day has too few samples,
// the minimum does not come after the maximum, or the drop is below the
// significance threshold.
func (d *DrainDetector) FindDailyDrain(s *Series, day string) *models.DrainEvent {
	samples := s.Day(day)
	if len(samples) < d.params.MinSamples {
		slog.Debug("insufficient samples for drain detection",
			"day", day,
			"samples", len(samples),
			"minSamples", d.params.MinSamples,
		)
		return nil
	}

	peakIdx, valleyIdx := 0, 0
	for i, smp := range samples {
		if smp.Level > samples[peakIdx].Level {
			peakIdx = i
		}
		if smp.Level < samples[valleyIdx].Level {
			valleyIdx = i
		}
	}

	if valleyIdx <= peakIdx {
		return nil
	}

	ev := newDrainEvent(s.CauldronID, day, samples[peakIdx], samples[valleyIdx])
	if ev.DrainAmount < d.params.DrainSignificance || !ev.EndTime.After(ev.StartTime) {
		return nil
	}
	return &ev
}

// FindLocalDrains scans the day for every drain episode. An episode starts at
// the sample before a fall, follows the running minimum, and closes once the
// level recovers more than LocalDrainRecovery above that minimum. Episodes
// dropping more than LocalDrainMinDrop are kept.
func (d *DrainDetector) FindLocalDrains(s *Series, day string) []models.DrainEvent {
	samples := s.Day(day)
	if len(samples) < d.params.MinSamples {
		return nil
	}

	var drains []models.DrainEvent
	i := 1
	for i < len(samples) {
		if samples[i].Level >= samples[i-1].Level {
			i++
			continue
		}

		peakIdx, minIdx := i-1, i
		for j := i + 1; j < len(samples); j++ {
			if samples[j].Level < samples[minIdx].Level {
				minIdx = j
				continue
			}
			if samples[j].Level-samples[minIdx].Level > d.params.LocalDrainRecovery {
				break
			}
		}

		ev := newDrainEvent(s.CauldronID, day, samples[peakIdx], samples[minIdx])
		if ev.DrainAmount > d.params.LocalDrainMinDrop && ev.EndTime.After(ev.StartTime) {
			drains = append(drains, ev)
		}

		i = minIdx + 1
	}

	slog.Debug("local drain scan complete",
		"cauldronID", s.CauldronID,
		"day", day,
		"drains", len(drains),
	)

	return drains
}

func newDrainEvent(cauldronID, day string, peak, valley models.LevelSample) models.DrainEvent {
	return models.DrainEvent{
		CauldronID:      cauldronID,
		Day:             day,
		StartTime:       peak.Timestamp,
		EndTime:         valley.Timestamp,
		StartLevel:      peak.Level,
		EndLevel:        valley.Level,
		DrainAmount:     peak.Level - valley.Level,
		DurationMinutes: valley.Timestamp.Sub(peak.Timestamp).Minutes(),
	}
}
