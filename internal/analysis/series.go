package analysis

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Fantasim/truthserum/internal/models"
)

// DayLayout is the calendar-day key format. Days are UTC.
const DayLayout = "2006-01-02"

// naiveLayouts are accepted for timestamps without a zone; they are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// Series is one cauldron's level history, ordered by time and indexed by day.
type Series struct {
	CauldronID string
	Samples    []models.LevelSample
	days       map[string][]models.LevelSample
}

// Day returns the samples recorded on the given day, oldest first.
func (s *Series) Day(day string) []models.LevelSample {
	if s == nil {
		return nil
	}
	return s.days[day]
}

// Days returns the day keys present in the series in ascending order.
func (s *Series) Days() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.days))
	for d := range s.days {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// NewSeries builds a series from samples of a single cauldron.
func NewSeries(cauldronID string, samples []models.LevelSample) *Series {
	sorted := make([]models.LevelSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	days := make(map[string][]models.LevelSample)
	for _, smp := range sorted {
		key := smp.Timestamp.UTC().Format(DayLayout)
		days[key] = append(days[key], smp)
	}

	return &Series{CauldronID: cauldronID, Samples: sorted, days: days}
}

// BuildSeries groups upstream snapshots into one Series per cauldron.
// Snapshots with an unparseable timestamp are skipped; the count is returned.
// A cauldron missing from a snapshot simply has no sample at that time.
func BuildSeries(snapshots []models.LevelSnapshot) (map[string]*Series, int) {
	perCauldron := make(map[string][]models.LevelSample)
	skipped := 0

	for i, snap := range snapshots {
		ts, err := ParseTimestamp(snap.Timestamp)
		if err != nil {
			skipped++
			slog.Warn("skipping level snapshot with bad timestamp",
				"index", i,
				"timestamp", snap.Timestamp,
				"error", err,
			)
			continue
		}
		for id, level := range snap.Levels {
			if math.IsNaN(level) || math.IsInf(level, 0) {
				continue
			}
			perCauldron[id] = append(perCauldron[id], models.LevelSample{
				CauldronID: id,
				Timestamp:  ts,
				Level:      level,
			})
		}
	}

	series := make(map[string]*Series, len(perCauldron))
	for id, samples := range perCauldron {
		series[id] = NewSeries(id, samples)
	}

	return series, skipped
}

// ParseTimestamp parses an ISO-8601 timestamp. A trailing Z or numeric offset
// is honoured; naive timestamps are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// ParseDay normalises a ticket date (plain date or full timestamp) to a day key.
func ParseDay(s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DayLayout, s); err == nil {
		return t.Format(DayLayout), nil
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return "", fmt.Errorf("unrecognised date %q", s)
	}
	return t.Format(DayLayout), nil
}
