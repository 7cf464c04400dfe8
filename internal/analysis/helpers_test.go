package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/Fantasim/truthserum/internal/models"
)

const testDay = "2025-01-01"

var dayStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// point is a (minutes after midnight, level) pair.
type point struct {
	minute int
	level  float64
}

// scenarioC is a day with one dominant drain of 40 units over 30 minutes
// (80 at minute 10 down to 40 at minute 40).
var scenarioC = []point{
	{0, 60}, {5, 65}, {10, 80}, {15, 75}, {20, 65}, {25, 55},
	{30, 50}, {35, 45}, {40, 40}, {45, 41}, {50, 42}, {55, 43},
}

// twoDrains has two separate drains: 60->28 (minutes 10-20) and 60->20 (minutes 40-50).
var twoDrains = []point{
	{0, 50}, {5, 55}, {10, 60}, {15, 30}, {20, 28}, {25, 35},
	{30, 40}, {35, 45}, {40, 60}, {45, 35}, {50, 20}, {55, 25},
}

func samplesOf(id string, pts []point) []models.LevelSample {
	out := make([]models.LevelSample, 0, len(pts))
	for _, p := range pts {
		out = append(out, models.LevelSample{
			CauldronID: id,
			Timestamp:  dayStart.Add(time.Duration(p.minute) * time.Minute),
			Level:      p.level,
		})
	}
	return out
}

func seriesOf(id string, pts []point) *Series {
	return NewSeries(id, samplesOf(id, pts))
}

func snapshotsOf(levels map[string][]point) []models.LevelSnapshot {
	byMinute := make(map[int]map[string]float64)
	var minutes []int
	for id, pts := range levels {
		for _, p := range pts {
			if _, ok := byMinute[p.minute]; !ok {
				byMinute[p.minute] = make(map[string]float64)
				minutes = append(minutes, p.minute)
			}
			byMinute[p.minute][id] = p.level
		}
	}

	out := make([]models.LevelSnapshot, 0, len(minutes))
	for _, m := range minutes {
		ts := dayStart.Add(time.Duration(m) * time.Minute)
		out = append(out, models.LevelSnapshot{
			Timestamp: ts.Format("2006-01-02T15:04:05"),
			Levels:    byMinute[m],
		})
	}
	return out
}

func ticket(id, cauldron, courier string, amount float64) models.Ticket {
	return models.Ticket{
		TicketID:       id,
		CauldronID:     cauldron,
		CourierID:      courier,
		Date:           testDay,
		ReportedAmount: amount,
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func assertApprox(t *testing.T, what string, got, want float64) {
	t.Helper()
	if !approx(got, want) {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}
