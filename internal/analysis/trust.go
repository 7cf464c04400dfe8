package analysis

import (
	"math"
	"sort"

	"github.com/Fantasim/truthserum/internal/models"
)

// MaxTrustScore is every courier's starting score.
const MaxTrustScore = 100.0

// ScoreAll folds validation results into one TrustRecord per courier.
// Suspicious and fraudulent tickets cost SuspiciousPenalty and
// FraudulentPenalty respectively; scores never drop below zero. The result is
// ordered worst first (ascending trust score), ties by courier ID.
func ScoreAll(results []models.ValidationResult, p Params) []models.TrustRecord {
	byCourier := make(map[string]*models.TrustRecord)

	for _, r := range results {
		rec, ok := byCourier[r.CourierID]
		if !ok {
			rec = &models.TrustRecord{CourierID: r.CourierID, TrustScore: MaxTrustScore}
			byCourier[r.CourierID] = rec
		}
		Fold(rec, r, p)
	}

	out := make([]models.TrustRecord, 0, len(byCourier))
	for _, rec := range byCourier {
		if rec.TotalTickets > 0 {
			rec.AccuracyPercent = float64(rec.ValidTickets) / float64(rec.TotalTickets) * 100
		}
		out = append(out, *rec)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TrustScore != out[j].TrustScore {
			return out[i].TrustScore < out[j].TrustScore
		}
		return out[i].CourierID < out[j].CourierID
	})

	return out
}

// Fold applies one result to a courier's running record. The score only
// ever decreases and is clamped at zero.
func Fold(rec *models.TrustRecord, r models.ValidationResult, p Params) {
	rec.TotalTickets++

	switch r.Status {
	case models.StatusValid:
		rec.ValidTickets++
	case models.StatusSuspicious:
		rec.SuspiciousTickets++
		rec.TrustScore -= p.SuspiciousPenalty
		rec.TotalFraudAmount += math.Abs(r.Difference)
	case models.StatusFraudulent:
		rec.FraudulentTickets++
		rec.TrustScore -= p.FraudulentPenalty
		rec.TotalFraudAmount += math.Abs(r.Difference)
	}

	if rec.TrustScore < 0 {
		rec.TrustScore = 0
	}
}
