package analysis

import (
	"testing"

	"github.com/Fantasim/truthserum/internal/models"
)

func result(courier string, status models.Status, diff float64) models.ValidationResult {
	return models.ValidationResult{CourierID: courier, Status: status, Difference: diff}
}

func TestScoreAll_Penalties(t *testing.T) {
	results := []models.ValidationResult{
		result("w1", models.StatusValid, 0.5),
		result("w1", models.StatusSuspicious, -4),
		result("w1", models.StatusFraudulent, 12),
		result("w2", models.StatusValid, 0),
	}

	records := ScoreAll(results, DefaultParams())
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	w1 := records[0]
	if w1.CourierID != "w1" {
		t.Fatalf("first record = %s, want w1 (lowest score)", w1.CourierID)
	}
	assertApprox(t, "w1 TrustScore", w1.TrustScore, 90)
	assertApprox(t, "w1 TotalFraudAmount", w1.TotalFraudAmount, 16)
	assertApprox(t, "w1 AccuracyPercent", w1.AccuracyPercent, 100.0/3)
	if w1.TotalTickets != 3 || w1.ValidTickets != 1 || w1.SuspiciousTickets != 1 || w1.FraudulentTickets != 1 {
		t.Errorf("w1 counts = %+v", w1)
	}

	w2 := records[1]
	assertApprox(t, "w2 TrustScore", w2.TrustScore, MaxTrustScore)
	assertApprox(t, "w2 AccuracyPercent", w2.AccuracyPercent, 100)
}

func TestScoreAll_ClampedAtZero(t *testing.T) {
	var results []models.ValidationResult
	for i := 0; i < 20; i++ {
		results = append(results, result("w1", models.StatusFraudulent, 10))
	}

	records := ScoreAll(results, DefaultParams())
	assertApprox(t, "TrustScore", records[0].TrustScore, 0)
	assertApprox(t, "TotalFraudAmount", records[0].TotalFraudAmount, 200)
}

func TestScoreAll_OrderingAndBounds(t *testing.T) {
	statuses := []models.Status{models.StatusValid, models.StatusSuspicious, models.StatusFraudulent}

	var results []models.ValidationResult
	for i := 0; i < 30; i++ {
		courier := []string{"wc", "wa", "wb"}[i%3]
		results = append(results, result(courier, statuses[(i*7)%3], float64(i)))
	}

	records := ScoreAll(results, DefaultParams())
	for i, rec := range records {
		if rec.TrustScore < 0 || rec.TrustScore > MaxTrustScore {
			t.Errorf("%s TrustScore = %v out of bounds", rec.CourierID, rec.TrustScore)
		}
		if i == 0 {
			continue
		}
		prev := records[i-1]
		if prev.TrustScore > rec.TrustScore {
			t.Errorf("records not ascending at %d: %v > %v", i, prev.TrustScore, rec.TrustScore)
		}
		if prev.TrustScore == rec.TrustScore && prev.CourierID > rec.CourierID {
			t.Errorf("tie not ordered by courier: %s before %s", prev.CourierID, rec.CourierID)
		}
	}
}

func TestFold_ScoreNeverIncreases(t *testing.T) {
	p := DefaultParams()
	rec := &models.TrustRecord{CourierID: "w1", TrustScore: MaxTrustScore}

	prev := rec.TrustScore
	for i, st := range []models.Status{
		models.StatusSuspicious, models.StatusValid, models.StatusFraudulent, models.StatusValid,
	} {
		Fold(rec, result("w1", st, 1), p)
		if rec.TrustScore > prev {
			t.Fatalf("step %d (%s): score rose from %v to %v", i, st, prev, rec.TrustScore)
		}
		prev = rec.TrustScore
	}
	assertApprox(t, "TrustScore", rec.TrustScore, 90)
}

func TestScoreAll_Empty(t *testing.T) {
	records := ScoreAll(nil, DefaultParams())
	if records == nil || len(records) != 0 {
		t.Errorf("ScoreAll(nil) = %v, want empty non-nil slice", records)
	}
}
