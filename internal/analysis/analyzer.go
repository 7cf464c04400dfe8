package analysis

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Fantasim/truthserum/internal/config"
	"github.com/Fantasim/truthserum/internal/models"
)

// Run performs one full analysis pass over ds. It is deterministic: the same
// dataset and params always produce the same report.
func Run(ds *models.Dataset, p Params) *models.AnalysisReport {
	start := time.Now()

	series, skipped := BuildSeries(ds.Snapshots)
	rates := EstimateRates(series, p)

	slog.Info("level history prepared",
		"snapshots", len(ds.Snapshots),
		"skippedSnapshots", skipped,
		"cauldrons", len(series),
		"strategy", p.Strategy,
	)

	validator := NewValidator(series, rates, ds.Tickets, p)

	results := make([]models.ValidationResult, 0, len(ds.Tickets))
	degraded := 0
	for _, t := range ds.Tickets {
		res, err := validator.Validate(t)
		if err != nil {
			degraded++
			slog.Warn("ticket could not be validated",
				"ticketID", t.TicketID,
				"cauldronID", t.CauldronID,
				"error", err,
			)
			res = DegradedResult(t, err)
		}
		results = append(results, res)
	}

	report := &models.AnalysisReport{
		Summary:     Summarize(results),
		Tickets:     results,
		TrustScores: ScoreAll(results, p),
		FillRates:   rates,
		Flagged:     Flagged(results),
		Metadata:    ds.Metadata,
	}
	if !ds.FetchedAt.IsZero() {
		report.FetchedAt = ds.FetchedAt.UTC().Format(time.RFC3339)
	}

	slog.Info("analysis complete",
		"tickets", report.Summary.TotalTickets,
		"valid", report.Summary.ValidCount,
		"suspicious", report.Summary.SuspiciousCount,
		"fraudulent", report.Summary.FraudulentCount,
		"degraded", degraded,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return report
}

// Summarize counts results by status.
func Summarize(results []models.ValidationResult) models.Summary {
	s := models.Summary{TotalTickets: len(results)}
	for _, r := range results {
		switch r.Status {
		case models.StatusValid:
			s.ValidCount++
		case models.StatusSuspicious:
			s.SuspiciousCount++
		case models.StatusFraudulent:
			s.FraudulentCount++
		}
	}
	if s.TotalTickets > 0 {
		s.FraudRate = float64(s.FraudulentCount) / float64(s.TotalTickets) * 100
	}
	return s
}

// Flagged returns the suspicious results followed by the fraudulent ones.
func Flagged(results []models.ValidationResult) []models.ValidationResult {
	out := make([]models.ValidationResult, 0)
	for _, status := range []models.Status{models.StatusSuspicious, models.StatusFraudulent} {
		for _, r := range results {
			if r.Status == status {
				out = append(out, r)
			}
		}
	}
	return out
}

// FindTicket returns the result recorded for ticketID, or an error wrapping
// config.ErrTicketNotFound.
func FindTicket(report *models.AnalysisReport, ticketID string) (models.ValidationResult, error) {
	for _, r := range report.Tickets {
		if r.TicketID == ticketID {
			return r, nil
		}
	}
	return models.ValidationResult{}, fmt.Errorf("%w: %s", config.ErrTicketNotFound, ticketID)
}
