package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Fantasim/truthserum/internal/analysis"
	"github.com/Fantasim/truthserum/internal/config"
	"github.com/Fantasim/truthserum/internal/models"
)

// ReportCache is the memoized analysis the handlers serve from.
type ReportCache interface {
	GetOrCompute(ctx context.Context) (*models.AnalysisReport, error)
	Invalidate()
	Status() (cached bool, computedAt time.Time)
}

// loadReport fetches the report, writing the error response itself on failure.
func loadReport(w http.ResponseWriter, r *http.Request, cache ReportCache) (*models.AnalysisReport, bool) {
	report, err := cache.GetOrCompute(r.Context())
	if err == nil {
		return report, true
	}

	switch {
	case errors.Is(err, config.ErrDataUnavailable):
		slog.Error("analysis unavailable", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, config.ErrorDataUnavailable, "Failed to fetch or analyze data")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		slog.Warn("analysis request abandoned", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusServiceUnavailable, config.ErrorDataUnavailable, "Analysis did not complete in time")
	default:
		slog.Error("analysis failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, config.ErrorInternal, "Internal error")
	}
	return nil, false
}

// GetAnalysis handles GET /api/analysis.
func GetAnalysis(cache ReportCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, ok := loadReport(w, r, cache)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// GetSummary handles GET /api/summary.
func GetSummary(cache ReportCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, ok := loadReport(w, r, cache)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, report.Summary)
	}
}

// ListTickets handles GET /api/tickets with an optional ?status= filter.
func ListTickets(cache ReportCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := models.Status(r.URL.Query().Get("status"))
		if status != "" && !status.Valid() {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidStatus,
				"status must be one of valid, suspicious, fraudulent")
			return
		}

		report, ok := loadReport(w, r, cache)
		if !ok {
			return
		}

		if status == "" {
			writeJSON(w, http.StatusOK, report.Tickets)
			return
		}

		filtered := make([]models.ValidationResult, 0)
		for _, t := range report.Tickets {
			if t.Status == status {
				filtered = append(filtered, t)
			}
		}
		writeJSON(w, http.StatusOK, filtered)
	}
}

// GetTicket handles GET /api/tickets/{ticketID}.
func GetTicket(cache ReportCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "ticketID")

		report, ok := loadReport(w, r, cache)
		if !ok {
			return
		}

		res, err := analysis.FindTicket(report, id)
		if errors.Is(err, config.ErrTicketNotFound) {
			slog.Debug("ticket not found", "ticketID", id)
			writeError(w, http.StatusNotFound, config.ErrorTicketNotFound, "ticket "+id+" not found")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// ListFlagged handles GET /api/flagged.
func ListFlagged(cache ReportCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, ok := loadReport(w, r, cache)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, report.Flagged)
	}
}

// ListWitches handles GET /api/witches: courier trust records, worst first.
func ListWitches(cache ReportCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, ok := loadReport(w, r, cache)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, report.TrustScores)
	}
}

// ListCauldrons handles GET /api/cauldrons: cauldron metadata with the
// estimated fill rate. Without metadata, every cauldron seen in the level
// history is listed by ID.
func ListCauldrons(cache ReportCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, ok := loadReport(w, r, cache)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, cauldronViews(report))
	}
}

func cauldronViews(report *models.AnalysisReport) []models.CauldronView {
	if report.Metadata != nil && len(report.Metadata.Cauldrons) > 0 {
		out := make([]models.CauldronView, 0, len(report.Metadata.Cauldrons))
		for _, c := range report.Metadata.Cauldrons {
			out = append(out, models.CauldronView{CauldronInfo: c, FillRate: report.FillRates[c.ID]})
		}
		return out
	}

	ids := make([]string, 0, len(report.FillRates))
	for id := range report.FillRates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.CauldronView, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.CauldronView{CauldronInfo: models.CauldronInfo{ID: id}, FillRate: report.FillRates[id]})
	}
	return out
}

// Refresh handles POST /api/refresh. The next read recomputes from fresh data.
func Refresh(cache ReportCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cache.Invalidate()
		writeJSON(w, http.StatusOK, map[string]string{"message": "Cache cleared successfully"})
	}
}
