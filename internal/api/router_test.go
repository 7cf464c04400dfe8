package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Fantasim/truthserum/internal/analysis"
	"github.com/Fantasim/truthserum/internal/models"
	"github.com/Fantasim/truthserum/internal/report"
)

type countingSource struct {
	calls atomic.Int32
}

func (s *countingSource) Fetch(ctx context.Context) (*models.Dataset, error) {
	s.calls.Add(1)
	return &models.Dataset{
		Tickets: []models.Ticket{
			{TicketID: "T1", CauldronID: "c1", CourierID: "w1", Date: "2025-01-01", ReportedAmount: 40},
			{TicketID: "T2", CauldronID: "c1", CourierID: "w2", Date: "2025-01-01", ReportedAmount: 400},
		},
		FetchedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (s *countingSource) Name() string { return "counting" }

func TestRouter_EndToEnd(t *testing.T) {
	src := &countingSource{}
	svc := report.NewService(src, analysis.DefaultParams())
	cache := report.NewCache(svc.RunAnalysis)

	srv := httptest.NewServer(NewRouter(cache, svc.SourceName(), string(analysis.StrategyDaily)))
	defer srv.Close()

	get := func(path string, out interface{}) int {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				t.Fatalf("decode %s: %v", path, err)
			}
		}
		return resp.StatusCode
	}

	var summary models.Summary
	if code := get("/api/summary", &summary); code != http.StatusOK {
		t.Fatalf("summary status = %d", code)
	}
	if summary.ValidCount != 1 || summary.FraudulentCount != 1 {
		t.Errorf("summary = %+v", summary)
	}

	var flagged []models.ValidationResult
	get("/api/flagged", &flagged)
	if len(flagged) != 1 || flagged[0].TicketID != "T2" {
		t.Errorf("flagged = %+v", flagged)
	}
	if src.calls.Load() != 1 {
		t.Errorf("source calls = %d, want 1 (cached)", src.calls.Load())
	}

	resp, err := http.Post(srv.URL+"/api/refresh", "application/json", nil)
	if err != nil {
		t.Fatalf("POST refresh: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("refresh status = %d", resp.StatusCode)
	}

	var health map[string]interface{}
	get("/api/health", &health)
	if health["cached"] != false || health["source"] != "counting" {
		t.Errorf("health after refresh = %v", health)
	}

	get("/api/summary", nil)
	if src.calls.Load() != 2 {
		t.Errorf("source calls = %d, want 2 after refresh", src.calls.Load())
	}

	if code := get("/api/unknown", nil); code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want 404", code)
	}
}
