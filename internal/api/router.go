package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/Fantasim/truthserum/internal/api/handlers"
	"github.com/Fantasim/truthserum/internal/api/middleware"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(cache handlers.ReportCache, source, strategy string) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogging)
	r.Use(middleware.CORS)

	slog.Info("router initialized",
		"middleware", []string{"requestLogging", "cors"},
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.HealthHandler(cache, handlers.HealthInfo{
			Version:  Version,
			Source:   source,
			Strategy: strategy,
		}))

		r.Get("/analysis", handlers.GetAnalysis(cache))
		r.Get("/summary", handlers.GetSummary(cache))
		r.Get("/tickets", handlers.ListTickets(cache))
		r.Get("/tickets/{ticketID}", handlers.GetTicket(cache))
		r.Get("/flagged", handlers.ListFlagged(cache))
		r.Get("/witches", handlers.ListWitches(cache))
		r.Get("/cauldrons", handlers.ListCauldrons(cache))
		r.Post("/refresh", handlers.Refresh(cache))
	})

	return r
}
