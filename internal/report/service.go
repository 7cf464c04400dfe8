// Package report runs the analysis over freshly loaded data and memoizes the
// result for the serving layer.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fantasim/truthserum/internal/analysis"
	"github.com/Fantasim/truthserum/internal/config"
	"github.com/Fantasim/truthserum/internal/models"
	"github.com/Fantasim/truthserum/internal/source"
)

// Saver persists a fetched dataset.
type Saver interface {
	Save(ctx context.Context, ds *models.Dataset) error
}

// Service loads a dataset and runs one analysis pass over it.
type Service struct {
	src    source.Source
	saver  Saver
	params analysis.Params
}

// NewService creates a service reading from src.
func NewService(src source.Source, params analysis.Params) *Service {
	return &Service{src: src, params: params}
}

// WithSaver makes every successful fetch also be written to saver.
// Save failures are logged and do not fail the analysis.
func (s *Service) WithSaver(saver Saver) *Service {
	s.saver = saver
	return s
}

// Params returns the analysis parameters in use.
func (s *Service) Params() analysis.Params {
	return s.params
}

// SourceName returns the name of the configured data source.
func (s *Service) SourceName() string {
	return s.src.Name()
}

// RunAnalysis fetches the dataset and analyzes it. Any fetch failure is
// reported as ErrDataUnavailable.
func (s *Service) RunAnalysis(ctx context.Context) (*models.AnalysisReport, error) {
	ds, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return analysis.Run(ds, s.params), nil
}

// Fetch loads the dataset, writing it through to the saver when one is set.
func (s *Service) Fetch(ctx context.Context) (*models.Dataset, error) {
	start := time.Now()

	ds, err := s.src.Fetch(ctx)
	if err != nil {
		slog.Error("dataset fetch failed",
			"source", s.src.Name(),
			"error", err,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
		return nil, fmt.Errorf("%w: %s: %w", config.ErrDataUnavailable, s.src.Name(), err)
	}

	if s.saver != nil {
		if err := s.saver.Save(ctx, ds); err != nil {
			slog.Warn("snapshot write-through failed", "error", err)
		}
	}

	return ds, nil
}
