package report

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Fantasim/truthserum/internal/config"
	"github.com/Fantasim/truthserum/internal/models"
)

// ComputeFunc produces a fresh report.
type ComputeFunc func(ctx context.Context) (*models.AnalysisReport, error)

// Cache memoizes the latest report. Concurrent misses share one computation;
// failures are never cached.
type Cache struct {
	compute ComputeFunc
	group   singleflight.Group

	mu         sync.RWMutex
	report     *models.AnalysisReport
	computedAt time.Time
	generation uint64
}

// NewCache creates an empty cache around compute.
func NewCache(compute ComputeFunc) *Cache {
	return &Cache{compute: compute}
}

// GetOrCompute returns the cached report, computing it on a miss.
func (c *Cache) GetOrCompute(ctx context.Context) (*models.AnalysisReport, error) {
	c.mu.RLock()
	if c.report != nil {
		r, at := c.report, c.computedAt
		c.mu.RUnlock()
		slog.Debug("report cache hit", "age", time.Since(at).Round(time.Second))
		return r, nil
	}
	gen := c.generation
	c.mu.RUnlock()

	ch := c.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		// Detached so one caller going away does not fail the others.
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.APITimeout)
		defer cancel()

		r, err := c.compute(cctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.generation == gen {
			c.report = r
			c.computedAt = time.Now()
		}
		c.mu.Unlock()

		return r, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.AnalysisReport), nil
	}
}

// Invalidate drops the cached report. A computation already in flight still
// completes for its callers but is not stored.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.report = nil
	c.computedAt = time.Time{}
	c.generation++
	c.mu.Unlock()

	slog.Info("report cache invalidated")
}

// Status reports whether a report is cached and when it was computed.
func (c *Cache) Status() (cached bool, computedAt time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.report != nil, c.computedAt
}
