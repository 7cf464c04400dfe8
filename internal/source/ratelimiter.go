package source

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// pacedWaitLogThreshold is the shortest wait worth a debug line.
const pacedWaitLogThreshold = 100 * time.Millisecond

// RateLimiter paces calls to the upstream monitoring API. The levels and
// tickets endpoints are fetched concurrently and share one limiter, so a burst
// of 1 keeps them from hitting the upstream in the same instant.
// A non-positive rps disables pacing.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter allowing rps upstream requests per second.
func NewRateLimiter(rps int) *RateLimiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	slog.Debug("upstream pacing configured", "rps", rps)
	return &RateLimiter{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the request for path may be sent or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, path string) error {
	start := time.Now()
	if err := rl.limiter.Wait(ctx); err != nil {
		slog.Warn("upstream request abandoned while paced",
			"path", path,
			"error", err,
		)
		return err
	}
	if waited := time.Since(start); waited >= pacedWaitLogThreshold {
		slog.Debug("upstream request paced",
			"path", path,
			"waited", waited.Round(time.Millisecond),
		)
	}
	return nil
}
