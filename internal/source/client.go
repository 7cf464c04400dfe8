package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Fantasim/truthserum/internal/config"
	"github.com/Fantasim/truthserum/internal/models"
)

// APIClient fetches level history and tickets from the upstream monitoring API.
type APIClient struct {
	client       *http.Client
	baseURL      string
	metadataFile string
	limiter      *RateLimiter
	breaker      *CircuitBreaker
	retries      int
	retryDelay   time.Duration
}

// ticketsResponse is the upstream /api/Tickets envelope.
type ticketsResponse struct {
	Tickets []models.Ticket `json:"transport_tickets"`
}

// NewAPIClient creates a client for the upstream at baseURL. metadataFile may
// be empty, in which case datasets carry no display metadata.
func NewAPIClient(baseURL string, rps int, metadataFile string) *APIClient {
	baseURL = strings.TrimRight(baseURL, "/")

	slog.Info("upstream client initialized",
		"baseURL", baseURL,
		"rps", rps,
		"metadataFile", metadataFile,
	)

	return &APIClient{
		client: &http.Client{
			Timeout: config.APITimeout,
		},
		baseURL:      baseURL,
		metadataFile: metadataFile,
		limiter:      NewRateLimiter(rps),
		breaker:      NewCircuitBreaker(config.CircuitBreakerThreshold, config.CircuitBreakerCooldown),
		retries:      config.UpstreamRetryCount,
		retryDelay:   config.UpstreamRetryDelay,
	}
}

// WithRetries sets how many times a transient failure is retried and the
// base delay of the exponential backoff between attempts.
func (c *APIClient) WithRetries(retries int, baseDelay time.Duration) *APIClient {
	c.retries = retries
	c.retryDelay = baseDelay
	return c
}

// Name identifies the source in logs and datasets.
func (c *APIClient) Name() string {
	return config.SourceAPI
}

// CircuitState exposes the breaker state for health reporting.
func (c *APIClient) CircuitState() string {
	return c.breaker.State()
}

// Fetch downloads the full level history and ticket list concurrently and
// attaches metadata from the local file when available.
func (c *APIClient) Fetch(ctx context.Context) (*models.Dataset, error) {
	start := time.Now()

	var (
		snapshots []models.LevelSnapshot
		tickets   ticketsResponse
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.getJSON(gctx, config.UpstreamDataPath, &snapshots)
	})
	g.Go(func() error {
		return c.getJSON(gctx, config.UpstreamTicketsPath, &tickets)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	meta, err := LoadMetadata(c.metadataFile)
	if err != nil {
		slog.Warn("continuing without display metadata",
			"file", c.metadataFile,
			"error", err,
		)
	}

	slog.Info("upstream data fetched",
		"snapshots", len(snapshots),
		"tickets", len(tickets.Tickets),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return &models.Dataset{
		Snapshots: snapshots,
		Tickets:   tickets.Tickets,
		Metadata:  meta,
		FetchedAt: time.Now().UTC(),
		Source:    c.Name(),
	}, nil
}

// getJSON GETs path and decodes the body into out, retrying transient failures.
func (c *APIClient) getJSON(ctx context.Context, path string, out any) error {
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := config.GetRetryAfter(lastErr)
			if delay == 0 {
				delay = c.retryDelay * time.Duration(1<<(attempt-1))
			}

			slog.Warn("retrying upstream request",
				"path", path,
				"attempt", attempt,
				"delay", delay,
				"error", lastErr,
			)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if !c.breaker.Allow() {
			return fmt.Errorf("%w: %s", config.ErrCircuitOpen, path)
		}

		lastErr = c.doGet(ctx, path, out)
		if lastErr == nil {
			c.breaker.RecordSuccess()
			return nil
		}

		if !config.IsTransient(lastErr) {
			return lastErr
		}
		c.breaker.RecordFailure()
	}

	return fmt.Errorf("upstream %s failed after %d attempts: %w", path, c.retries+1, lastErr)
}

func (c *APIClient) doGet(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx, path); err != nil {
		return err
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Error("upstream request failed",
			"url", url,
			"error", err,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
		return config.NewTransientError(fmt.Errorf("GET %s: %w", path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		slog.Error("upstream non-200 response",
			"url", url,
			"status", resp.StatusCode,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)

		statusErr := fmt.Errorf("%w: GET %s: HTTP %d", config.ErrUpstreamStatus, path, resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return config.NewTransientErrorWithRetry(statusErr, retryAfterHint(resp, config.UpstreamMaxRetryAfter))
		}
		return statusErr
	}

	body := io.LimitReader(resp.Body, config.UpstreamMaxBodySize)
	if err := json.NewDecoder(body).Decode(out); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("decode %s: %w", path, err)
	}

	slog.Debug("upstream response decoded",
		"url", url,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return nil
}
