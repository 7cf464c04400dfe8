package source

import (
	"context"
	"testing"
	"time"

	"github.com/Fantasim/truthserum/internal/config"
)

func TestRateLimiter_PacesUpstreamCalls(t *testing.T) {
	rl := NewRateLimiter(20)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := rl.Wait(ctx, config.UpstreamTicketsPath); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	// Burst of 1 at 20 rps: four waits of ~50ms after the first token.
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("5 requests took %v, expected at least 150ms", elapsed)
	}
}

func TestRateLimiter_ZeroRPSIsUnpaced(t *testing.T) {
	rl := NewRateLimiter(0)

	start := time.Now()
	for i := 0; i < 50; i++ {
		if err := rl.Wait(context.Background(), config.UpstreamDataPath); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("unpaced limiter took %v for 50 requests", elapsed)
	}
}

func TestRateLimiter_CancelledContext(t *testing.T) {
	rl := NewRateLimiter(1)
	rl.Wait(context.Background(), config.UpstreamDataPath)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rl.Wait(ctx, config.UpstreamDataPath); err == nil {
		t.Error("expected error for cancelled context")
	}
}
