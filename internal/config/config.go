package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Host     string `envconfig:"TRUTHSERUM_HOST" default:"127.0.0.1"`
	Port     int    `envconfig:"TRUTHSERUM_PORT" default:"5000"`
	LogLevel string `envconfig:"TRUTHSERUM_LOG_LEVEL" default:"info"`
	LogDir   string `envconfig:"TRUTHSERUM_LOG_DIR" default:"./logs"`

	UpstreamURL   string `envconfig:"TRUTHSERUM_UPSTREAM_URL" default:"https://hackutd2025.eog.systems"`
	FetchRPS      int    `envconfig:"TRUTHSERUM_FETCH_RPS" default:"5"`
	FetchRetries  int    `envconfig:"TRUTHSERUM_FETCH_RETRIES" default:"3"`
	MetadataFile  string `envconfig:"TRUTHSERUM_METADATA_FILE" default:"./data/background_data.json"`
	SnapshotPath  string `envconfig:"TRUTHSERUM_SNAPSHOT_PATH" default:"./data/snapshot.sqlite"`
	Source        string `envconfig:"TRUTHSERUM_SOURCE" default:"api"`
	WriteSnapshot bool   `envconfig:"TRUTHSERUM_WRITE_SNAPSHOT" default:"false"`

	DrainStrategy      string  `envconfig:"TRUTHSERUM_DRAIN_STRATEGY" default:"daily"`
	ThresholdProfile   string  `envconfig:"TRUTHSERUM_THRESHOLD_PROFILE" default:"lenient"`
	ValidThresholdPct  float64 `envconfig:"TRUTHSERUM_VALID_THRESHOLD_PCT"`
	FraudThresholdPct  float64 `envconfig:"TRUTHSERUM_FRAUD_THRESHOLD_PCT"`
	VesselCapacity     float64 `envconfig:"TRUTHSERUM_VESSEL_CAPACITY" default:"100"`
	DrainSignificance  float64 `envconfig:"TRUTHSERUM_DRAIN_SIGNIFICANCE" default:"15"`
	LocalDrainMinDrop  float64 `envconfig:"TRUTHSERUM_LOCAL_DRAIN_MIN_DROP" default:"20"`
	LocalDrainRecovery float64 `envconfig:"TRUTHSERUM_LOCAL_DRAIN_RECOVERY" default:"5"`
	MinSamples         int     `envconfig:"TRUTHSERUM_MIN_SAMPLES" default:"10"`
	FallbackFillRate   float64 `envconfig:"TRUTHSERUM_FALLBACK_FILL_RATE" default:"0.1"`
	SuspiciousPenalty  float64 `envconfig:"TRUTHSERUM_SUSPICIOUS_PENALTY" default:"2"`
	FraudulentPenalty  float64 `envconfig:"TRUTHSERUM_FRAUDULENT_PENALTY" default:"8"`
}

// Load reads configuration from .env file (if present) then from environment variables.
// Environment variables override .env values.
func Load() (*Config, error) {
	// godotenv does NOT override already-set env vars.
	envFiles := []string{".env"}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				slog.Warn("failed to load .env file", "file", f, "error", err)
			} else {
				slog.Info("loaded .env file", "file", f)
			}
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	cfg.applyThresholdProfile()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyThresholdProfile fills unset classification thresholds from the
// selected profile. Explicitly set thresholds always win.
func (c *Config) applyThresholdProfile() {
	low, high := LenientValidThresholdPct, LenientFraudThresholdPct
	if c.ThresholdProfile == ProfileStrict {
		low, high = StrictValidThresholdPct, StrictFraudThresholdPct
	}
	if c.ValidThresholdPct == 0 {
		c.ValidThresholdPct = low
	}
	if c.FraudThresholdPct == 0 {
		c.FraudThresholdPct = high
	}
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidConfig, c.Port)
	}
	if c.Source != SourceAPI && c.Source != SourceSnapshot {
		return fmt.Errorf("%w: source must be %q or %q, got %q", ErrInvalidConfig, SourceAPI, SourceSnapshot, c.Source)
	}
	if c.DrainStrategy != StrategyDaily && c.DrainStrategy != StrategyLocal {
		return fmt.Errorf("%w: drain strategy must be %q or %q, got %q", ErrInvalidConfig, StrategyDaily, StrategyLocal, c.DrainStrategy)
	}
	switch c.ThresholdProfile {
	case ProfileLenient, ProfileStrict, ProfileCustom:
	default:
		return fmt.Errorf("%w: threshold profile must be lenient, strict or custom, got %q", ErrInvalidConfig, c.ThresholdProfile)
	}
	if c.ValidThresholdPct <= 0 || c.FraudThresholdPct <= c.ValidThresholdPct {
		return fmt.Errorf("%w: need 0 < valid threshold < fraud threshold, got %.2f/%.2f", ErrInvalidConfig, c.ValidThresholdPct, c.FraudThresholdPct)
	}
	if c.VesselCapacity <= 0 {
		return fmt.Errorf("%w: vessel capacity must be positive, got %.2f", ErrInvalidConfig, c.VesselCapacity)
	}
	if c.MinSamples < 2 {
		return fmt.Errorf("%w: min samples must be >= 2, got %d", ErrInvalidConfig, c.MinSamples)
	}
	if c.FetchRPS < 1 {
		return fmt.Errorf("%w: fetch rps must be >= 1, got %d", ErrInvalidConfig, c.FetchRPS)
	}
	if c.FetchRetries < 0 {
		return fmt.Errorf("%w: fetch retries must not be negative, got %d", ErrInvalidConfig, c.FetchRetries)
	}
	if c.DrainSignificance < 0 || c.LocalDrainMinDrop < 0 || c.LocalDrainRecovery < 0 {
		return fmt.Errorf("%w: drain thresholds must not be negative", ErrInvalidConfig)
	}
	if c.SuspiciousPenalty < 0 || c.FraudulentPenalty < 0 {
		return fmt.Errorf("%w: trust penalties must not be negative", ErrInvalidConfig)
	}
	if c.Source == SourceSnapshot && c.SnapshotPath == "" {
		return fmt.Errorf("%w: snapshot source requires TRUTHSERUM_SNAPSHOT_PATH", ErrInvalidConfig)
	}
	return nil
}
