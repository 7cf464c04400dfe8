package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fantasim/truthserum/internal/analysis"
	"github.com/Fantasim/truthserum/internal/api"
	"github.com/Fantasim/truthserum/internal/config"
	"github.com/Fantasim/truthserum/internal/logging"
	"github.com/Fantasim/truthserum/internal/report"
	"github.com/Fantasim/truthserum/internal/snapshot"
	"github.com/Fantasim/truthserum/internal/source"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	case "analyze":
		if err := runAnalyze(os.Args[2:]); err != nil {
			slog.Error("analyze error", "error", err)
			os.Exit(1)
		}
	case "snapshot":
		if err := runSnapshot(); err != nil {
			slog.Error("snapshot error", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("truthserum %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: truthserum <command>

Commands:
  serve     Start the HTTP API server
  analyze   Run one analysis pass and print the JSON report
  snapshot  Fetch upstream data and store it in the local snapshot
  version   Print version information
`)
}

// analysisParams maps configuration onto analysis parameters.
func analysisParams(cfg *config.Config) analysis.Params {
	p := analysis.DefaultParams()
	p.Strategy = analysis.Strategy(cfg.DrainStrategy)
	p.MinSamples = cfg.MinSamples
	p.FallbackFillRate = cfg.FallbackFillRate
	p.DrainSignificance = cfg.DrainSignificance
	p.LocalDrainMinDrop = cfg.LocalDrainMinDrop
	p.LocalDrainRecovery = cfg.LocalDrainRecovery
	p.VesselCapacity = cfg.VesselCapacity
	p.ValidThresholdPct = cfg.ValidThresholdPct
	p.FraudThresholdPct = cfg.FraudThresholdPct
	p.SuspiciousPenalty = cfg.SuspiciousPenalty
	p.FraudulentPenalty = cfg.FraudulentPenalty
	return p
}

// buildService wires the configured data source, plus snapshot write-through
// when enabled. The returned closer releases the snapshot store, if opened.
func buildService(cfg *config.Config) (*report.Service, io.Closer, error) {
	params := analysisParams(cfg)

	if cfg.Source == config.SourceSnapshot {
		store, err := snapshot.Open(cfg.SnapshotPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open snapshot store: %w", err)
		}
		return report.NewService(store, params), store, nil
	}

	client := source.NewAPIClient(cfg.UpstreamURL, cfg.FetchRPS, cfg.MetadataFile).
		WithRetries(cfg.FetchRetries, config.UpstreamRetryDelay)
	svc := report.NewService(client, params)

	if !cfg.WriteSnapshot {
		return svc, nopCloser{}, nil
	}

	store, err := snapshot.Open(cfg.SnapshotPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot store: %w", err)
	}
	return svc.WithSaver(store), store, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logCloser.Close()

	slog.Info("starting truthserum",
		"version", version,
		"port", cfg.Port,
		"source", cfg.Source,
		"strategy", cfg.DrainStrategy,
		"thresholdProfile", cfg.ThresholdProfile,
		"validThresholdPct", cfg.ValidThresholdPct,
		"fraudThresholdPct", cfg.FraudThresholdPct,
		"logLevel", cfg.LogLevel,
	)

	svc, closer, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	cache := report.NewCache(svc.RunAnalysis)

	api.Version = version
	router := api.NewRouter(cache, svc.SourceName(), cfg.DrainStrategy)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:           addr,
		Handler:        router,
		ReadTimeout:    config.ServerReadTimeout,
		WriteTimeout:   config.ServerWriteTimeout,
		IdleTimeout:    config.ServerIdleTimeout,
		MaxHeaderBytes: config.ServerMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			listenErr <- err
		}
	}()

	select {
	case <-done:
	case err := <-listenErr:
		return fmt.Errorf("server listen error: %w", err)
	}

	slog.Info("initiating graceful shutdown", "timeout", config.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	out := fs.String("out", "", "Write the report to this file instead of stdout")
	strategy := fs.String("strategy", "", "Drain strategy: daily or local (default: from TRUTHSERUM_DRAIN_STRATEGY)")
	fs.Parse(args)

	if *strategy != "" {
		os.Setenv("TRUTHSERUM_DRAIN_STRATEGY", *strategy)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCloser, err := logging.SetupWithConsole(cfg.LogLevel, cfg.LogDir, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logCloser.Close()

	svc, closer, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := svc.RunAnalysis(ctx)
	if err != nil {
		return err
	}

	w := io.Writer(os.Stdout)
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	slog.Info("report written",
		"out", *out,
		"tickets", rep.Summary.TotalTickets,
		"fraudRate", fmt.Sprintf("%.1f%%", rep.Summary.FraudRate),
	)
	return nil
}

func runSnapshot() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logCloser.Close()

	store, err := snapshot.Open(cfg.SnapshotPath)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	client := source.NewAPIClient(cfg.UpstreamURL, cfg.FetchRPS, cfg.MetadataFile).
		WithRetries(cfg.FetchRetries, config.UpstreamRetryDelay)
	svc := report.NewService(client, analysisParams(cfg))

	ds, err := svc.Fetch(ctx)
	if err != nil {
		return err
	}
	if err := store.Save(ctx, ds); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	info, err := store.Stat(ctx)
	if err != nil {
		return err
	}

	slog.Info("snapshot complete",
		"path", cfg.SnapshotPath,
		"snapshots", info.SnapshotCount,
		"tickets", info.TicketCount,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}
