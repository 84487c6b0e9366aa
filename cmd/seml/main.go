// Package main implements the entry point for SEML, a clinical stream
// processor that ingests HL7 v2 messages over MLLP, tracks per-patient
// creatinine history, and pages clinicians on predicted acute kidney
// injury.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/andyfu-xl/SEML/config"
	"github.com/andyfu-xl/SEML/engine"
	"github.com/andyfu-xl/SEML/metric"
	"github.com/andyfu-xl/SEML/mllp"
	"github.com/andyfu-xl/SEML/model"
	"github.com/andyfu-xl/SEML/pager"
	"github.com/andyfu-xl/SEML/patientstore"
	"github.com/andyfu-xl/SEML/pkg/retry"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "seml"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	cfg, err := loadConfiguration(cliCfg)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	slog.Info("Starting SEML",
		"version", Version,
		"build_time", BuildTime,
		"mllp_address", cfg.MLLP.Address,
		"pager_url", cfg.Pager.URL)

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	registry := metric.NewMetricsRegistry()
	if cfg.Metrics.Enabled {
		stopMetrics := startMetricsServer(cfg.Metrics, registry)
		defer stopMetrics()
	}

	store, err := openStore(cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	eng, source, err := buildPipeline(cfg, store, registry, logger)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	return runWithSignalHandling(eng)
}

// loadConfiguration layers defaults, config file, environment and flags
func loadConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cliCfg.MLLPAddress != "" {
		cfg.MLLP.Address = cliCfg.MLLPAddress
	}
	if cliCfg.PagerURL != "" {
		cfg.Pager.URL = cliCfg.PagerURL
	}
	if cliCfg.Database != "" {
		cfg.Store.DatabasePath = cliCfg.Database
	}
	if cliCfg.HistoryCSV != "" {
		cfg.Store.HistoryCSV = cliCfg.HistoryCSV
	}
	if cliCfg.MetricsPort != 0 {
		cfg.Metrics.Port = cliCfg.MetricsPort
	}
	if cliCfg.LogLevel != "" {
		cfg.Log.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Log.Format = cliCfg.LogFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// startMetricsServer serves /metrics and /health in the background and
// returns a stop function
func startMetricsServer(cfg config.MetricsConfig, registry *metric.MetricsRegistry) func() {
	server := metric.NewServer(cfg.Port, cfg.Path, registry)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	slog.Info("Metrics server started", "address", server.Address())
	return func() { _ = server.Stop() }
}

// openStore opens the patient database and seeds historical results when a
// CSV is configured
func openStore(cfg config.StoreConfig, logger *slog.Logger) (*patientstore.Store, error) {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	store, err := patientstore.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open patient database: %w", err)
	}

	if cfg.HistoryCSV != "" {
		inserted, err := store.LoadSeedCSV(cfg.HistoryCSV)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("seed patient history: %w", err)
		}
		logger.Info("Historical results loaded", "file", cfg.HistoryCSV, "patients_inserted", inserted)
	}

	count, err := store.Count()
	if err == nil {
		logger.Info("Patient database ready", "path", cfg.DatabasePath, "patients", count)
	}
	return store, nil
}

// buildPipeline wires source, pager, predictor and engine together
func buildPipeline(
	cfg *config.Config,
	store *patientstore.Store,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) (*engine.Engine, *mllp.Client, error) {
	source, err := mllp.NewClient(mllp.ClientConfig{
		Address:       cfg.MLLP.Address,
		ReadChunkSize: cfg.MLLP.ReadChunkSize,
		DialTimeout:   time.Duration(cfg.MLLP.DialTimeout) * time.Second,
		Backoff: retry.Linear(
			time.Duration(cfg.MLLP.Backoff.InitialSeconds)*time.Second,
			time.Duration(cfg.MLLP.Backoff.IncrementSeconds)*time.Second,
			time.Duration(cfg.MLLP.Backoff.CapSeconds)*time.Second,
			cfg.MLLP.Backoff.MaxAttempts,
		),
	}, logger, registry)
	if err != nil {
		return nil, nil, fmt.Errorf("create MLLP client: %w", err)
	}

	pagerClient, err := pager.NewClient(pager.ClientConfig{
		BaseURL: cfg.Pager.URL,
		Timeout: time.Duration(cfg.Pager.Timeout) * time.Second,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create pager client: %w", err)
	}
	queue := pager.NewQueue(pagerClient, store, logger, registry)

	var observer engine.Observer
	if metricsObserver := engine.NewMetricsObserver(registry); metricsObserver != nil {
		observer = metricsObserver
	}

	eng, err := engine.New(engine.Config{
		Source:    source,
		Store:     store,
		Predictor: model.NewDeltaPredictor(),
		Queue:     queue,
		Observer:  observer,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create engine: %w", err)
	}
	return eng, source, nil
}

// runWithSignalHandling runs the engine until it stops on its own or a
// shutdown signal arrives. The engine finishes its in-flight message
// before honoring the cancellation.
func runWithSignalHandling(eng *engine.Engine) error {
	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := eng.Run(signalCtx); err != nil {
		return fmt.Errorf("pipeline stopped: %w", err)
	}

	slog.Info("SEML shutdown complete")
	return nil
}
