package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/steppe/config"
	"github.com/pthm-cable/steppe/sim"
	"github.com/pthm-cable/steppe/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV results (overrides output.dir)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for plot snapshots of the first iteration")
	sqlitePath := flag.String("sqlite", "", "SQLite database for results (overrides output.sqlite)")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = config, then time-based)")
	iterations := flag.Int("iterations", 0, "Number of iterations (0 = use config)")
	years := flag.Int("years", 0, "Years per iteration (0 = use config)")
	workers := flag.Int("workers", 0, "Concurrent iterations (0 = use config)")
	yearly := flag.Bool("yearly", false, "Also write per-iteration yearly rows")
	checkSizes := flag.Bool("check-sizes", false, "Reconcile sizes after growth and mortality")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// CLI overrides
	if *iterations > 0 {
		cfg.Model.Iterations = *iterations
	}
	if *years > 0 {
		cfg.SetYears(*years)
	}
	if *workers > 0 {
		cfg.Model.Workers = *workers
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *sqlitePath != "" {
		cfg.Output.SQLite = *sqlitePath
	}
	if *yearly {
		cfg.Output.Yearly = true
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	runSeed := *seed
	if runSeed == 0 {
		runSeed = cfg.Model.Seed
	}
	if runSeed == 0 {
		runSeed = uint64(time.Now().UnixNano())
	}

	if err := run(cfg, runSeed, *snapshotDir, *checkSizes); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, seed uint64, snapshotDir string, checkSizes bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	om, err := telemetry.NewOutputManager(cfg.Output.Dir)
	if err != nil {
		return err
	}
	defer om.Close()

	manifest := telemetry.RunManifest{
		RunID:      uuid.NewString(),
		Started:    time.Now().UTC(),
		Seed:       seed,
		Years:      cfg.Model.Years,
		Iterations: cfg.Model.Iterations,
		Workers:    cfg.Model.Workers,
	}
	for _, g := range cfg.Groups {
		if !g.Disabled {
			manifest.Groups = append(manifest.Groups, g.Name)
		}
	}
	for _, sp := range cfg.Species {
		if !sp.Disabled {
			manifest.Species = append(manifest.Species, sp.Name)
		}
	}
	if err := om.WriteConfig(cfg); err != nil {
		return err
	}
	if snapshotDir == "" && om != nil {
		snapshotDir = filepath.Join(om.Dir(), "snapshots")
	}

	res, err := sim.Run(ctx, sim.Options{
		Config:      cfg,
		Seed:        seed,
		Workers:     cfg.Model.Workers,
		CheckSizes:  checkSizes,
		Output:      om,
		SnapshotDir: snapshotDir,
		Logger:      slog.Default().With("run_id", manifest.RunID),
	})
	if err != nil {
		return err
	}
	manifest.DurationSec = res.Duration.Seconds()

	logFinalYear(res.Collector, cfg.Model.Years)

	if err := om.WriteResults(res.Collector, cfg.Output.Yearly); err != nil {
		return err
	}
	if err := om.WriteManifest(manifest); err != nil {
		return err
	}
	if cfg.Output.SQLite != "" {
		if err := writeSQLite(ctx, cfg.Output.SQLite, manifest, res.Collector, cfg.Output.Yearly); err != nil {
			return err
		}
	}
	if om != nil {
		slog.Info("results written", "dir", om.Dir())
	}
	return nil
}

func writeSQLite(ctx context.Context, path string, m telemetry.RunManifest, c *telemetry.Collector, yearly bool) error {
	sink, err := telemetry.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer sink.Close()

	if err := sink.WriteRun(ctx, m); err != nil {
		return err
	}
	if err := sink.WriteSummary(ctx, m.RunID, c.Summary()); err != nil {
		return err
	}
	if yearly {
		if err := sink.WriteYearly(ctx, m.RunID, c.Yearly()); err != nil {
			return err
		}
	}
	slog.Info("results stored", "sqlite", path, "run_id", m.RunID)
	return nil
}

// logFinalYear logs the mean state of every group in the last year.
func logFinalYear(c *telemetry.Collector, years int) {
	for _, r := range c.Summary() {
		if r.Year == years && r.Kind == telemetry.KindGroup {
			slog.Info("final year", "group", r.Name, "stats", r)
		}
	}
}
