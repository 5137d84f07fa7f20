package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pthm-cable/steppe/config"
	"github.com/pthm-cable/steppe/systems"
	"github.com/pthm-cable/steppe/telemetry"
)

func testConfig(t *testing.T, years, iterations int) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.SetYears(years)
	cfg.Model.Iterations = iterations
	return cfg
}

func quiet() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestRunDefaults(t *testing.T) {
	cfg := testConfig(t, 30, 3)
	res, err := Run(context.Background(), Options{
		Config:     cfg,
		Seed:       11,
		Workers:    2,
		CheckSizes: true,
		Logger:     quiet(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Seed != 11 {
		t.Errorf("seed = %d, want 11", res.Seed)
	}

	rows := res.Collector.Summary()
	if len(rows) == 0 || len(rows)%30 != 0 {
		t.Fatalf("summary rows = %d, want a positive multiple of 30", len(rows))
	}
	var total float64
	for _, r := range rows {
		if r.BiomassMean < 0 || r.BiomassP10 > r.BiomassP90 {
			t.Errorf("bad summary row %+v", r)
		}
		if r.PPTMean < cfg.Environment.PPT.Min || r.PPTMean > cfg.Environment.PPT.Max {
			t.Errorf("year %d ppt mean %v outside bounds", r.Year, r.PPTMean)
		}
		total += r.BiomassMean
	}
	if total == 0 {
		t.Error("no biomass produced over the run")
	}
}

func TestRunReproducible(t *testing.T) {
	run := func(workers int, seed uint64) []telemetry.YearlyRecord {
		res, err := Run(context.Background(), Options{
			Config:  testConfig(t, 25, 4),
			Seed:    seed,
			Workers: workers,
			Logger:  quiet(),
		})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return res.Collector.Yearly()
	}

	a := run(1, 99)
	b := run(4, 99)
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different results with different worker counts")
	}

	c := run(2, 100)
	if reflect.DeepEqual(a, c) {
		t.Error("different seeds produced identical results")
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Options{Config: testConfig(t, 10, 2), Seed: 1, Logger: quiet()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRunMissingTable(t *testing.T) {
	cfg := testConfig(t, 5, 1)
	cfg.Resources.Table = filepath.Join(t.TempDir(), "missing.csv")
	if _, err := Run(context.Background(), Options{Config: cfg, Seed: 1, Logger: quiet()}); err == nil {
		t.Error("expected error for missing resource table")
	}
}

func TestRunWithOutput(t *testing.T) {
	dir := t.TempDir()
	om, err := telemetry.NewOutputManager(filepath.Join(dir, "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer om.Close()

	snapDir := filepath.Join(dir, "snapshots")
	_, err = Run(context.Background(), Options{
		Config:      testConfig(t, 12, 2),
		Seed:        5,
		Output:      om,
		SnapshotDir: snapDir,
		Logger:      quiet(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(filepath.Join(snapDir, "snapshot_1_12.json")); err != nil {
		t.Errorf("final-year snapshot missing: %v", err)
	}
	om.Close()
	data, err := os.ReadFile(filepath.Join(dir, "out", "perf.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(strings.TrimSpace(string(data)), "\n"); lines != 2 {
		t.Errorf("perf.csv has %d data rows, want 2", lines)
	}
}

func TestRunErrorWrapping(t *testing.T) {
	err := error(&RunError{Iter: 2, Year: 5, Err: fmt.Errorf("group %q: %w", "grass", systems.ErrResourceOvercommit)})

	if !errors.Is(err, systems.ErrResourceOvercommit) {
		t.Error("RunError should unwrap to the cause")
	}
	var re *RunError
	if !errors.As(err, &re) || re.Iter != 2 || re.Year != 5 {
		t.Errorf("errors.As = %+v", re)
	}
	if !strings.Contains(err.Error(), "iteration 2 year 5") {
		t.Errorf("message %q lacks location", err.Error())
	}
}
