package telemetry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/steppe/config"
)

// RunManifest identifies a run in run.json.
type RunManifest struct {
	RunID       string    `json:"run_id"`
	Started     time.Time `json:"started"`
	Seed        uint64    `json:"seed"`
	Years       int       `json:"years"`
	Iterations  int       `json:"iterations"`
	Workers     int       `json:"workers"`
	Groups      []string  `json:"groups"`
	Species     []string  `json:"species"`
	DurationSec float64   `json:"duration_sec"`
}

// OutputManager handles structured run output with CSV logging. Streaming
// writers are safe for concurrent use by iteration workers.
type OutputManager struct {
	dir          string
	perfFile     *os.File
	bookmarkFile *os.File

	mu sync.Mutex
	// Track if headers have been written
	perfHeaderWritten     bool
	bookmarkHeaderWritten bool
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "perf.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	om.perfFile = f

	f, err = os.Create(filepath.Join(dir, "bookmarks.csv"))
	if err != nil {
		om.perfFile.Close()
		return nil, fmt.Errorf("creating bookmarks.csv: %w", err)
	}
	om.bookmarkFile = f

	return om, nil
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteManifest saves the run manifest as JSON.
func (om *OutputManager) WriteManifest(m RunManifest) error {
	if om == nil {
		return nil
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(om.dir, "run.json"), data, 0644); err != nil {
		return fmt.Errorf("writing run.json: %w", err)
	}
	return nil
}

// WritePerf appends one iteration's performance stats to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, iter int) error {
	if om == nil {
		return nil
	}
	records := []PerfStatsCSV{stats.ToCSV(iter)}

	om.mu.Lock()
	defer om.mu.Unlock()
	if !om.perfHeaderWritten {
		if err := gocsv.Marshal(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
		om.perfHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
	}
	return nil
}

// WriteBookmark appends a bookmark record to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	records := []Bookmark{b}

	om.mu.Lock()
	defer om.mu.Unlock()
	if !om.bookmarkHeaderWritten {
		if err := gocsv.Marshal(records, om.bookmarkFile); err != nil {
			return fmt.Errorf("writing bookmark: %w", err)
		}
		om.bookmarkHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.bookmarkFile); err != nil {
			return fmt.Errorf("writing bookmark: %w", err)
		}
	}
	return nil
}

// WriteResults writes the aggregate tables of a finished run. Per-iteration
// yearly rows are written only when yearly is set.
func (om *OutputManager) WriteResults(c *Collector, yearly bool) error {
	if om == nil || c == nil {
		return nil
	}
	if err := writeCSV(om.dir, "bmass_summary.csv", c.Summary()); err != nil {
		return err
	}
	if err := writeCSV(om.dir, "mort_summary.csv", c.Mortality()); err != nil {
		return err
	}
	if err := writeCSV(om.dir, "estab_summary.csv", c.Establishment()); err != nil {
		return err
	}
	if yearly {
		if err := writeCSV(om.dir, "bmass_yearly.csv", c.Yearly()); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV[T any](dir, name string, rows []T) error {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	if err := gocsv.Marshal(rows, f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	logWritten(path, len(rows))
	return nil
}

func logWritten(path string, rows int) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	slog.Debug("output written", "file", filepath.Base(path), "rows", rows, "size", humanize.Bytes(uint64(info.Size())))
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	om.mu.Lock()
	defer om.mu.Unlock()

	var firstErr error
	if om.perfFile != nil {
		if err := om.perfFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		om.perfFile = nil
	}
	if om.bookmarkFile != nil {
		if err := om.bookmarkFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		om.bookmarkFile = nil
	}
	return firstErr
}
