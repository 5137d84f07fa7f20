package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/steppe/components"
	"github.com/pthm-cable/steppe/config"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v; want nil, nil", om, err)
	}
	// nil manager is a no-op
	if err := om.WriteBookmark(Bookmark{}); err != nil {
		t.Error(err)
	}
	if err := om.WriteResults(nil, true); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

func TestOutputManagerFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	for iter := 1; iter <= 2; iter++ {
		if err := om.WritePerf(PerfStats{}, iter); err != nil {
			t.Fatalf("WritePerf: %v", err)
		}
		if err := om.WriteBookmark(Bookmark{Iter: iter, Year: 3, Type: BookmarkDrought}); err != nil {
			t.Fatalf("WriteBookmark: %v", err)
		}
	}

	st := testStore(t)
	c := NewCollector(st, 1, 1)
	st.Year = 1
	st.AddIndividuals(0, 1)
	c.RecordYear(0, st, &components.Environment{}, &components.Plot{})
	c.RecordIteration(0, st)
	if err := om.WriteResults(c, true); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	if err := om.WriteManifest(RunManifest{RunID: "abc", Seed: 9}); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, name := range []string{
		"perf.csv", "bookmarks.csv", "bmass_summary.csv", "mort_summary.csv",
		"estab_summary.csv", "bmass_yearly.csv", "config.yaml", "run.json",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "bookmarks.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "iter,") {
		t.Errorf("bookmarks.csv = %q, want one header and two rows", lines)
	}

	data, err = os.ReadFile(filepath.Join(dir, "run.json"))
	if err != nil {
		t.Fatal(err)
	}
	var m RunManifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m.RunID != "abc" || m.Seed != 9 {
		t.Errorf("manifest = %+v", m)
	}
}
