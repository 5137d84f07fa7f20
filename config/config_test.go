package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if len(cfg.Groups) == 0 || len(cfg.Species) == 0 {
		t.Fatal("defaults define no community")
	}
	for _, sp := range cfg.Species {
		if sp.MaxAge == 0 {
			t.Errorf("species %s: max_age 0 not expanded", sp.Name)
		}
	}
	idx, ok := cfg.Derived.SpeciesIndex["bogr"]
	if !ok {
		t.Fatal("bogr missing from species index")
	}
	if got, want := cfg.Species[idx].MaxAge, cfg.Model.Years+1; got != want {
		t.Errorf("bogr max_age = %d, want %d", got, want)
	}
}

func TestSetYears(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.SetYears(250)
	if cfg.Model.Years != 250 {
		t.Errorf("years = %d, want 250", cfg.Model.Years)
	}
	for _, sp := range cfg.Species {
		switch {
		case cfg.Derived.LongLived[sp.Name] && sp.MaxAge != 251:
			t.Errorf("long-lived %s: max_age = %d, want 251", sp.Name, sp.MaxAge)
		case !cfg.Derived.LongLived[sp.Name] && sp.MaxAge > 250:
			t.Errorf("%s: explicit max_age changed to %d", sp.Name, sp.MaxAge)
		}
	}
	if !cfg.Derived.LongLived["bogr"] {
		t.Error("bogr should be long-lived in the defaults")
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	data := "model:\n  years: 7\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Model.Years != 7 {
		t.Errorf("years = %d, want 7", cfg.Model.Years)
	}
	if cfg.Model.Iterations != 20 {
		t.Errorf("iterations = %d, want default 20", cfg.Model.Iterations)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "misspelled group",
			yaml: `
groups:
  - { name: shrub, min_res_req: 1, max_density: 1 }
species:
  - { name: arfr, group: shrb, max_age: 10, mature_biomass: 1, disturb_class: sensitive }
`,
			wantErr: `did you mean "shrub"`,
		},
		{
			name: "mixed annual and perennial",
			yaml: `
groups:
  - { name: g, min_res_req: 1, max_density: 1 }
species:
  - { name: a, group: g, max_age: 1, viable_yrs: 2, mature_biomass: 1, disturb_class: sensitive }
  - { name: p, group: g, max_age: 5, mature_biomass: 1, disturb_class: sensitive }
`,
			wantErr: "mixes annuals and perennials",
		},
		{
			name: "bad disturbance class",
			yaml: `
groups:
  - { name: g, min_res_req: 1, max_density: 1 }
species:
  - { name: p, group: g, max_age: 5, mature_biomass: 1, disturb_class: sensitiv }
`,
			wantErr: `did you mean "sensitive"`,
		},
		{
			name: "annual without seedbank",
			yaml: `
groups:
  - { name: g, min_res_req: 1, max_density: 1 }
species:
  - { name: a, group: g, max_age: 1, mature_biomass: 1, disturb_class: sensitive }
`,
			wantErr: "viable_yrs",
		},
		{
			name: "too many species",
			yaml: `
groups:
  - { name: g, min_res_req: 1, max_density: 1 }
species:
` + strings.Repeat("  - { name: s, group: g, max_age: 5, mature_biomass: 1, disturb_class: sensitive }\n", 11),
			wantErr: "capacity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("Parse() error = nil, want %q", tt.wantErr)
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Parse() error %v does not wrap ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseClasses(t *testing.T) {
	if _, err := ParseTempClass("warm"); err != nil {
		t.Errorf("ParseTempClass(warm) error: %v", err)
	}
	if _, err := ParseTempClass("hot"); err == nil {
		t.Error("ParseTempClass(hot) error = nil, want error")
	}
	if c, err := ParseDisturbClass("VERY_INSENSITIVE"); err != nil || c != 3 {
		t.Errorf("ParseDisturbClass(VERY_INSENSITIVE) = %v, %v", c, err)
	}
}

func TestSpeciesByName(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	i, err := cfg.SpeciesByName("bogr")
	if err != nil || cfg.Species[i].Name != "bogr" {
		t.Fatalf("SpeciesByName(bogr) = %d, %v", i, err)
	}
	_, err = cfg.SpeciesByName("bogrr")
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	if !strings.Contains(err.Error(), `did you mean "bogr"`) {
		t.Errorf("missing suggestion in %q", err)
	}
}
