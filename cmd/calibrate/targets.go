package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
)

// Target is an observed mean biomass for one species.
type Target struct {
	Species string  `csv:"species"`
	Biomass float64 `csv:"biomass"`
}

// ParseTargets parses "name=biomass,name=biomass".
func ParseTargets(s string) ([]Target, error) {
	var targets []Target
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, val, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("target %q: want name=biomass", part)
		}
		b, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", part, err)
		}
		targets = append(targets, Target{Species: strings.TrimSpace(name), Biomass: b})
	}
	if err := checkTargets(targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// LoadTargets reads a species,biomass CSV file.
func LoadTargets(path string) ([]Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening targets: %w", err)
	}
	defer f.Close()

	var targets []Target
	if err := gocsv.UnmarshalFile(f, &targets); err != nil {
		return nil, fmt.Errorf("parsing targets %s: %w", path, err)
	}
	if err := checkTargets(targets); err != nil {
		return nil, err
	}
	return targets, nil
}

func checkTargets(targets []Target) error {
	if len(targets) == 0 {
		return fmt.Errorf("no targets given")
	}
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if seen[t.Species] {
			return fmt.Errorf("duplicate target for %q", t.Species)
		}
		seen[t.Species] = true
		if t.Biomass <= 0 {
			return fmt.Errorf("target %q: biomass must be positive", t.Species)
		}
	}
	return nil
}
