package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/pthm-cable/steppe/components"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Capacity limits mirrored from the population store.
const (
	maxGroups      = 10
	maxSppPerGroup = 10
)

var disturbClasses = map[string]components.DisturbClass{
	"very_sensitive":   components.VerySensitive,
	"sensitive":        components.Sensitive,
	"insensitive":      components.Insensitive,
	"very_insensitive": components.VeryInsensitive,
}

var tempClasses = map[string]components.TempClass{
	"":     components.NoSeason,
	"none": components.NoSeason,
	"cool": components.CoolSeason,
	"warm": components.WarmSeason,
}

// ParseDisturbClass maps a disturbance class name to its value.
func ParseDisturbClass(name string) (components.DisturbClass, error) {
	if c, ok := disturbClasses[strings.ToLower(name)]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("%w: disturbance class %q%s", ErrInvalid, name, suggest(name, keys(disturbClasses)))
}

// ParseTempClass maps a temperature class name to its value.
func ParseTempClass(name string) (components.TempClass, error) {
	if c, ok := tempClasses[strings.ToLower(name)]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("%w: temperature class %q%s", ErrInvalid, name, suggest(name, keys(tempClasses)))
}

// Validate checks capacity limits and cross references. It reports the first
// problem found.
func (c *Config) Validate() error {
	if c.Model.Years < 1 || c.Model.Iterations < 1 {
		return fmt.Errorf("%w: years and iterations must be positive", ErrInvalid)
	}
	if len(c.Groups) > maxGroups {
		return fmt.Errorf("%w: %d groups exceeds capacity %d", ErrInvalid, len(c.Groups), maxGroups)
	}
	ppt := c.Environment.PPT
	if ppt.Min > ppt.Avg || ppt.Avg > ppt.Max {
		return fmt.Errorf("%w: ppt must satisfy min <= avg <= max", ErrInvalid)
	}
	temp := c.Environment.Temp
	if temp.Min > temp.Avg || temp.Avg > temp.Max {
		return fmt.Errorf("%w: temp must satisfy min <= avg <= max", ErrInvalid)
	}

	groupNames := make([]string, 0, len(c.Groups))
	seen := make(map[string]bool, len(c.Groups))
	for _, g := range c.Groups {
		if seen[g.Name] {
			return fmt.Errorf("%w: duplicate group %q", ErrInvalid, g.Name)
		}
		seen[g.Name] = true
		groupNames = append(groupNames, g.Name)
		if g.MaxDensity <= 0 {
			return fmt.Errorf("%w: group %q: max_density must be positive", ErrInvalid, g.Name)
		}
		if g.MinResReq <= 0 {
			return fmt.Errorf("%w: group %q: min_res_req must be positive", ErrInvalid, g.Name)
		}
		if n := c.Derived.GroupSpecies[g.Name]; n > maxSppPerGroup {
			return fmt.Errorf("%w: group %q has %d species, capacity %d", ErrInvalid, g.Name, n, maxSppPerGroup)
		}
	}

	ages := make(map[string][2]int) // group -> min, max species age
	for _, sp := range c.Species {
		if _, ok := c.Derived.GroupIndex[sp.Group]; !ok {
			return fmt.Errorf("%w: species %q: unknown group %q%s", ErrInvalid, sp.Name, sp.Group, suggest(sp.Group, groupNames))
		}
		if _, err := ParseDisturbClass(sp.DisturbClass); err != nil {
			return fmt.Errorf("species %q: %w", sp.Name, err)
		}
		if _, err := ParseTempClass(sp.TempClass); err != nil {
			return fmt.Errorf("species %q: %w", sp.Name, err)
		}
		if sp.MatureBiomass <= 0 {
			return fmt.Errorf("%w: species %q: mature_biomass must be positive", ErrInvalid, sp.Name)
		}
		if sp.MaxAge == 1 && sp.ViableYrs < 1 {
			return fmt.Errorf("%w: annual species %q needs viable_yrs >= 1", ErrInvalid, sp.Name)
		}
		r, ok := ages[sp.Group]
		if !ok {
			r = [2]int{sp.MaxAge, sp.MaxAge}
		}
		r[0], r[1] = min(r[0], sp.MaxAge), max(r[1], sp.MaxAge)
		ages[sp.Group] = r
	}
	for name, r := range ages {
		if r[0] == 1 && r[1] != 1 {
			return fmt.Errorf("%w: group %q mixes annuals and perennials", ErrInvalid, name)
		}
	}
	return nil
}

// suggest returns a " (did you mean ...?)" hint for the closest candidate.
func suggest(name string, candidates []string) string {
	best, bestDist := "", -1
	for _, c := range candidates {
		if c == "" {
			continue
		}
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(c))
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	if bestDist < 0 || bestDist > max(2, len(name)/3) {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", best)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SpeciesByName returns the registry index of a configured species.
func (c *Config) SpeciesByName(name string) (int, error) {
	if i, ok := c.Derived.SpeciesIndex[name]; ok {
		return i, nil
	}
	names := make([]string, 0, len(c.Species))
	for _, sp := range c.Species {
		names = append(names, sp.Name)
	}
	return -1, fmt.Errorf("%w: unknown species %q%s", ErrInvalid, name, suggest(name, names))
}
