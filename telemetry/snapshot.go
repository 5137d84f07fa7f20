package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/steppe/components"
	"github.com/pthm-cable/steppe/population"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the plot state of one iteration at the end of a year.
type Snapshot struct {
	Version int    `json:"version"`
	Seed    uint64 `json:"seed"`
	Iter    int    `json:"iter"`
	Year    int    `json:"year"`

	Environment components.Environment `json:"environment"`
	Plot        components.Plot        `json:"plot"`

	Groups  []GroupState   `json:"groups"`
	Species []SpeciesState `json:"species"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// GroupState is one group's per-plot state.
type GroupState struct {
	Name       string  `json:"name"`
	RelSize    float64 `json:"relsize"`
	PR         float64 `json:"pr"`
	ResAvail   float64 `json:"res_avail"`
	ResExtra   float64 `json:"res_extra"`
	YrsNegPR   int     `json:"yrs_neg_pr"`
	Extirpated bool    `json:"extirpated,omitempty"`
}

// SpeciesState is one species and its individuals.
type SpeciesState struct {
	Name        string            `json:"name"`
	Group       string            `json:"group"`
	RelSize     float64           `json:"relsize"`
	ExtraGrowth float64           `json:"extra_growth,omitempty"`
	SeedProd    []float64         `json:"seed_prod,omitempty"`
	Individuals []IndividualState `json:"individuals,omitempty"`
}

// IndividualState is one plant.
type IndividualState struct {
	Age        int     `json:"age"`
	RelSize    float64 `json:"relsize"`
	GrowthRate float64 `json:"growth_rate"`
	SlowYrs    int     `json:"slow_yrs,omitempty"`
	PR         float64 `json:"pr"`
}

// TakeSnapshot captures the enabled groups and species of st.
func TakeSnapshot(st *population.Store, env *components.Environment, plot *components.Plot, seed uint64) *Snapshot {
	snap := &Snapshot{
		Version:     SnapshotVersion,
		Seed:        seed,
		Iter:        st.Iter,
		Year:        st.Year,
		Environment: *env,
		Plot:        *plot,
	}
	for _, g := range st.Groups {
		if !g.UseMe {
			continue
		}
		snap.Groups = append(snap.Groups, GroupState{
			Name:       g.Name,
			RelSize:    g.RelSize,
			PR:         g.PR,
			ResAvail:   g.ResAvail,
			ResExtra:   g.ResExtra,
			YrsNegPR:   g.YrsNegPR,
			Extirpated: g.Extirpated,
		})
	}
	for _, sp := range st.Species {
		if !sp.UseMe {
			continue
		}
		ss := SpeciesState{
			Name:        sp.Name,
			Group:       st.Groups[sp.Group].Name,
			RelSize:     sp.RelSize,
			ExtraGrowth: sp.ExtraGrowth,
			SeedProd:    append([]float64(nil), sp.SeedProd...),
		}
		for _, e := range sp.Individuals() {
			ind := st.Indiv(e)
			ss.Individuals = append(ss.Individuals, IndividualState{
				Age:        ind.Age,
				RelSize:    ind.RelSize,
				GrowthRate: ind.GrowthRate,
				SlowYrs:    ind.SlowYrs,
				PR:         ind.PR,
			})
		}
		snap.Species = append(snap.Species, ss)
	}
	return snap
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d_%d", snapshot.Iter, snapshot.Year)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name += "_" + sanitized
	}
	path := filepath.Join(dir, name+".json")

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}
	return &snapshot, nil
}
