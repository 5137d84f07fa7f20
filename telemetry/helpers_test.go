package telemetry

import (
	"log/slog"
	"math"
	"testing"

	"github.com/pthm-cable/steppe/population"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// testStore builds a one-group, two-species plot; the second species is
// disabled.
func testStore(t *testing.T) *population.Store {
	t.Helper()
	groups := []population.GroupParams{{
		Name: "grass", MinResReq: 1, MaxDensity: 1, MaxStretch: 2,
		UseMort: true, UseMe: true, StartYr: 1,
	}}
	species := []population.SpeciesParams{
		{Name: "bouteloua", Group: 0, MaxAge: 5, RelSeedlingSize: 0.1, MatureBiomass: 2, UseMe: true},
		{Name: "aristida", Group: 0, MaxAge: 5, RelSeedlingSize: 0.1, MatureBiomass: 2},
	}
	st, err := population.NewStore(groups, species, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	st.Reset()
	return st
}
