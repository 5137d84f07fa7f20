package systems

import (
	"log/slog"
	"math"
	"testing"

	"github.com/pthm-cable/steppe/components"
	"github.com/pthm-cable/steppe/population"
)

// scriptRNG replays fixed draws, then returns the fallbacks.
type scriptRNG struct {
	floats []float64
	ints   []int
	def    float64
}

func (r *scriptRNG) Float64() float64 {
	if len(r.floats) == 0 {
		return r.def
	}
	f := r.floats[0]
	r.floats = r.floats[1:]
	return f
}

func (r *scriptRNG) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	i := r.ints[0]
	r.ints = r.ints[1:]
	return min(i, n-1)
}

// flatGroup converts any precipitation to the given resource index.
func flatGroup(name string, index float64) population.GroupParams {
	return population.GroupParams{
		Name:       name,
		MinResReq:  1,
		MaxDensity: 1,
		MaxStretch: 2,
		SlowRate:   0.05,
		UseMe:      true,
		StartYr:    1,
		PPTIntcpt:  [3]float64{index, index, index},
	}
}

func perennial(name string, g population.GroupID) population.SpeciesParams {
	return population.SpeciesParams{
		Name:            name,
		Group:           g,
		MaxAge:          10,
		IntrinRate:      0.5,
		MaxRate:         0.5,
		MaxSlow:         1,
		RelSeedlingSize: 0.1,
		MatureBiomass:   2,
		EstabProb:       1,
		MaxSeedEstab:    1,
		UseMe:           true,
	}
}

func annual(name string, g population.GroupID) population.SpeciesParams {
	sp := perennial(name, g)
	sp.MaxAge = 1
	sp.EstabProb = 0
	sp.MaxSeedEstab = 4
	sp.ViableYrs = 3
	sp.ExpDecay = 1
	return sp
}

func newStore(t *testing.T, groups []population.GroupParams, species []population.SpeciesParams) *population.Store {
	t.Helper()
	st, err := population.NewStore(groups, species, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return st
}

// setSizes overwrites a species' individual sizes and keeps the registry in
// step.
func setSizes(st *population.Store, id population.SpeciesID, sizes ...float64) {
	var delta float64
	for i, e := range st.Species[id].Individuals() {
		ind := st.Indiv(e)
		delta += sizes[i] - ind.RelSize
		ind.RelSize = sizes[i]
	}
	st.UpdateSpeciesSize(id, delta)
}

func normalEnv() *components.Environment {
	return &components.Environment{
		PPT:           340,
		WetDry:        components.PPTNorm,
		TempReduction: [3]float64{1, 1, 1},
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
