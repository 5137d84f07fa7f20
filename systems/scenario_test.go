package systems

import (
	"testing"

	"github.com/pthm-cable/steppe/components"
	"github.com/pthm-cable/steppe/population"
)

// One non-clonal perennial at PR 0.5 for five years grows every year and
// never suffers stress mortality.
func TestScenarioSteadyGrowth(t *testing.T) {
	sp := perennial("a", 0)
	sp.MaxAge = 5
	st := newStore(t, []population.GroupParams{flatGroup("g", 1)}, []population.SpeciesParams{sp})
	st.Reset()
	st.AddIndividuals(0, 1)
	e := st.Species[0].Individuals()[0]
	g := st.Groups[0]
	env, plot := normalEnv(), &components.Plot{}
	rng := &scriptRNG{def: 0.99}

	prev := st.Indiv(e).RelSize
	for year := 1; year <= 5; year++ {
		st.Year = year
		g.PR = 0.5
		st.Indiv(e).PR = 0.5
		Grow(st, env, rng)
		if err := Mortality(st, env, plot, rng); err != nil {
			t.Fatal(err)
		}
		if !st.Alive(e) {
			t.Fatalf("year %d: individual died", year)
		}
		size := st.Indiv(e).RelSize
		if size <= prev || size >= 1 {
			t.Fatalf("year %d: size %v after %v", year, size, prev)
		}
		prev = size
		st.IncrAges()
	}
	if g.YrsNegPR != 0 {
		t.Errorf("YrsNegPR = %d, want 0", g.YrsNegPR)
	}
	for _, k := range st.Species[0].Kills {
		if k != 0 {
			t.Errorf("kills recorded: %v", st.Species[0].Kills)
		}
	}
}

// An annual whose regeneration is suppressed for two years has no size in
// those years and comes back in the third from its aged seedbank.
func TestScenarioAnnualSuppression(t *testing.T) {
	g := flatGroup("ann", 1)
	// A kill frequency of 1 is a period of one year: every year is a kill
	// year and regeneration never resumes. A frequency below 1 is a per-year
	// probability, so the scripted draws suppress years 1 and 2 and spare
	// year 3.
	g.KillFreq = 0.5
	st := newStore(t, []population.GroupParams{g}, []population.SpeciesParams{annual("a", 0)})
	st.Reset()
	sp := st.Species[0]
	sp.SeedProd[0] = 3

	// per year: establishment kill draw, propagule draw, end-of-year kill draw
	rng := &scriptRNG{floats: []float64{
		0.1, 0.9, 0.9,
		0.1, 0.9, 0.9,
		0.9, 0.9, 0.9,
	}}
	env, plot := normalEnv(), &components.Plot{}
	var p Partitioner

	for year := 1; year <= 3; year++ {
		st.Year = year
		Establish(st, plot, rng)
		p.Partition(st, env, rng)
		size := sp.RelSize
		EndOfYear(st, rng)

		if year < 3 {
			if st.Groups[0].RegenOK || size != 0 {
				t.Errorf("year %d: regen %v size %v, want suppressed", year, st.Groups[0].RegenOK, size)
			}
			continue
		}
		if !st.Groups[0].RegenOK || size <= 0 {
			t.Errorf("year 3: regen %v size %v, want recovery", st.Groups[0].RegenOK, size)
		}
	}
	if sp.RelSize != 0 {
		t.Errorf("annual size %v after end of year, want 0", sp.RelSize)
	}
}
