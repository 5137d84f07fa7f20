package systems

import (
	"testing"

	"github.com/pthm-cable/steppe/components"
	"github.com/pthm-cable/steppe/population"
)

func TestNumEstablish(t *testing.T) {
	tests := []struct {
		name        string
		estAnnually bool
		prob        float64
		maxSeed     int
		rng         *scriptRNG
		want        int
	}{
		{"draw above probability", false, 0.3, 1, &scriptRNG{floats: []float64{0.5}}, 0},
		{"draw at probability", false, 0.3, 1, &scriptRNG{floats: []float64{0.3}}, 1},
		{"annual establishment ignores probability", true, 0, 1, &scriptRNG{floats: []float64{0.99}}, 1},
		{"uniform count", false, 1, 4, &scriptRNG{floats: []float64{0}, ints: []int{2}}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &population.Group{GroupParams: population.GroupParams{EstAnnually: tt.estAnnually}}
			sp := &population.Species{SpeciesParams: population.SpeciesParams{EstabProb: tt.prob, MaxSeedEstab: tt.maxSeed}}
			if got := NumEstablish(g, sp, tt.rng); got != tt.want {
				t.Errorf("NumEstablish = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEstablishAddsPerennials(t *testing.T) {
	st := newStore(t, []population.GroupParams{flatGroup("g", 1)}, []population.SpeciesParams{perennial("a", 0)})
	st.Year = 1

	Establish(st, &components.Plot{}, &scriptRNG{def: 0})

	sp := st.Species[0]
	if sp.EstCount != 1 || sp.Estabs != 1 || st.Groups[0].Estabs != 1 {
		t.Errorf("EstCount %d Estabs %d group Estabs %d, want 1 each", sp.EstCount, sp.Estabs, st.Groups[0].Estabs)
	}
}

func TestEstablishBlockedByDisturbance(t *testing.T) {
	st := newStore(t,
		[]population.GroupParams{flatGroup("g", 1), flatGroup("ann", 1)},
		[]population.SpeciesParams{perennial("a", 0), annual("b", 1)})
	st.Year = 1
	st.Groups[1].RegenOK = true

	Establish(st, &components.Plot{Disturbance: components.AntMound, Disturbed: 3}, &scriptRNG{def: 0})

	if st.Count() != 0 {
		t.Errorf("%d individuals established on a disturbed plot", st.Count())
	}
	if st.Groups[1].RegenOK {
		t.Error("annual regeneration should be blocked on a disturbed plot")
	}
}

func TestEstablishBeforeStartYear(t *testing.T) {
	g := flatGroup("late", 1)
	g.StartYr = 5
	ann := flatGroup("ann", 1)
	ann.StartYr = 5
	st := newStore(t, []population.GroupParams{g, ann}, []population.SpeciesParams{perennial("a", 0), annual("b", 1)})
	st.Year = 4
	st.Groups[1].RegenOK = true

	Establish(st, &components.Plot{}, &scriptRNG{def: 0})
	if st.Count() != 0 || st.Groups[1].RegenOK {
		t.Errorf("establishment before start year: count %d regen %v", st.Count(), st.Groups[1].RegenOK)
	}

	st.Year = 5
	Establish(st, &components.Plot{}, &scriptRNG{def: 0})
	if st.Count() != 1 || !st.Groups[1].RegenOK {
		t.Errorf("establishment at start year: count %d regen %v", st.Count(), st.Groups[1].RegenOK)
	}
}

func TestEstablishSkipsExtirpated(t *testing.T) {
	st := newStore(t, []population.GroupParams{flatGroup("g", 1)}, []population.SpeciesParams{perennial("a", 0)})
	st.Year = 1
	st.Extirpate(0)

	g := st.Groups[0]
	g.EstAnnually = true
	Establish(st, &components.Plot{}, &scriptRNG{def: 0})
	if st.Count() != 0 {
		t.Error("extirpated group established new individuals")
	}
}

func TestScheduledKill(t *testing.T) {
	tests := []struct {
		name  string
		freq  float64
		start int
		year  int
		draw  float64
		want  bool
	}{
		{"disabled", 0, 1, 3, 0, false},
		{"probabilistic hit", 0.3, 1, 3, 0.2, true},
		{"probabilistic miss", 0.3, 1, 3, 0.4, false},
		{"periodic hit", 5, 2, 12, 0.99, true},
		{"periodic miss", 5, 2, 13, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &population.Group{GroupParams: population.GroupParams{KillFreq: tt.freq, StartYr: tt.start}}
			if got := scheduledKill(g, tt.year, &scriptRNG{floats: []float64{tt.draw}}); got != tt.want {
				t.Errorf("scheduledKill = %v, want %v", got, tt.want)
			}
		})
	}
}
