package systems

import (
	"github.com/pthm-cable/steppe/approx"
	"github.com/pthm-cable/steppe/components"
	"github.com/pthm-cable/steppe/population"
)

// Establish adds new perennial individuals and sets the annual groups'
// regeneration gate for the year. Nothing establishes on a disturbed plot.
func Establish(st *population.Store, plot *components.Plot, rng RNG) {
	if plot.Disturbed > 0 {
		for _, g := range st.Groups {
			g.RegenOK = false
		}
		return
	}

	year := st.Year
	for _, g := range st.Groups {
		if !g.UseMe || g.Extirpated {
			if g.IsAnnual() {
				g.RegenOK = false
			}
			continue
		}
		switch {
		case year < g.StartYr:
			if g.IsAnnual() {
				g.RegenOK = false
			}
		case g.IsAnnual():
			g.RegenOK = !scheduledKill(g, year, rng)
		default:
			for _, id := range g.Members {
				sp := st.Species[id]
				if !sp.UseMe {
					continue
				}
				if n := NumEstablish(g, sp, rng); n > 0 {
					st.AddIndividuals(id, n)
					st.RecordEstabs(id, n)
				}
			}
		}
	}
}

// NumEstablish draws how many seedlings of a species establish this year.
func NumEstablish(g *population.Group, sp *population.Species, rng RNG) int {
	if !g.EstAnnually && !(rng.Float64() <= sp.EstabProb) {
		return 0
	}
	if sp.MaxSeedEstab <= 1 {
		return 1
	}
	return uniformRange(rng, 1, sp.MaxSeedEstab)
}

// scheduledKill evaluates a group's kill frequency for the year: values
// below 1 are a per-year probability, larger values a period in years
// counted from the start year.
func scheduledKill(g *population.Group, year int, rng RNG) bool {
	if !approx.GT(g.KillFreq, 0) {
		return false
	}
	if approx.LT(g.KillFreq, 1) {
		return rng.Float64() <= g.KillFreq
	}
	return (year-g.StartYr)%int(g.KillFreq) == 0
}
