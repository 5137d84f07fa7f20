package systems

import (
	"math"

	"github.com/pthm-cable/steppe/approx"
	"github.com/pthm-cable/steppe/components"
	"github.com/pthm-cable/steppe/population"
)

// OptSlope is the growth penalty per unit PR below 1.
const OptSlope = 0.05

// ResourceModifier scales growth by resource stress. It never increases with
// PR and is further divided by PR in scarce years.
func ResourceModifier(pr float64) float64 {
	gmod := 1 - OptSlope*math.Min(1, pr)
	if approx.GT(pr, 1) {
		gmod /= pr
	}
	return gmod
}

// GrowthIncrement is the logistic size gain of a normally growing individual.
// It also returns the rate recorded for slow-growth mortality.
func GrowthIncrement(relsize, pr, tempMod, intrinRate float64) (growth, rate float64) {
	rate = ResourceModifier(pr) * tempMod * intrinRate * (1 - relsize)
	return rate * relsize, rate
}

// Grow advances every perennial individual by one growing season. Succulent
// groups do not grow in wet years.
func Grow(st *population.Store, env *components.Environment, rng RNG) {
	for _, g := range st.Groups {
		if !g.UseMe || g.IsAnnual() || g.EstCount() == 0 {
			continue
		}
		if g.Succulent && env.WetDry == components.PPTWet {
			continue
		}
		for _, id := range append([]population.SpeciesID(nil), g.EstSpp...) {
			sp := st.Species[id]
			tgmod := env.TempMod(sp.TempClass)
			var sppGrowth float64
			for _, e := range sp.Individuals() {
				ind := st.Indiv(e)
				var growth, rate float64
				if ind.Killed && sp.Clonal && rng.Float64() < ind.ProbVegGrow {
					growth = sp.RelSeedlingSize * float64(uniformRange(rng, 1, max(sp.MaxVegUnits, 1)))
					rate = growth / ind.RelSize
					ind.Killed = false
				} else {
					growth, rate = GrowthIncrement(ind.RelSize, ind.PR, tgmod, sp.IntrinRate)
				}
				ind.RelSize += growth
				ind.GrowthRate = rate
				sppGrowth += growth
			}
			st.UpdateSpeciesSize(id, sppGrowth)
		}
		extraGrowth(st, g, env)
	}
}

// extraGrowth converts an individual's extra resource into superfluous
// growth that lasts only until the end of the year.
func extraGrowth(st *population.Store, g *population.Group, env *components.Environment) {
	if approx.Zero(g.XGrow) || !g.UseExtraRes {
		return
	}
	for _, id := range g.EstSpp {
		sp := st.Species[id]
		perGram := 1 / sp.MatureBiomass
		for _, e := range sp.Individuals() {
			ind := st.Indiv(e)
			extra := ind.ResExtra * g.MinResReq * env.PPT * g.XGrow
			sp.ExtraGrowth += extra * perGram
		}
	}
}
