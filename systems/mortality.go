package systems

import (
	"errors"
	"fmt"
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/steppe/approx"
	"github.com/pthm-cable/steppe/components"
	"github.com/pthm-cable/steppe/population"
)

// Mortality constants from the Coffin & Lauenroth (1990) demographic model.
const (
	SlowMortProb           = 0.368 // per-year death probability once growth stays slow
	StretchKillCoeff       = 0.04  // quota-kill probability is this times years stretched squared
	StretchReductionFactor = 0.8   // damping of the proportional clonal reduction
	ClonalQuotaFraction    = 0.9   // share of clonal individuals killed by the quota branch
)

// ErrResourceOvercommit reports a stretched-clonal reduction factor above 1.
var ErrResourceOvercommit = errors.New("resource overcommitment")

// Mortality applies the growing-season death rules to every perennial group.
// Only a resource overcommitment is an error.
func Mortality(st *population.Store, env *components.Environment, plot *components.Plot, rng RNG) error {
	for _, g := range st.Groups {
		if !g.UseMe || g.IsAnnual() || g.EstCount() == 0 {
			continue
		}
		if approx.GT(g.PR, 1) {
			g.YrsNegPR++
			if g.YrsNegPR >= g.MaxStretch {
				if err := noResources(st, g, rng); err != nil {
					return err
				}
			}
		} else {
			g.YrsNegPR = 0
		}

		for _, id := range append([]population.SpeciesID(nil), g.EstSpp...) {
			sp := st.Species[id]
			if sp.EstCount == 0 {
				continue
			}
			if g.UseMort {
				ageIndependent(st, sp, rng)
				slowGrowth(st, g, sp, rng)
			}
			if g.Succulent && env.WetDry == components.PPTWet && rng.Float64() <= env.SucculentProbDeath {
				succulents(st, sp, env.SucculentReduction)
			}
			switch plot.Disturbance {
			case components.FecalPat:
				fecalPat(st, sp, plot.PatRemoved)
			case components.AntMound:
				antMound(st, sp)
			case components.Burrow:
				st.KillSpecies(id)
			}
		}
	}
	return nil
}

// killAll destroys a collected kill list.
func killAll(st *population.Store, kills []ecs.Entity) {
	for _, e := range kills {
		st.KillComplete(e)
	}
}

// AgeMortProb is the probability that an individual of the given age dies
// this year, independent of its growth.
func AgeMortProb(age, maxAge int, cohortSurv float64) float64 {
	a := float64(age) / float64(maxAge)
	return math.Pow(float64(maxAge), a-1) - a*cohortSurv
}

func ageIndependent(st *population.Store, sp *population.Species, rng RNG) {
	if sp.MaxAge <= 1 {
		return
	}
	var kills []ecs.Entity
	for _, e := range sp.Individuals() {
		ind := st.Indiv(e)
		if rng.Float64() <= AgeMortProb(ind.Age, sp.MaxAge, sp.CohortSurv) {
			kills = append(kills, e)
		}
	}
	killAll(st, kills)
}

// slowGrowth counts consecutive slow years per individual. Once the count
// exceeds the species maximum each further slow year may kill it; a normal
// year decrements the count.
func slowGrowth(st *population.Store, g *population.Group, sp *population.Species, rng RNG) {
	slowRate := g.SlowRate * sp.MaxRate
	var kills []ecs.Entity
	for _, e := range sp.Individuals() {
		ind := st.Indiv(e)
		if ind.Age == 1 {
			continue
		}
		if ind.GrowthRate <= slowRate {
			ind.SlowYrs++
			if ind.SlowYrs > sp.MaxSlow && rng.Float64() <= SlowMortProb {
				kills = append(kills, e)
			}
		} else {
			ind.SlowYrs = max(ind.SlowYrs-1, 0)
		}
	}
	killAll(st, kills)
}

// succulents shrinks each individual by the wet-year reduction, killing
// those no larger than it.
func succulents(st *population.Store, sp *population.Species, reduction float64) {
	var kills []ecs.Entity
	for _, e := range sp.Individuals() {
		if !st.KillPartial(components.MortSlow, e, reduction) {
			kills = append(kills, e)
		}
	}
	killAll(st, kills)
}

// fecalPat kills seedlings and very sensitive plants where a pat was
// removed; an intact pat smothers every sensitive species.
func fecalPat(st *population.Store, sp *population.Species, removed bool) {
	if removed {
		var kills []ecs.Entity
		for _, e := range sp.Individuals() {
			if st.Indiv(e).Age == 1 || sp.DisturbClass == components.VerySensitive {
				kills = append(kills, e)
			}
		}
		killAll(st, kills)
		return
	}
	if sp.DisturbClass <= components.Sensitive {
		st.KillSpecies(sp.ID)
	}
}

// antMound kills everything but very insensitive species.
func antMound(st *population.Store, sp *population.Species) {
	if sp.DisturbClass != components.VeryInsensitive {
		st.KillSpecies(sp.ID)
	}
}

// noResources removes plant-space until it balances resource-space: a quota
// of n(1-1/PR) individuals, largest first, then stretched-clonal pressure on
// the survivors.
func noResources(st *population.Store, g *population.Group, rng RNG) error {
	list := st.GroupIndividuals(g.ID, population.Descending)
	nk := QuotaKills(len(list), g.PR)
	killAll(st, list[:nk])
	return stretchedClonal(st, g, list[nk:], rng)
}

// QuotaKills is the number of individuals removed by resource stress.
func QuotaKills(n int, pr float64) int {
	nk := int(float64(n)*(1-1/pr) + 0.5)
	return min(max(nk, 0), n)
}

// StretchKillProb is the probability that the clonal quota branch fires
// after y consecutive stretched years.
func StretchKillProb(y int) float64 {
	return math.Min(1, StretchKillCoeff*float64(y*y))
}

func stretchedClonal(st *population.Store, g *population.Group, survivors []ecs.Entity, rng RNG) error {
	var clonal []ecs.Entity
	for _, e := range survivors {
		if st.Species[st.Indiv(e).Species].Clonal {
			clonal = append(clonal, e)
		}
	}
	if len(clonal) == 0 {
		return nil
	}
	y := g.YrsNegPR
	if y < g.MaxStretch {
		return nil
	}

	if rng.Float64() <= StretchKillProb(y) {
		nk := int(math.Floor(float64(len(clonal)) * ClonalQuotaFraction))
		killAll(st, clonal[:min(nk, len(clonal))])
		return nil
	}

	totalReduction := 1 / g.PR
	if totalReduction > 1 {
		return fmt.Errorf("%w: group %q reduction factor %.3f (PR %.3f)", ErrResourceOvercommit, g.Name, totalReduction, g.PR)
	}
	var totalSize float64
	for _, e := range clonal {
		totalSize += st.Indiv(e).RelSize
	}
	if approx.Zero(totalSize) {
		return nil
	}
	totalReduction *= StretchReductionFactor
	for _, e := range clonal {
		ind := st.Indiv(e)
		st.KillPartial(components.MortNoResources, e, ind.RelSize/totalSize*totalReduction)
	}
	return nil
}

// EndOfYear applies scheduled kills and extirpation, clears extra growth and
// removes all annuals.
func EndOfYear(st *population.Store, rng RNG) {
	year := st.Year
	for _, g := range st.Groups {
		if !g.UseMe {
			continue
		}
		if scheduledKill(g, year, rng) {
			g.ScheduleKill(year)
		}
		switch {
		case g.Extirp > 0 && year == g.Extirp:
			st.Extirpate(g.ID)
		case year == g.KillYear():
			st.KillGroup(g.ID)
		}
	}

	for _, sp := range st.Species {
		sp.ExtraGrowth = 0
	}
	for _, g := range st.Groups {
		if g.IsAnnual() {
			for _, id := range append([]population.SpeciesID(nil), g.EstSpp...) {
				st.KillSpecies(id)
			}
		}
	}
}
