package telemetry

import (
	"github.com/pthm-cable/steppe/components"
	"github.com/pthm-cable/steppe/population"
)

type entity struct {
	kind   string
	name   string
	id     int
	maxAge int
}

// Collector accumulates per-year and per-iteration samples of a run.
// Storage is preallocated per iteration, so RecordYear and RecordIteration
// may be called concurrently for distinct iterations.
type Collector struct {
	years, iters int
	groups       []entity
	species      []entity

	// [year-1][entity][iter]
	gBiomass, gRelSize, gPR     [][][]float64
	sBiomass, sRelSize, sIndivs [][][]float64

	// [year-1][iter]
	ppt, temp [][]float64
	disturb   [][]components.DisturbEvent

	// [entity][age-1][iter]
	gKills, sKills [][][]float64
	// [entity][iter]
	gEstabs, sEstabs [][]float64
}

// NewCollector sizes a collector for the enabled groups and species of st.
func NewCollector(st *population.Store, years, iterations int) *Collector {
	c := &Collector{years: years, iters: iterations}
	for _, g := range st.Groups {
		if g.UseMe {
			c.groups = append(c.groups, entity{KindGroup, g.Name, int(g.ID), g.MaxAge})
		}
	}
	for _, sp := range st.Species {
		if sp.UseMe {
			c.species = append(c.species, entity{KindSpecies, sp.Name, int(sp.ID), sp.MaxAge})
		}
	}

	grid := func(n int) [][][]float64 {
		out := make([][][]float64, years)
		for y := range out {
			out[y] = make([][]float64, n)
			for i := range out[y] {
				out[y][i] = make([]float64, iterations)
			}
		}
		return out
	}
	c.gBiomass, c.gRelSize, c.gPR = grid(len(c.groups)), grid(len(c.groups)), grid(len(c.groups))
	c.sBiomass, c.sRelSize, c.sIndivs = grid(len(c.species)), grid(len(c.species)), grid(len(c.species))

	c.ppt = make([][]float64, years)
	c.temp = make([][]float64, years)
	c.disturb = make([][]components.DisturbEvent, years)
	for y := range years {
		c.ppt[y] = make([]float64, iterations)
		c.temp[y] = make([]float64, iterations)
		c.disturb[y] = make([]components.DisturbEvent, iterations)
	}

	ages := func(es []entity) [][][]float64 {
		out := make([][][]float64, len(es))
		for i, e := range es {
			out[i] = make([][]float64, max(e.maxAge, 1))
			for a := range out[i] {
				out[i][a] = make([]float64, iterations)
			}
		}
		return out
	}
	c.gKills, c.sKills = ages(c.groups), ages(c.species)

	c.gEstabs = make([][]float64, len(c.groups))
	for i := range c.gEstabs {
		c.gEstabs[i] = make([]float64, iterations)
	}
	c.sEstabs = make([][]float64, len(c.species))
	for i := range c.sEstabs {
		c.sEstabs[i] = make([]float64, iterations)
	}
	return c
}

// RecordYear samples the store for the current year. It is called before
// the end-of-year kills so annual biomass is still present.
func (c *Collector) RecordYear(iter int, st *population.Store, env *components.Environment, plot *components.Plot) {
	y := st.Year - 1
	if y < 0 || y >= c.years || iter < 0 || iter >= c.iters {
		return
	}
	c.ppt[y][iter] = env.PPT
	c.temp[y][iter] = env.Temp
	c.disturb[y][iter] = plot.Disturbance

	for i, e := range c.groups {
		g := st.Groups[e.id]
		c.gBiomass[y][i][iter] = st.GroupBiomass(g.ID)
		c.gRelSize[y][i][iter] = g.RelSize
		c.gPR[y][i][iter] = g.PR
	}
	for i, e := range c.species {
		sp := st.Species[e.id]
		c.sBiomass[y][i][iter] = sp.Biomass()
		c.sRelSize[y][i][iter] = sp.RelSize
		c.sIndivs[y][i][iter] = float64(sp.EstCount)
	}
}

// RecordIteration samples the kill histograms and establishment totals at
// the end of an iteration.
func (c *Collector) RecordIteration(iter int, st *population.Store) {
	if iter < 0 || iter >= c.iters {
		return
	}
	for i, e := range c.groups {
		g := st.Groups[e.id]
		for a, k := range g.Kills {
			if a < len(c.gKills[i]) {
				c.gKills[i][a][iter] = float64(k)
			}
		}
		c.gEstabs[i][iter] = float64(g.Estabs)
	}
	for i, e := range c.species {
		sp := st.Species[e.id]
		for a, k := range sp.Kills {
			if a < len(c.sKills[i]) {
				c.sKills[i][a][iter] = float64(k)
			}
		}
		c.sEstabs[i][iter] = float64(sp.Estabs)
	}
}

// Yearly returns every sampled row, ordered by iteration, year and entity.
func (c *Collector) Yearly() []YearlyRecord {
	rows := make([]YearlyRecord, 0, c.iters*c.years*(len(c.groups)+len(c.species)))
	for it := range c.iters {
		for y := range c.years {
			base := YearlyRecord{
				Iter:    it + 1,
				Year:    y + 1,
				PPT:     c.ppt[y][it],
				Temp:    c.temp[y][it],
				Disturb: c.disturb[y][it].String(),
			}
			for i, e := range c.groups {
				r := base
				r.Kind, r.Name = e.kind, e.name
				r.Biomass = c.gBiomass[y][i][it]
				r.RelSize = c.gRelSize[y][i][it]
				r.PR = c.gPR[y][i][it]
				rows = append(rows, r)
			}
			for i, e := range c.species {
				r := base
				r.Kind, r.Name = e.kind, e.name
				r.Biomass = c.sBiomass[y][i][it]
				r.RelSize = c.sRelSize[y][i][it]
				r.Indivs = int(c.sIndivs[y][i][it])
				rows = append(rows, r)
			}
		}
	}
	return rows
}

// Summary aggregates each entity-year over iterations.
func (c *Collector) Summary() []SummaryRecord {
	var rows []SummaryRecord
	for y := range c.years {
		pptMean, pptStd := MeanStd(c.ppt[y])
		tempMean, tempStd := MeanStd(c.temp[y])
		disturbed := 0
		for _, d := range c.disturb[y] {
			if d != components.NoDisturb {
				disturbed++
			}
		}
		base := SummaryRecord{
			Year:      y + 1,
			PPTMean:   pptMean,
			PPTStd:    pptStd,
			TempMean:  tempMean,
			TempStd:   tempStd,
			Disturbed: disturbed,
		}
		for i, e := range c.groups {
			r := base
			r.Kind, r.Name = e.kind, e.name
			r.BiomassMean, r.BiomassStd, r.BiomassP10, r.BiomassP90 = Describe(c.gBiomass[y][i])
			r.RelSizeMean, r.RelSizeStd = MeanStd(c.gRelSize[y][i])
			r.PRMean, r.PRStd = MeanStd(c.gPR[y][i])
			rows = append(rows, r)
		}
		for i, e := range c.species {
			r := base
			r.Kind, r.Name = e.kind, e.name
			r.BiomassMean, r.BiomassStd, r.BiomassP10, r.BiomassP90 = Describe(c.sBiomass[y][i])
			r.RelSizeMean, r.RelSizeStd = MeanStd(c.sRelSize[y][i])
			r.IndivsMean, r.IndivsStd = MeanStd(c.sIndivs[y][i])
			rows = append(rows, r)
		}
	}
	return rows
}

// Mortality aggregates the kill histograms over iterations.
func (c *Collector) Mortality() []MortRecord {
	var rows []MortRecord
	add := func(es []entity, kills [][][]float64) {
		for i, e := range es {
			for a, ks := range kills[i] {
				mean, std := MeanStd(ks)
				rows = append(rows, MortRecord{Kind: e.kind, Name: e.name, Age: a + 1, KillsMean: mean, KillsStd: std})
			}
		}
	}
	add(c.groups, c.gKills)
	add(c.species, c.sKills)
	return rows
}

// Establishment aggregates establishment totals over iterations.
func (c *Collector) Establishment() []EstabRecord {
	var rows []EstabRecord
	add := func(es []entity, estabs [][]float64) {
		for i, e := range es {
			mean, std := MeanStd(estabs[i])
			rows = append(rows, EstabRecord{Kind: e.kind, Name: e.name, EstabsMean: mean, EstabsStd: std})
		}
	}
	add(c.groups, c.gEstabs)
	add(c.species, c.sEstabs)
	return rows
}

// MeanBiomass averages a species' biomass over the last n years and all
// iterations. ok is false for an unknown or disabled species.
func (c *Collector) MeanBiomass(species string, n int) (mean float64, ok bool) {
	idx := -1
	for i, e := range c.species {
		if e.name == species {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, false
	}
	n = min(max(n, 1), c.years)
	var values []float64
	for y := c.years - n; y < c.years; y++ {
		values = append(values, c.sBiomass[y][idx]...)
	}
	mean, _ = MeanStd(values)
	return mean, true
}
