package systems

import (
	"math"

	"github.com/pthm-cable/steppe/approx"
	"github.com/pthm-cable/steppe/components"
	"github.com/pthm-cable/steppe/population"
)

// PRSentinel is the PR of an individual or group that requires resource but
// has none available.
const PRSentinel = 100.0

// ResourceProvider supplies a group's resource in place of the precipitation
// formula. ok=false falls back to the formula for that group and year.
type ResourceProvider interface {
	GroupResource(year int, g *population.Group) (baseline, actual float64, ok bool)
}

// PRObserver receives each group's PR once partitioning is complete.
type PRObserver interface {
	ObservePR(year int, g *population.Group)
}

// Partitioner converts the year's precipitation (or provider signal) into
// group and individual resource availability and PR.
type Partitioner struct {
	Provider ResourceProvider // nil = precipitation formula only
	Observer PRObserver       // optional

	// scratch, indexed by group
	sizeBase   []float64
	sizeObase  []float64
	contBase   []float64
	contObase  []float64
	space      []float64
	indivScale []float64
}

// PPTToResource maps precipitation to a group's resource index. Average
// precipitation is expected to yield 1.
func PPTToResource(ppt float64, wd components.PPTClass, g *population.Group) float64 {
	return ppt*g.PPTSlope[wd] + g.PPTIntcpt[wd]
}

func (p *Partitioner) reset(n int) {
	if cap(p.sizeBase) < n {
		p.sizeBase = make([]float64, n)
		p.sizeObase = make([]float64, n)
		p.contBase = make([]float64, n)
		p.contObase = make([]float64, n)
		p.space = make([]float64, n)
		p.indivScale = make([]float64, n)
	}
	p.sizeBase = p.sizeBase[:n]
	p.sizeObase = p.sizeObase[:n]
	p.contBase = p.contBase[:n]
	p.contObase = p.contObase[:n]
	p.space = p.space[:n]
	p.indivScale = p.indivScale[:n]
	clear(p.sizeBase)
	clear(p.sizeObase)
	clear(p.contBase)
	clear(p.contObase)
}

// Partition runs base allocation, extra-resource redistribution and
// individual apportionment for the current year. Annual groups have their
// seedbank establishment applied here.
func (p *Partitioner) Partition(st *population.Store, env *components.Environment, rng RNG) {
	p.reset(len(st.Groups))
	var xtraBase, xtraObase float64
	noPlants := true

	for _, g := range st.Groups {
		g.ResRequired, g.ResAvail, g.ResExtra = 0, 0, 0
		if !g.UseMe {
			g.PR = 0
			continue
		}
		if g.IsAnnual() {
			g.RelSize = annualSeedbank(st, g, 1.0, false, rng)
		}

		i := g.ID
		baseline, actual, ok := 0.0, 0.0, false
		if p.Provider != nil {
			baseline, actual, ok = p.Provider.GroupResource(st.Year, g)
		}
		if ok {
			g.ResRequired = g.RelSize / g.MaxDensity * baseline
			g.ResAvail = math.Min(g.ResRequired, baseline)
			p.contBase[i] = math.Max(0, math.Min(baseline, actual)-g.ResAvail)
			p.contObase[i] = math.Max(0, actual-baseline)
			p.space[i] = 1
			p.indivScale[i] = baseline
		} else {
			resource := PPTToResource(env.PPT, env.WetDry, g)
			g.ResRequired = g.RelSize / g.MaxDensity
			g.ResAvail = math.Min(1, math.Min(g.ResRequired, resource))
			p.contBase[i] = math.Max(0, math.Min(1, resource)-g.ResAvail) * g.MinResReq
			p.contObase[i] = math.Max(0, resource-1) * g.MinResReq
			p.space[i] = g.MinResReq
			p.indivScale[i] = 1
		}
		xtraBase += p.contBase[i]
		xtraObase += p.contObase[i]

		p.sizeBase[i] = g.RelSize * g.MinResReq
		if g.UseExtraRes {
			p.sizeObase[i] = p.sizeBase[i]
		}
		if approx.GT(g.RelSize, 0) {
			noPlants = false
		}
	}

	if noPlants {
		for _, g := range st.Groups {
			g.PR = 0
		}
		return
	}

	p.redistribute(st, false, xtraBase, p.sizeBase, p.contBase)
	p.redistribute(st, true, xtraObase, p.sizeObase, p.contObase)

	for _, g := range st.Groups {
		if !g.UseMe {
			continue
		}
		g.PR = groupPR(g.ResRequired, g.ResAvail)
		if g.IsAnnual() {
			annualSeedbank(st, g, g.PR, true, rng)
			st.UpdateGroupSize(g.ID)
		}
		if p.Observer != nil {
			p.Observer.ObservePR(st.Year, g)
		}
	}

	p.apportion(st)
}

func groupPR(required, avail float64) float64 {
	if approx.Zero(avail) {
		if approx.Zero(required) {
			return 0
		}
		return PRSentinel
	}
	return required / avail
}

// redistribute shares a pooled surplus among groups in proportion to their
// weighted size. From the base pool a group never receives back its own
// contribution; the above-average pool is shared whole among eligible groups.
func (p *Partitioner) redistribute(st *population.Store, isExtra bool, pool float64, size, contrib []float64) {
	var sumSize float64
	for _, s := range size {
		sumSize += s
	}
	if approx.Zero(sumSize) || approx.Zero(pool) {
		return
	}
	for _, g := range st.Groups {
		if !g.UseMe || approx.Zero(g.RelSize) {
			continue
		}
		if isExtra && !g.UseExtraRes {
			continue
		}
		i := g.ID
		avail := pool
		if !isExtra {
			avail = math.Max(0, pool-contrib[i])
		}
		share := size[i] / sumSize * avail / p.space[i]
		if isExtra && approx.GT(g.XGrow, 0) {
			g.ResExtra = share
		} else {
			g.ResAvail += share
		}
	}
}

// apportion divides each perennial group's resource among its individuals,
// largest first.
func (p *Partitioner) apportion(st *population.Store) {
	for _, g := range st.Groups {
		if !g.UseMe || g.IsAnnual() || g.EstCount() == 0 {
			continue
		}
		indivs := st.GroupIndividuals(g.ID, population.Descending)
		scarce := approx.GT(g.PR, 1)
		baseRem := g.ResAvail
		for _, e := range indivs {
			ind := st.Indiv(e)
			ind.ResExtra = 0
			ind.ResRequired = ind.RelSize / float64(g.MaxSpp) / g.MaxDensity * p.indivScale[g.ID]
			if scarce {
				ind.ResAvail = math.Min(ind.ResRequired, baseRem)
				baseRem = math.Max(baseRem-ind.ResAvail, 0)
			} else {
				ind.ResAvail = ind.GrpResProp * g.ResAvail
			}
		}
		if !scarce {
			baseRem = 0
		}

		for _, e := range indivs {
			ind := st.Indiv(e)
			if g.UseExtraRes {
				if !approx.Zero(baseRem) {
					ind.ResAvail += ind.GrpResProp * baseRem
				}
				if approx.GT(g.ResExtra, 0) {
					x := 1 - ind.RelSize
					ind.ResExtra = (1 - x) * ind.GrpResProp * g.ResExtra
					ind.ResAvail += x * ind.GrpResProp * g.ResExtra
				}
			}
			if approx.GT(ind.ResAvail, 0) {
				ind.PR = ind.ResRequired / ind.ResAvail
			} else {
				ind.PR = PRSentinel
			}
		}
	}
}
