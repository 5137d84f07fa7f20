package systems

import (
	"math"

	"github.com/pthm-cable/steppe/approx"
	"github.com/pthm-cable/steppe/population"
)

// PRZeroEstab is the PR at which no annual seedling can establish.
const PRZeroEstab = 20.0

// annualSeedbank computes an annual group's size from its species'
// seedbanks. With addSeeds false it only returns the provisional group size
// used for base allocation (but may inject a propagule). With addSeeds true
// it establishes the predicted size and pushes this year's seed production.
func annualSeedbank(st *population.Store, g *population.Group, pr float64, addSeeds bool, rng RNG) float64 {
	if !g.UseMe || g.MaxSpp == 0 {
		return 0
	}
	var sum float64
	for _, id := range g.Members {
		sp := st.Species[id]
		if !sp.UseMe {
			continue
		}
		if !addSeeds {
			sp.ForcedSeed = false
			if rng.Float64() <= sp.EstabProb {
				if g.RegenOK {
					pushSeedProd(sp, pr)
				} else {
					pushSeedProd(sp, -1)
				}
				sp.ForcedSeed = true
			}
		}

		var newsize float64
		x := 0.0
		if g.RegenOK {
			x = MaxAnnualEstab(sp)
		}
		if approx.GT(x, 0) {
			estabs := (x - x/PRZeroEstab*pr) * math.Exp(-pr)
			newsize = math.Max(0, math.Min(1/pr, estabs))
			if addSeeds {
				st.AddEstSpecies(id)
				st.UpdateSpeciesSize(id, newsize)
			}
		}
		if addSeeds && !sp.ForcedSeed {
			if approx.Zero(x) {
				pushSeedProd(sp, -1)
			} else {
				pushSeedProd(sp, pr)
			}
		}
		sum += newsize
	}
	return sum / float64(g.MaxSpp)
}

// MaxAnnualEstab is the establishment potential of an annual's seedbank:
// each past year's production decays with age to the power exp_decay.
func MaxAnnualEstab(sp *population.Species) float64 {
	var sum float64
	for i, prod := range sp.SeedProd {
		sum += prod / math.Pow(float64(i+1), sp.ExpDecay)
	}
	return sum
}

// pushSeedProd shifts the seedbank one year and records this year's
// production, which is zero for negative pr.
func pushSeedProd(sp *population.Species, pr float64) {
	if len(sp.SeedProd) == 0 {
		return
	}
	copy(sp.SeedProd[1:], sp.SeedProd[:len(sp.SeedProd)-1])
	if pr < 0 {
		sp.SeedProd[0] = 0
	} else {
		sp.SeedProd[0] = float64(sp.MaxSeedEstab) * math.Exp(-pr)
	}
}
