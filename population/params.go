package population

import (
	"fmt"

	"github.com/pthm-cable/steppe/components"
	"github.com/pthm-cable/steppe/config"
)

// ParamsFromConfig converts the validated configuration into registry
// parameters. Group references are resolved by name.
func ParamsFromConfig(cfg *config.Config) ([]GroupParams, []SpeciesParams, error) {
	index := make(map[string]GroupID, len(cfg.Groups))
	groups := make([]GroupParams, 0, len(cfg.Groups))
	for i, gc := range cfg.Groups {
		index[gc.Name] = GroupID(i)
		gp := GroupParams{
			Name:        gc.Name,
			MinResReq:   gc.MinResReq,
			MaxDensity:  gc.MaxDensity,
			MaxStretch:  gc.MaxStretch,
			SlowRate:    gc.SlowRate,
			XGrow:       gc.XGrow,
			UseExtraRes: gc.UseExtraRes,
			UseMort:     gc.UseMort,
			EstAnnually: gc.EstAnnually,
			Succulent:   gc.Succulent,
			UseMe:       !gc.Disabled,
			StartYr:     gc.StartYr,
			KillYr:      gc.KillYr,
			KillFreq:    gc.KillFreq,
			Extirp:      gc.Extirp,
		}
		gp.PPTSlope[components.PPTWet] = gc.PPT.Wet.Slope
		gp.PPTIntcpt[components.PPTWet] = gc.PPT.Wet.Intercept
		gp.PPTSlope[components.PPTNorm] = gc.PPT.Norm.Slope
		gp.PPTIntcpt[components.PPTNorm] = gc.PPT.Norm.Intercept
		gp.PPTSlope[components.PPTDry] = gc.PPT.Dry.Slope
		gp.PPTIntcpt[components.PPTDry] = gc.PPT.Dry.Intercept
		groups = append(groups, gp)
	}

	species := make([]SpeciesParams, 0, len(cfg.Species))
	for _, sc := range cfg.Species {
		gid, ok := index[sc.Group]
		if !ok {
			return nil, nil, fmt.Errorf("species %q: unknown group %q", sc.Name, sc.Group)
		}
		dc, err := config.ParseDisturbClass(sc.DisturbClass)
		if err != nil {
			return nil, nil, fmt.Errorf("species %q: %w", sc.Name, err)
		}
		tc, err := config.ParseTempClass(sc.TempClass)
		if err != nil {
			return nil, nil, fmt.Errorf("species %q: %w", sc.Name, err)
		}
		sp := SpeciesParams{
			Name:          sc.Name,
			Group:         gid,
			MaxAge:        sc.MaxAge,
			Clonal:        sc.Clonal,
			DisturbClass:  dc,
			TempClass:     tc,
			UseMe:         !sc.Disabled,
			IntrinRate:    sc.IntrinRate,
			MaxRate:       sc.IntrinRate * sc.SlowRateProp,
			MaxSlow:       sc.MaxSlow,
			CohortSurv:    sc.CohortSurv,
			MatureBiomass: sc.MatureBiomass,
			EstabProb:     sc.EstabProb,
			MaxSeedEstab:  sc.MaxSeedEstab,
			ViableYrs:     sc.ViableYrs,
			ExpDecay:      sc.ExpDecay,
		}
		if sc.MatureBiomass > 0 {
			sp.RelSeedlingSize = sc.SeedlingBiomass / sc.MatureBiomass
		}
		if sc.Clonal {
			sp.MaxVegUnits = sc.MaxVegUnits
		}
		sp.ProbVegGrow[components.MortNoResources] = sc.VegGrow.NoResources
		sp.ProbVegGrow[components.MortSlow] = sc.VegGrow.Slow
		sp.ProbVegGrow[components.MortIntrinsic] = sc.VegGrow.Intrinsic
		sp.ProbVegGrow[components.MortDisturbance] = sc.VegGrow.Disturbance
		species = append(species, sp)
	}
	return groups, species, nil
}
