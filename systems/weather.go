package systems

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/steppe/components"
	"github.com/pthm-cable/steppe/config"
)

// maxRedraws bounds the truncated-normal rejection loops. Validation keeps
// avg inside [min, max], so this is only reached with a degenerate std.
const maxRedraws = 10000

// Weather generates one plot's yearly precipitation, temperature, succulent
// stress and disturbance.
type Weather struct {
	env  config.EnvironmentConfig
	dist config.DisturbanceConfig
	succ config.SucculentConfig

	ppt  distuv.Normal
	temp distuv.Normal
}

// NewWeather builds a generator whose normal draws come from src.
func NewWeather(cfg *config.Config, src rand.Source) *Weather {
	e := cfg.Environment
	return &Weather{
		env:  e,
		dist: cfg.Disturbance,
		succ: cfg.Succulent,
		ppt:  distuv.Normal{Mu: e.PPT.Avg, Sigma: e.PPT.Std, Src: src},
		temp: distuv.Normal{Mu: e.Temp.Avg, Sigma: e.Temp.Std, Src: src},
	}
}

// Next advances env and plot by one year.
func (w *Weather) Next(env *components.Environment, plot *components.Plot, rng RNG) {
	w.makePPT(env)
	w.makeTemp(env)
	w.succulentReduction(env)
	w.tempReduction(env)
	w.disturbance(plot, rng)
}

// drawTruncated redraws until the value falls inside [lo, hi], clamping
// after maxRedraws.
func drawTruncated(d distuv.Normal, lo, hi float64, round bool) float64 {
	for range maxRedraws {
		r := d.Rand()
		if round {
			r = math.Floor(r + 0.5)
		}
		if r >= lo && r <= hi {
			return r
		}
	}
	return math.Min(hi, math.Max(lo, d.Mu))
}

func (w *Weather) makePPT(env *components.Environment) {
	p := w.env.PPT
	r := drawTruncated(w.ppt, p.Min, p.Max, true)
	if env.PPT > 0 {
		env.LastPPT = env.PPT
	} else {
		env.LastPPT = r
	}
	env.PPT = r
	env.GSPPT = math.Trunc(w.env.GSPPTProp * env.PPT)
	env.WetDry = ClassifyPPT(env.PPT, p.Dry, p.Wet)
}

// ClassifyPPT maps annual precipitation to wet, normal or dry.
func ClassifyPPT(ppt, dry, wet float64) components.PPTClass {
	switch {
	case ppt <= dry:
		return components.PPTDry
	case ppt >= wet:
		return components.PPTWet
	default:
		return components.PPTNorm
	}
}

func (w *Weather) makeTemp(env *components.Environment) {
	t := w.env.Temp
	env.Temp = drawTruncated(w.temp, t.Min, t.Max, false)
}

func (w *Weather) succulentReduction(env *components.Environment) {
	s := w.succ
	env.SucculentReduction = math.Abs(s.GrowthSlope*env.GSPPT + s.GrowthIntercept)
	env.SucculentProbDeath = (s.MortSlope*env.GSPPT + s.MortIntercept) / 100
}

func (w *Weather) tempReduction(env *components.Environment) {
	env.TempReduction[components.NoSeason] = 1
	env.TempReduction[components.CoolSeason] = TempReduction(env.Temp, w.env.TempParams.Cool)
	env.TempReduction[components.WarmSeason] = TempReduction(env.Temp, w.env.TempParams.Warm)
}

// TempReduction is the quadratic temperature growth response, truncated at 0.
func TempReduction(temp float64, p [3]float64) float64 {
	t0 := temp + p[0]
	return math.Max(0, p[1]*t0+p[2]*t0*t0)
}

// disturbance runs the plot disturbance state machine. At most one event is
// active; when none is, one of the three is picked and fires with its
// occurrence probability.
func (w *Weather) disturbance(plot *components.Plot, rng RNG) {
	d := w.dist
	if plot.Disturbance != components.NoDisturb {
		switch plot.Disturbance {
		case components.FecalPat:
			if plot.PatRemoved {
				plot.Disturbed = 0
				plot.PatRemoved = false
			} else if rng.Float64() <= d.FecalPat.RecolSlope*float64(plot.Disturbed)+d.FecalPat.RecolIntercept {
				plot.PatRemoved = true
				plot.Disturbed = 1
			} else {
				plot.Disturbed++
			}
		default:
			plot.Disturbed = max(plot.Disturbed-1, 0)
		}
		if plot.Disturbed == 0 {
			plot.Disturbance = components.NoDisturb
		}
	}
	if plot.Disturbance != components.NoDisturb {
		return
	}

	plot.PatRemoved = false
	event := components.DisturbEvent(uniformRange(rng, int(components.FecalPat), int(components.Burrow)))
	switch event {
	case components.FecalPat:
		if !d.FecalPat.Use || rng.Float64() > d.FecalPat.Occur {
			return
		}
		plot.PatRemoved = rng.Float64() <= d.FecalPat.Removal
		plot.Disturbed = 0
	case components.AntMound:
		if !d.AntMound.Use || rng.Float64() > d.AntMound.Occur {
			return
		}
		plot.Disturbed = uniformRange(rng, d.AntMound.MinYr, d.AntMound.MaxYr)
	case components.Burrow:
		if !d.Burrow.Use || rng.Float64() > d.Burrow.Occur {
			return
		}
		plot.Disturbed = 0
		if d.Burrow.MinYr > 0 {
			plot.Disturbed = uniformRange(rng, 1, d.Burrow.MinYr)
		}
	}
	plot.Disturbance = event
}
