package population

import (
	"math"

	"github.com/pthm-cable/steppe/approx"
)

// Reset clears the plot for a new iteration. Establishment probabilities of
// extirpated groups are restored. Residual sizes or counts left after the
// kills are logged and forced to zero. Calling Reset twice is the same as
// calling it once.
func (s *Store) Reset() {
	for _, sp := range s.Species {
		if !sp.UseMe {
			continue
		}
		if s.Groups[sp.Group].Extirpated {
			sp.EstabProb = sp.estabProbOrig
		}
		clear(sp.Kills)
		s.KillSpecies(sp.ID)
		clear(sp.Kills)
		if !approx.Zero(sp.RelSize) {
			s.log.Info("species relsize forced to zero on reset", "species", sp.Name, "relsize", sp.RelSize)
		}
		sp.RelSize = 0
		if sp.EstCount != 0 {
			s.log.Info("species est_count forced to zero on reset", "species", sp.Name, "est_count", sp.EstCount)
			sp.EstCount = 0
		}
		sp.ExtraGrowth = 0
		sp.Estabs = 0
		clear(sp.SeedProd)
	}
	for _, g := range s.Groups {
		if !g.UseMe {
			continue
		}
		clear(g.Kills)
		if g.EstCount() != 0 {
			s.log.Info("group est_count forced to zero on reset", "group", g.Name, "est_count", g.EstCount())
			g.EstSpp = g.EstSpp[:0]
		}
		g.RelSize = 0
		g.ResRequired, g.ResAvail, g.ResExtra, g.PR = 0, 0, 0, 0
		g.YrsNegPR = 0
		g.Estabs = 0
		g.Extirpated = false
		g.RegenOK = false
		g.killYr = g.KillYr
	}
	s.Year = 0
}

// KillYear returns the year scheduled for a group-wide kill this iteration.
func (g *Group) KillYear() int { return g.killYr }

// ScheduleKill sets this iteration's group-wide kill year.
func (g *Group) ScheduleKill(year int) { g.killYr = year }

// CheckSizes reconciles every species and group size against the sum of the
// individuals actually stored, logging each mismatch beyond SizeTolerance.
// It returns the number of mismatches.
func (s *Store) CheckSizes(checkpoint string) int {
	sums := make([]float64, len(s.Species))
	query := s.indivFilter.Query()
	for query.Next() {
		ind := query.Get()
		sums[ind.Species] += ind.RelSize
	}

	bad := 0
	for _, g := range s.Groups {
		if g.IsAnnual() {
			continue
		}
		var grp float64
		for _, id := range g.Members {
			sp := s.Species[id]
			grp += sums[id]
			if math.Abs(sums[id]-sp.RelSize) > SizeTolerance {
				bad++
				s.log.Warn("species size mismatch",
					"checkpoint", checkpoint, "year", s.Year,
					"species", sp.Name, "registered", sp.RelSize, "individuals", sums[id])
			}
		}
		if g.MaxSpp > 0 {
			grp /= float64(g.MaxSpp)
		}
		if math.Abs(grp-g.RelSize) > SizeTolerance {
			bad++
			s.log.Warn("group size mismatch",
				"checkpoint", checkpoint, "year", s.Year,
				"group", g.Name, "registered", g.RelSize, "individuals", grp)
		}
	}
	return bad
}
