package population

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/steppe/approx"
	"github.com/pthm-cable/steppe/components"
)

// ErrCapacity reports a configuration outside the fixed capacity limits.
var ErrCapacity = errors.New("capacity limit exceeded")

// SortOrder selects how GroupIndividuals orders its result.
type SortOrder uint8

const (
	Unsorted SortOrder = iota
	Ascending
	Descending
)

// Store owns all species, groups and individuals of one plot. A store is
// private to one iteration and is not safe for concurrent use.
type Store struct {
	Groups  []*Group
	Species []*Species

	Iter int
	Year int

	world       *ecs.World
	indivMap    *ecs.Map1[components.Individual]
	indivFilter *ecs.Filter1[components.Individual]
	log         *slog.Logger
}

// NewStore builds a fresh store from static parameters. Capacity violations
// and dangling group references are fatal.
func NewStore(groups []GroupParams, species []SpeciesParams, logger *slog.Logger) (*Store, error) {
	if len(groups) > MaxGroups {
		return nil, fmt.Errorf("%w: %d groups (max %d)", ErrCapacity, len(groups), MaxGroups)
	}
	if logger == nil {
		logger = slog.Default()
	}

	world := ecs.NewWorld()
	s := &Store{
		world:       world,
		indivMap:    ecs.NewMap1[components.Individual](world),
		indivFilter: ecs.NewFilter1[components.Individual](world),
		log:         logger,
	}

	for i, gp := range groups {
		s.Groups = append(s.Groups, &Group{GroupParams: gp, ID: GroupID(i)})
	}
	for i, sp := range species {
		if int(sp.Group) < 0 || int(sp.Group) >= len(s.Groups) {
			return nil, fmt.Errorf("species %q: group index %d out of range", sp.Name, sp.Group)
		}
		g := s.Groups[sp.Group]
		if len(g.Members) == MaxSppPerGroup {
			return nil, fmt.Errorf("%w: group %q has more than %d species", ErrCapacity, g.Name, MaxSppPerGroup)
		}
		if !g.UseMe {
			sp.UseMe = false
		}
		spp := &Species{SpeciesParams: sp, ID: SpeciesID(i), estabProbOrig: sp.EstabProb}
		s.Species = append(s.Species, spp)
		g.Members = append(g.Members, spp.ID)
	}

	for _, g := range s.Groups {
		g.MaxSpp = len(g.Members)
		minAge := math.MaxInt
		for _, id := range g.Members {
			sp := s.Species[id]
			g.MaxAge = max(g.MaxAge, sp.MaxAge)
			minAge = min(minAge, sp.MaxAge)
		}
		if minAge == 1 && g.MaxAge != 1 {
			return nil, fmt.Errorf("group %q: cannot mix annuals and perennials", g.Name)
		}
		g.Kills = make([]int, max(g.MaxAge, 1))
	}
	for _, sp := range s.Species {
		sp.Kills = make([]int, max(sp.MaxAge, 1))
		if sp.IsAnnual() {
			sp.SeedProd = make([]float64, max(sp.ViableYrs, 1))
		}
	}
	return s, nil
}

// Logger returns the store's logger.
func (s *Store) Logger() *slog.Logger { return s.log }

// Indiv returns the component of a live individual.
func (s *Store) Indiv(e ecs.Entity) *components.Individual {
	return s.indivMap.Get(e)
}

// Alive reports whether the handle refers to a live individual.
func (s *Store) Alive(e ecs.Entity) bool {
	return s.world.Alive(e)
}

// AddIndividuals establishes n new age-1 individuals of a species.
func (s *Store) AddIndividuals(id SpeciesID, n int) {
	if n <= 0 {
		return
	}
	sp := s.Species[id]
	for range n {
		if sp.EstCount == MaxIndivsPerSpp {
			s.log.Warn("individual limit reached",
				"species", sp.Name, "count", sp.EstCount+1, "max", MaxIndivsPerSpp, "year", s.Year)
		}
		ind := components.Individual{
			Species: int(id),
			Slot:    len(sp.indivs),
			Age:     1,
			RelSize: sp.RelSeedlingSize,
		}
		e := s.indivMap.NewEntity(&ind)
		sp.indivs = append(sp.indivs, e)
		sp.EstCount++
	}
	s.AddEstSpecies(id)
	s.UpdateSpeciesSize(id, float64(n)*sp.RelSeedlingSize)
}

// RecordEstabs adds to the species' and group's establishment counters.
func (s *Store) RecordEstabs(id SpeciesID, n int) {
	sp := s.Species[id]
	sp.Estabs += n
	s.Groups[sp.Group].Estabs += n
}

// KillComplete destroys an individual, removing its size and recording its
// age in the kill histograms.
func (s *Store) KillComplete(e ecs.Entity) {
	ind := s.indivMap.Get(e)
	sp := s.Species[ind.Species]
	if ind.Age > sp.MaxAge {
		s.log.Warn("individual died older than max_age",
			"species", sp.Name, "age", ind.Age, "max_age", sp.MaxAge, "year", s.Year)
	}
	s.recordKill(sp, ind.Age)
	s.UpdateSpeciesSize(sp.ID, -ind.RelSize)

	// swap-remove from the species arena
	slot := ind.Slot
	last := len(sp.indivs) - 1
	if slot != last {
		moved := sp.indivs[last]
		sp.indivs[slot] = moved
		s.indivMap.Get(moved).Slot = slot
	}
	sp.indivs = sp.indivs[:last]
	sp.EstCount--
	s.world.RemoveEntity(e)

	if sp.EstCount == 0 {
		s.DropEstSpecies(sp.ID)
	}
}

func (s *Store) recordKill(sp *Species, age int) {
	idx := age - 1
	if idx < 0 || idx >= len(sp.Kills) {
		return
	}
	sp.Kills[idx]++
	g := s.Groups[sp.Group]
	if idx < len(g.Kills) {
		g.Kills[idx]++
	}
}

// KillPartial reduces an individual by amt and marks it killed, enabling
// vegetative regrowth. It returns false, changing nothing, when amt is not
// smaller than the individual.
func (s *Store) KillPartial(code components.MortalityType, e ecs.Entity, amt float64) bool {
	ind := s.indivMap.Get(e)
	if !approx.GT(ind.RelSize, amt) {
		return false
	}
	sp := s.Species[ind.Species]
	ind.Killed = true
	ind.RelSize -= amt
	ind.KilledBy = code
	ind.GrowthRate = 0
	ind.ProbVegGrow = sp.ProbVegGrow[code]
	s.UpdateSpeciesSize(sp.ID, -amt)
	return true
}

// KillSpecies removes every established individual of a species. Annuals
// simply lose their size.
func (s *Store) KillSpecies(id SpeciesID) {
	sp := s.Species[id]
	if sp.IsAnnual() {
		s.UpdateSpeciesSize(id, -sp.RelSize)
	} else {
		for _, e := range append([]ecs.Entity(nil), sp.indivs...) {
			s.KillComplete(e)
		}
	}
	s.DropEstSpecies(id)
}

// KillGroup kills all established species of a group; they may regenerate.
func (s *Store) KillGroup(gid GroupID) {
	g := s.Groups[gid]
	for _, id := range append([]SpeciesID(nil), g.EstSpp...) {
		s.KillSpecies(id)
	}
}

// Extirpate kills a group permanently by zeroing its species' establishment
// probabilities.
func (s *Store) Extirpate(gid GroupID) {
	g := s.Groups[gid]
	for _, id := range g.Members {
		s.KillSpecies(id)
		s.Species[id].EstabProb = 0
	}
	g.Extirpated = true
	s.log.Info("group extirpated", "group", g.Name, "year", s.Year)
}

// AddEstSpecies registers a species as established in its group.
func (s *Store) AddEstSpecies(id SpeciesID) {
	g := s.Groups[s.Species[id].Group]
	for _, x := range g.EstSpp {
		if x == id {
			return
		}
	}
	g.EstSpp = append(g.EstSpp, id)
}

// DropEstSpecies removes a species from its group's established list,
// preserving the order of the rest.
func (s *Store) DropEstSpecies(id SpeciesID) {
	g := s.Groups[s.Species[id].Group]
	for i, x := range g.EstSpp {
		if x == id {
			g.EstSpp = append(g.EstSpp[:i], g.EstSpp[i+1:]...)
			return
		}
	}
}

// UpdateSpeciesSize applies a size change to a species and refreshes its
// group. Negative results are clamped to zero with a warning.
func (s *Store) UpdateSpeciesSize(id SpeciesID, delta float64) {
	sp := s.Species[id]
	if sp.EstCount == 1 && approx.LT(delta, -sp.RelSize) {
		delta = -sp.RelSize
	}
	sp.RelSize += delta
	if approx.LT(sp.RelSize, 0) {
		s.log.Warn("species relsize below zero",
			"species", sp.Name, "relsize", sp.RelSize, "year", s.Year)
		sp.RelSize = 0
	}
	if approx.GT(sp.RelSize, 100) {
		s.log.Info("species relsize very large",
			"species", sp.Name, "relsize", sp.RelSize, "year", s.Year)
	}
	if approx.Zero(sp.RelSize) {
		sp.RelSize = 0
	}
	if sp.EstCount < 0 {
		sp.EstCount = 0
	}
	s.UpdateGroupSize(sp.Group)
}

// UpdateGroupSize recomputes group occupancy as the sum of established
// species sizes over the member count, and each individual's share of it.
func (s *Store) UpdateGroupSize(gid GroupID) {
	g := s.Groups[gid]
	var sum float64
	for _, id := range g.EstSpp {
		sum += s.Species[id].RelSize
	}
	if g.MaxSpp > 0 {
		g.RelSize = sum / float64(g.MaxSpp)
	} else {
		g.RelSize = 0
	}
	if !g.IsAnnual() {
		for _, id := range g.EstSpp {
			for _, e := range s.Species[id].indivs {
				ind := s.indivMap.Get(e)
				if sum > 0 {
					ind.GrpResProp = ind.RelSize / sum
				} else {
					ind.GrpResProp = 0
				}
			}
		}
	}
	if approx.Zero(g.RelSize) {
		g.RelSize = 0
	}
}

// GroupIndividuals collects the individuals of a group's established species.
// Sorting is stable so equal sizes keep registry order.
func (s *Store) GroupIndividuals(gid GroupID, order SortOrder) []ecs.Entity {
	g := s.Groups[gid]
	var list []ecs.Entity
	for _, id := range g.EstSpp {
		list = append(list, s.Species[id].indivs...)
	}
	switch order {
	case Ascending:
		sort.SliceStable(list, func(i, j int) bool {
			return approx.LT(s.indivMap.Get(list[i]).RelSize, s.indivMap.Get(list[j]).RelSize)
		})
	case Descending:
		sort.SliceStable(list, func(i, j int) bool {
			return approx.GT(s.indivMap.Get(list[i]).RelSize, s.indivMap.Get(list[j]).RelSize)
		})
	}
	return list
}

// IncrAges ages every perennial individual by one year, clamping to the
// species' max age with a warning.
func (s *Store) IncrAges() {
	for _, g := range s.Groups {
		if g.IsAnnual() {
			continue
		}
		for _, id := range g.EstSpp {
			sp := s.Species[id]
			for _, e := range sp.indivs {
				ind := s.indivMap.Get(e)
				ind.Age++
				if ind.Age > sp.MaxAge {
					s.log.Warn("individual older than max_age",
						"species", sp.Name, "age", ind.Age, "max_age", sp.MaxAge, "year", s.Year)
					ind.Age = sp.MaxAge
				}
			}
		}
	}
}

// GroupBiomass sums the biomass of a group's established species.
func (s *Store) GroupBiomass(gid GroupID) float64 {
	var b float64
	for _, id := range s.Groups[gid].EstSpp {
		b += s.Species[id].Biomass()
	}
	return b
}

// Count returns the number of live individuals on the plot.
func (s *Store) Count() int {
	n := 0
	query := s.indivFilter.Query()
	for query.Next() {
		n++
	}
	return n
}
