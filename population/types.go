// Package population owns species and resource-group records and the
// individual plants of one simulated plot.
package population

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/steppe/components"
)

// Capacity limits for a configured community.
const (
	MaxGroups       = 10
	MaxSppPerGroup  = 10
	MaxIndivsPerSpp = 100 // soft limit, exceeding it only warns
)

// SizeTolerance is the allowed drift between a species' registered size and
// the sum of its individuals.
const SizeTolerance = 5e-6

// GroupID indexes the group registry.
type GroupID int

// SpeciesID indexes the species registry.
type SpeciesID int

// GroupParams is the static configuration of a resource group.
type GroupParams struct {
	Name        string
	MinResReq   float64 // resource needed per unit size
	MaxDensity  float64
	MaxStretch  int
	SlowRate    float64 // fraction of max_rate below which growth is slow
	XGrow       float64 // extra growth coefficient
	UseExtraRes bool
	UseMort     bool
	EstAnnually bool
	Succulent   bool
	UseMe       bool

	// Precipitation-to-resource coefficients indexed by components.PPTClass.
	PPTSlope  [3]float64
	PPTIntcpt [3]float64

	StartYr  int
	KillYr   int
	KillFreq float64
	Extirp   int
}

// SpeciesParams is the static configuration of a species.
type SpeciesParams struct {
	Name         string
	Group        GroupID
	MaxAge       int // 1 marks an annual
	Clonal       bool
	DisturbClass components.DisturbClass
	TempClass    components.TempClass
	UseMe        bool

	IntrinRate      float64
	MaxRate         float64 // intrinsic rate scaled by the slow-growth proportion
	MaxSlow         int
	CohortSurv      float64
	RelSeedlingSize float64
	MatureBiomass   float64
	EstabProb       float64
	MaxSeedEstab    int
	MaxVegUnits     int
	ProbVegGrow     [components.NumMortalityTypes]float64

	// Annuals only.
	ViableYrs int
	ExpDecay  float64
}

// Group is a resource group: static parameters plus per-plot state.
type Group struct {
	GroupParams
	ID      GroupID
	MaxAge  int         // largest member max age
	MaxSpp  int         // number of member species
	Members []SpeciesID // all configured member species
	EstSpp  []SpeciesID // members with established individuals

	RelSize     float64
	ResRequired float64
	ResAvail    float64
	ResExtra    float64
	PR          float64
	YrsNegPR    int
	Kills       []int // indexed by age-1
	Estabs      int
	Extirpated  bool
	RegenOK     bool
	killYr      int
}

// IsAnnual reports whether the group holds annual species.
func (g *Group) IsAnnual() bool { return g.MaxAge == 1 }

// EstCount is the number of established member species.
func (g *Group) EstCount() int { return len(g.EstSpp) }

// Species is a population within one group.
type Species struct {
	SpeciesParams
	ID SpeciesID

	RelSize     float64
	ExtraGrowth float64 // superfluous growth, cleared every year
	EstCount    int
	Estabs      int
	Kills       []int     // indexed by age-1
	SeedProd    []float64 // seed production, newest first
	ForcedSeed  bool      // a propagule was added to the seedbank this year

	estabProbOrig float64
	indivs        []ecs.Entity
}

// IsAnnual reports whether the species lives a single season.
func (s *Species) IsAnnual() bool { return s.MaxAge == 1 }

// Individuals returns the live entity handles of the species. The slice is
// owned by the store; copy it before killing while iterating.
func (s *Species) Individuals() []ecs.Entity { return s.indivs }

// Biomass converts relative size, including extra growth, to biomass.
func (s *Species) Biomass() float64 {
	return (s.RelSize + s.ExtraGrowth) * s.MatureBiomass
}
