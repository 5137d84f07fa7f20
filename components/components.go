// Package components defines the ECS components and plot-level state for the
// plant population model.
package components

// TempClass selects which temperature growth modifier applies to a species.
type TempClass uint8

const (
	NoSeason TempClass = iota // No temperature modifier
	CoolSeason
	WarmSeason
)

// DisturbClass orders species by how badly disturbances hurt them.
type DisturbClass uint8

const (
	VerySensitive DisturbClass = iota
	Sensitive
	Insensitive
	VeryInsensitive
)

// PPTClass classifies a year's precipitation.
type PPTClass uint8

const (
	PPTWet PPTClass = iota
	PPTNorm
	PPTDry
)

// MortalityType records what partially killed an individual; it selects the
// vegetative regrowth probability.
type MortalityType uint8

const (
	MortSlow MortalityType = iota
	MortNoResources
	MortIntrinsic
	MortDisturbance
	NumMortalityTypes
)

// DisturbEvent is the disturbance active on the plot.
type DisturbEvent uint8

const (
	NoDisturb DisturbEvent = iota
	FecalPat
	AntMound
	Burrow
	NumDisturbEvents
)

var disturbNames = [NumDisturbEvents]string{"none", "fecal_pat", "ant_mound", "burrow"}

func (d DisturbEvent) String() string {
	if d < NumDisturbEvents {
		return disturbNames[d]
	}
	return "unknown"
}

// Individual is one established perennial plant. Each plant is an ECS entity
// carrying this component; its species owns the entity handle.
type Individual struct {
	Species int // index into the species registry
	Slot    int // position in the species' entity list

	Age         int
	RelSize     float64
	GrowthRate  float64
	SlowYrs     int
	GrpResProp  float64 // share of the group's size
	ResRequired float64
	ResAvail    float64
	ResExtra    float64
	PR          float64

	Killed      bool
	KilledBy    MortalityType
	ProbVegGrow float64
}

// Environment is the weather and stress state for one simulated year.
type Environment struct {
	PPT     float64 // annual precipitation, mm
	LastPPT float64
	GSPPT   float64 // growing-season precipitation, mm
	Temp    float64 // mean annual temperature
	WetDry  PPTClass

	// Growth modifiers indexed by TempClass; NoSeason is always 1.
	TempReduction [3]float64

	SucculentReduction float64
	SucculentProbDeath float64
}

// TempMod returns the growth modifier for a temperature class.
func (e *Environment) TempMod(c TempClass) float64 {
	if c == NoSeason {
		return 1
	}
	return e.TempReduction[c]
}

// Plot holds the disturbance state of the simulated plot.
type Plot struct {
	Disturbance DisturbEvent
	Disturbed   int  // years remaining (or elapsed, for fecal pats)
	PatRemoved  bool // fecal pat removed, recolonisation under way
}
