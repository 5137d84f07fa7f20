// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Model       ModelConfig       `yaml:"model"`
	Environment EnvironmentConfig `yaml:"environment"`
	Disturbance DisturbanceConfig `yaml:"disturbance"`
	Succulent   SucculentConfig   `yaml:"succulent"`
	Resources   ResourcesConfig   `yaml:"resources"`
	Output      OutputConfig      `yaml:"output"`
	Groups      []GroupConfig     `yaml:"groups"`
	Species     []SpeciesConfig   `yaml:"species"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ModelConfig holds run dimensions.
type ModelConfig struct {
	Years      int     `yaml:"years"`
	Iterations int     `yaml:"iterations"`
	Seed       uint64  `yaml:"seed"`        // 0 = time-based
	Workers    int     `yaml:"workers"`     // concurrent iterations (0 = GOMAXPROCS)
	PlotSize   float64 `yaml:"plot_size"`   // m^2
	CheckSizes bool    `yaml:"check_sizes"` // reconcile sizes after growth and mortality
}

// RangeConfig is a truncated normal distribution.
type RangeConfig struct {
	Avg float64 `yaml:"avg"`
	Std float64 `yaml:"std"`
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// PPTConfig adds wet/dry thresholds to the precipitation distribution.
type PPTConfig struct {
	RangeConfig `yaml:",inline"`
	Dry         float64 `yaml:"dry"` // ppt <= dry is a dry year
	Wet         float64 `yaml:"wet"` // ppt >= wet is a wet year
}

// EnvironmentConfig holds weather generator parameters.
type EnvironmentConfig struct {
	PPT       PPTConfig   `yaml:"ppt"`
	GSPPTProp float64     `yaml:"gs_ppt_prop"` // growing-season share of annual ppt
	Temp      RangeConfig `yaml:"temp"`
	// Temperature growth response per season: offset, linear, quadratic.
	TempParams struct {
		Cool [3]float64 `yaml:"cool"`
		Warm [3]float64 `yaml:"warm"`
	} `yaml:"temp_params"`
}

// DisturbanceConfig holds the three plot disturbance generators.
type DisturbanceConfig struct {
	FecalPat struct {
		Use            bool    `yaml:"use"`
		Occur          float64 `yaml:"occur"`
		Removal        float64 `yaml:"removal"`
		RecolSlope     float64 `yaml:"recol_slope"`
		RecolIntercept float64 `yaml:"recol_intercept"`
	} `yaml:"fecal_pat"`
	AntMound struct {
		Use   bool    `yaml:"use"`
		Occur float64 `yaml:"occur"`
		MinYr int     `yaml:"min_yr"`
		MaxYr int     `yaml:"max_yr"`
	} `yaml:"ant_mound"`
	Burrow struct {
		Use   bool    `yaml:"use"`
		Occur float64 `yaml:"occur"`
		MinYr int     `yaml:"min_yr"`
	} `yaml:"burrow"`
}

// SucculentConfig holds wet-year succulent reduction and mortality equations.
type SucculentConfig struct {
	GrowthSlope     float64 `yaml:"growth_slope"`
	GrowthIntercept float64 `yaml:"growth_intercept"`
	MortSlope       float64 `yaml:"mort_slope"`
	MortIntercept   float64 `yaml:"mort_intercept"`
}

// ResourcesConfig selects an external resource table.
type ResourcesConfig struct {
	Table string `yaml:"table"` // CSV of year,group,baseline,actual (empty = use ppt)
}

// OutputConfig controls what is written where.
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Yearly bool   `yaml:"yearly"` // per-iteration rows as well as summaries
	SQLite string `yaml:"sqlite"` // optional database path
}

// LinearConfig is a slope/intercept pair.
type LinearConfig struct {
	Slope     float64 `yaml:"slope"`
	Intercept float64 `yaml:"intercept"`
}

// GroupConfig defines a resource group.
type GroupConfig struct {
	Name        string  `yaml:"name"`
	Disabled    bool    `yaml:"disabled"`
	MinResReq   float64 `yaml:"min_res_req"`
	MaxDensity  float64 `yaml:"max_density"`
	MaxStretch  int     `yaml:"max_stretch"`
	SlowRate    float64 `yaml:"slow_rate"`
	XGrow       float64 `yaml:"xgrow"`
	UseExtraRes bool    `yaml:"use_extra_res"`
	UseMort     bool    `yaml:"use_mort"`
	EstAnnually bool    `yaml:"est_annually"`
	Succulent   bool    `yaml:"succulent"`
	StartYr     int     `yaml:"start_yr"`
	KillYr      int     `yaml:"kill_yr"`
	KillFreq    float64 `yaml:"kill_freq"`
	Extirp      int     `yaml:"extirp"`
	PPT         struct {
		Wet  LinearConfig `yaml:"wet"`
		Norm LinearConfig `yaml:"norm"`
		Dry  LinearConfig `yaml:"dry"`
	} `yaml:"ppt"`
}

// VegGrowConfig holds vegetative regrowth probabilities per cause of damage.
type VegGrowConfig struct {
	NoResources float64 `yaml:"no_resources"`
	Slow        float64 `yaml:"slow"`
	Intrinsic   float64 `yaml:"intrinsic"`
	Disturbance float64 `yaml:"disturbance"`
}

// SpeciesConfig defines a species.
type SpeciesConfig struct {
	Name            string        `yaml:"name"`
	Group           string        `yaml:"group"`
	Disabled        bool          `yaml:"disabled"`
	MaxAge          int           `yaml:"max_age"` // 0 = longest lived, 1 = annual
	IntrinRate      float64       `yaml:"intrin_rate"`
	SlowRateProp    float64       `yaml:"slow_rate_prop"`
	MaxSlow         int           `yaml:"max_slow"`
	DisturbClass    string        `yaml:"disturb_class"`
	TempClass       string        `yaml:"temp_class"`
	EstabProb       float64       `yaml:"estab_prob"`
	MaxSeedEstab    int           `yaml:"max_seed_estab"`
	SeedlingBiomass float64       `yaml:"seedling_biomass"`
	MatureBiomass   float64       `yaml:"mature_biomass"`
	CohortSurv      float64       `yaml:"cohort_surv"`
	Clonal          bool          `yaml:"clonal"`
	MaxVegUnits     int           `yaml:"max_veg_units"`
	VegGrow         VegGrowConfig `yaml:"veg_grow"`
	ViableYrs       int           `yaml:"viable_yrs"`
	ExpDecay        float64       `yaml:"exp_decay"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	GroupIndex   map[string]int  // name -> index
	SpeciesIndex map[string]int  // name -> index
	GroupSpecies map[string]int  // name -> number of member species
	LongLived    map[string]bool // species configured with max_age 0
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults,
// then validates it. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := cfg.merge(data); err != nil {
			return nil, err
		}
	}

	cfg.computeDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse builds a configuration from YAML bytes over the embedded defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if err := cfg.merge(data); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) merge(data []byte) error {
	// Sequences replace, so a user community replaces the default one.
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.GroupIndex = make(map[string]int, len(c.Groups))
	c.Derived.GroupSpecies = make(map[string]int, len(c.Groups))
	for i, g := range c.Groups {
		c.Derived.GroupIndex[g.Name] = i
	}
	c.Derived.SpeciesIndex = make(map[string]int, len(c.Species))
	c.Derived.LongLived = make(map[string]bool)
	for i := range c.Species {
		sp := &c.Species[i]
		c.Derived.SpeciesIndex[sp.Name] = i
		c.Derived.GroupSpecies[sp.Group]++
		if sp.MaxAge == 0 {
			c.Derived.LongLived[sp.Name] = true
			sp.MaxAge = c.Model.Years + 1
		}
		if sp.SlowRateProp == 0 {
			sp.SlowRateProp = 1
		}
	}
}

// SetYears changes the run length. Long-lived species keep outliving the run.
func (c *Config) SetYears(years int) {
	c.Model.Years = years
	for i := range c.Species {
		if c.Derived.LongLived[c.Species[i].Name] {
			c.Species[i].MaxAge = years + 1
		}
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
