package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Entity kinds in output rows.
const (
	KindGroup   = "group"
	KindSpecies = "species"
)

// YearlyRecord is one entity's state in one year of one iteration.
type YearlyRecord struct {
	Iter    int     `csv:"iter"`
	Year    int     `csv:"year"`
	Kind    string  `csv:"kind"`
	Name    string  `csv:"name"`
	Biomass float64 `csv:"biomass"`
	RelSize float64 `csv:"relsize"`
	PR      float64 `csv:"pr"`     // groups only
	Indivs  int     `csv:"indivs"` // species only
	PPT     float64 `csv:"ppt"`
	Temp    float64 `csv:"temp"`
	Disturb string  `csv:"disturbance"`
}

// SummaryRecord aggregates one entity-year over all iterations.
type SummaryRecord struct {
	Year        int     `csv:"year"`
	Kind        string  `csv:"kind"`
	Name        string  `csv:"name"`
	BiomassMean float64 `csv:"biomass_mean"`
	BiomassStd  float64 `csv:"biomass_std"`
	BiomassP10  float64 `csv:"biomass_p10"`
	BiomassP90  float64 `csv:"biomass_p90"`
	RelSizeMean float64 `csv:"relsize_mean"`
	RelSizeStd  float64 `csv:"relsize_std"`
	PRMean      float64 `csv:"pr_mean"`
	PRStd       float64 `csv:"pr_std"`
	IndivsMean  float64 `csv:"indivs_mean"`
	IndivsStd   float64 `csv:"indivs_std"`
	PPTMean     float64 `csv:"ppt_mean"`
	PPTStd      float64 `csv:"ppt_std"`
	TempMean    float64 `csv:"temp_mean"`
	TempStd     float64 `csv:"temp_std"`
	Disturbed   int     `csv:"disturbed"` // iterations with a disturbed plot
}

// MortRecord aggregates kills at one age over all iterations.
type MortRecord struct {
	Kind      string  `csv:"kind"`
	Name      string  `csv:"name"`
	Age       int     `csv:"age"`
	KillsMean float64 `csv:"kills_mean"`
	KillsStd  float64 `csv:"kills_std"`
}

// EstabRecord aggregates per-iteration establishment totals.
type EstabRecord struct {
	Kind       string  `csv:"kind"`
	Name       string  `csv:"name"`
	EstabsMean float64 `csv:"estabs_mean"`
	EstabsStd  float64 `csv:"estabs_std"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// MeanStd returns the mean and sample standard deviation. A single value
// has zero deviation.
func MeanStd(values []float64) (mean, std float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// Describe calculates mean, sample std and the 10th/90th percentiles.
func Describe(values []float64) (mean, std, p10, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	mean, std = MeanStd(values)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return mean, std, Percentile(sorted, 0.10), Percentile(sorted, 0.90)
}

// LogValue implements slog.LogValuer for structured logging.
func (s SummaryRecord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("year", s.Year),
		slog.String("kind", s.Kind),
		slog.String("name", s.Name),
		slog.Float64("biomass_mean", s.BiomassMean),
		slog.Float64("biomass_std", s.BiomassStd),
		slog.Float64("relsize_mean", s.RelSizeMean),
		slog.Float64("pr_mean", s.PRMean),
		slog.Float64("indivs_mean", s.IndivsMean),
	)
}
