package telemetry

import (
	"log/slog"
	"slices"
	"time"
)

// Phase is one step of the simulated year.
type Phase int

const (
	PhaseEstablish Phase = iota
	PhaseEnvironment
	PhasePartition
	PhaseGrow
	PhaseMortality
	PhaseStats
	PhaseEndOfYear
	numPhases
)

var phaseNames = [numPhases]string{
	"establish", "environment", "partition", "grow", "mortality", "stats", "end_of_year",
}

func (p Phase) String() string {
	if p < 0 || p >= numPhases {
		return "unknown"
	}
	return phaseNames[p]
}

// PhaseTimer accumulates wall time per phase across the years of one
// iteration, and the duration of each year.
type PhaseTimer struct {
	now func() time.Time

	totals    [numPhases]time.Duration
	years     []time.Duration
	yearStart time.Time
	mark      time.Time
	current   Phase
	inPhase   bool
}

// NewPhaseTimer creates a timer sized for the given number of years.
func NewPhaseTimer(years int) *PhaseTimer {
	return &PhaseTimer{now: time.Now, years: make([]time.Duration, 0, max(years, 0))}
}

// StartYear begins timing a simulated year.
func (t *PhaseTimer) StartYear() {
	t.yearStart = t.now()
	t.inPhase = false
}

// StartPhase closes the running phase, if any, and starts timing ph.
func (t *PhaseTimer) StartPhase(ph Phase) {
	now := t.now()
	t.closePhase(now)
	t.mark = now
	t.current = ph
	t.inPhase = true
}

// EndYear closes the running phase and records the year's duration.
func (t *PhaseTimer) EndYear() {
	now := t.now()
	t.closePhase(now)
	t.inPhase = false
	t.years = append(t.years, now.Sub(t.yearStart))
}

func (t *PhaseTimer) closePhase(now time.Time) {
	if t.inPhase {
		t.totals[t.current] += now.Sub(t.mark)
	}
}

// PerfStats summarises one iteration's timing.
type PerfStats struct {
	Years       int
	Total       time.Duration // sum of year durations
	MedianYear  time.Duration
	SlowestYear int // 1-based; 0 when no year was timed
	SlowestDur  time.Duration
	PhaseTotal  [numPhases]time.Duration
}

// Stats summarises the years timed so far.
func (t *PhaseTimer) Stats() PerfStats {
	s := PerfStats{Years: len(t.years), PhaseTotal: t.totals}
	if len(t.years) == 0 {
		return s
	}
	us := make([]float64, len(t.years))
	for i, d := range t.years {
		s.Total += d
		us[i] = float64(d.Microseconds())
		if d > s.SlowestDur || s.SlowestYear == 0 {
			s.SlowestDur = d
			s.SlowestYear = i + 1
		}
	}
	slices.Sort(us)
	s.MedianYear = time.Duration(Percentile(us, 0.5)) * time.Microsecond
	return s
}

// Share returns the phase's percentage of all phase time.
func (s PerfStats) Share(ph Phase) float64 {
	var sum time.Duration
	for _, d := range s.PhaseTotal {
		sum += d
	}
	if sum == 0 {
		return 0
	}
	return float64(s.PhaseTotal[ph]) / float64(sum) * 100
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("years", s.Years),
		slog.Int64("total_ms", s.Total.Milliseconds()),
		slog.Int64("median_year_us", s.MedianYear.Microseconds()),
		slog.Int("slowest_year", s.SlowestYear),
	}
	for ph := range numPhases {
		if pct := s.Share(ph); pct > 0.1 {
			attrs = append(attrs, slog.Float64(ph.String()+"_pct", float64(int(pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Iter          int     `csv:"iter"`
	Years         int     `csv:"years"`
	TotalMS       float64 `csv:"total_ms"`
	MedianYearUS  int64   `csv:"median_year_us"`
	SlowestYear   int     `csv:"slowest_year"`
	SlowestYearUS int64   `csv:"slowest_year_us"`
	EstablishMS   float64 `csv:"establish_ms"`
	EnvironmentMS float64 `csv:"environment_ms"`
	PartitionMS   float64 `csv:"partition_ms"`
	GrowMS        float64 `csv:"grow_ms"`
	MortalityMS   float64 `csv:"mortality_ms"`
	StatsMS       float64 `csv:"stats_ms"`
	EndOfYearMS   float64 `csv:"end_of_year_ms"`
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(iter int) PerfStatsCSV {
	return PerfStatsCSV{
		Iter:          iter,
		Years:         s.Years,
		TotalMS:       ms(s.Total),
		MedianYearUS:  s.MedianYear.Microseconds(),
		SlowestYear:   s.SlowestYear,
		SlowestYearUS: s.SlowestDur.Microseconds(),
		EstablishMS:   ms(s.PhaseTotal[PhaseEstablish]),
		EnvironmentMS: ms(s.PhaseTotal[PhaseEnvironment]),
		PartitionMS:   ms(s.PhaseTotal[PhasePartition]),
		GrowMS:        ms(s.PhaseTotal[PhaseGrow]),
		MortalityMS:   ms(s.PhaseTotal[PhaseMortality]),
		StatsMS:       ms(s.PhaseTotal[PhaseStats]),
		EndOfYearMS:   ms(s.PhaseTotal[PhaseEndOfYear]),
	}
}
