package telemetry

import (
	"testing"
	"time"
)

// stepClock advances by the next scripted step on every call.
type stepClock struct {
	t     time.Time
	steps []time.Duration
}

func (c *stepClock) now() time.Time {
	if len(c.steps) > 0 {
		c.t = c.t.Add(c.steps[0])
		c.steps = c.steps[1:]
	}
	return c.t
}

func TestPhaseTimerTotals(t *testing.T) {
	// per year: StartYear, StartPhase(partition), StartPhase(mortality), EndYear
	clock := &stepClock{steps: []time.Duration{
		0, 0, 2 * time.Millisecond, 6 * time.Millisecond, // year 1: 8ms
		0, 0, 1 * time.Millisecond, 2 * time.Millisecond, // year 2: 3ms
		0, 0, 3 * time.Millisecond, 1 * time.Millisecond, // year 3: 4ms
	}}
	pt := NewPhaseTimer(3)
	pt.now = clock.now
	for range 3 {
		pt.StartYear()
		pt.StartPhase(PhasePartition)
		pt.StartPhase(PhaseMortality)
		pt.EndYear()
	}

	s := pt.Stats()
	if s.Years != 3 || s.Total != 15*time.Millisecond {
		t.Fatalf("years %d total %v, want 3 and 15ms", s.Years, s.Total)
	}
	if s.PhaseTotal[PhasePartition] != 6*time.Millisecond {
		t.Errorf("partition = %v, want 6ms", s.PhaseTotal[PhasePartition])
	}
	if s.PhaseTotal[PhaseMortality] != 9*time.Millisecond {
		t.Errorf("mortality = %v, want 9ms", s.PhaseTotal[PhaseMortality])
	}
	if s.MedianYear != 4*time.Millisecond {
		t.Errorf("median = %v, want 4ms", s.MedianYear)
	}
	if s.SlowestYear != 1 || s.SlowestDur != 8*time.Millisecond {
		t.Errorf("slowest = year %d %v, want year 1 8ms", s.SlowestYear, s.SlowestDur)
	}
	if got := s.Share(PhaseMortality); !near(got, 60) {
		t.Errorf("mortality share = %v, want 60", got)
	}
}

func TestPhaseTimerEmpty(t *testing.T) {
	s := NewPhaseTimer(0).Stats()
	if s.Years != 0 || s.Total != 0 || s.SlowestYear != 0 {
		t.Errorf("empty stats = %+v", s)
	}
	if s.Share(PhaseGrow) != 0 {
		t.Error("share of empty stats should be 0")
	}
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		ph   Phase
		want string
	}{
		{PhaseEstablish, "establish"},
		{PhaseEndOfYear, "end_of_year"},
		{numPhases, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.ph.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.ph, got, tt.want)
		}
	}
}

func TestPerfStats_ToCSV(t *testing.T) {
	s := PerfStats{Years: 4, Total: 20 * time.Millisecond, SlowestYear: 2, SlowestDur: 1500 * time.Microsecond}
	s.PhaseTotal[PhaseMortality] = 8 * time.Millisecond
	s.PhaseTotal[PhaseGrow] = 2500 * time.Microsecond
	row := s.ToCSV(3)
	if row.Iter != 3 || row.Years != 4 || row.TotalMS != 20 || row.SlowestYearUS != 1500 {
		t.Errorf("ToCSV = %+v", row)
	}
	if row.MortalityMS != 8 || row.GrowMS != 2.5 {
		t.Errorf("phase columns = %v %v, want 8 and 2.5", row.MortalityMS, row.GrowMS)
	}
}
