// Package sim drives whole runs: independent iterations of the yearly
// population cycle, executed concurrently, feeding one collector.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/steppe/components"
	"github.com/pthm-cable/steppe/config"
	"github.com/pthm-cable/steppe/population"
	"github.com/pthm-cable/steppe/systems"
	"github.com/pthm-cable/steppe/telemetry"
)

// Options configures a run.
type Options struct {
	Config      *config.Config
	Seed        uint64 // 0 = time-based
	Workers     int    // concurrent iterations (0 = GOMAXPROCS)
	CheckSizes  bool   // reconcile sizes after growth and mortality
	Output      *telemetry.OutputManager
	SnapshotDir string // plot snapshots of the first iteration
	Logger      *slog.Logger
}

// Result is a finished run.
type Result struct {
	Seed      uint64
	Collector *telemetry.Collector
	Bookmarks int
	Duration  time.Duration
}

// RunError locates a fatal error within a run.
type RunError struct {
	Iter int
	Year int
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("iteration %d year %d: %v", e.Iter, e.Year, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

type runner struct {
	opts    Options
	cfg     *config.Config
	log     *slog.Logger
	seed    uint64
	groups  []population.GroupParams
	species []population.SpeciesParams
	table   *systems.TableProvider

	// enabled groups, in registry order
	groupIDs   []population.GroupID
	groupNames []string

	collector *telemetry.Collector
	bookmarks atomic.Int64
}

// Run executes every iteration of the configured model and returns the
// collected results. The first iteration error cancels the run.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("sim: nil config")
	}
	r := &runner{opts: opts, cfg: opts.Config, log: opts.Logger, seed: opts.Seed}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.seed == 0 {
		r.seed = uint64(time.Now().UnixNano())
	}

	var err error
	r.groups, r.species, err = population.ParamsFromConfig(r.cfg)
	if err != nil {
		return nil, err
	}
	if path := r.cfg.Resources.Table; path != "" {
		if r.table, err = systems.LoadTable(path); err != nil {
			return nil, err
		}
		r.log.Info("resource table loaded", "path", path, "rows", r.table.Len())
	}

	template, err := population.NewStore(r.groups, r.species, r.log)
	if err != nil {
		return nil, err
	}
	for _, g := range template.Groups {
		if g.UseMe {
			r.groupIDs = append(r.groupIDs, g.ID)
			r.groupNames = append(r.groupNames, g.Name)
		}
	}
	years, iters := r.cfg.Model.Years, r.cfg.Model.Iterations
	r.collector = telemetry.NewCollector(template, years, iters)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	r.log.Info("starting run",
		"seed", r.seed,
		"years", years,
		"iterations", iters,
		"workers", workers,
		"groups", len(r.groupIDs),
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for iter := range iters {
		g.Go(func() error {
			return r.iterate(gctx, iter)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Seed:      r.seed,
		Collector: r.collector,
		Bookmarks: int(r.bookmarks.Load()),
		Duration:  time.Since(start),
	}
	r.log.Info("run complete", "duration", res.Duration.Round(time.Millisecond), "bookmarks", res.Bookmarks)
	return res, nil
}

// iterate runs one iteration on its own store and random stream.
func (r *runner) iterate(ctx context.Context, iter int) error {
	log := r.log.With("iter", iter+1)
	st, err := population.NewStore(r.groups, r.species, log)
	if err != nil {
		return &RunError{Iter: iter + 1, Err: err}
	}
	st.Reset()
	st.Iter = iter + 1

	src := rand.NewPCG(r.seed, uint64(iter))
	rng := rand.New(src)
	weather := systems.NewWeather(r.cfg, src)
	part := &systems.Partitioner{}
	if r.table != nil {
		part.Provider, part.Observer = r.table, r.table
	}

	env := &components.Environment{}
	plot := &components.Plot{}
	perf := telemetry.NewPhaseTimer(r.cfg.Model.Years)
	detector := telemetry.NewBookmarkDetector(iter+1, r.groupNames)
	biomass := make([]float64, len(r.groupIDs))
	checkSizes := r.opts.CheckSizes || r.cfg.Model.CheckSizes
	marked := 0

	for year := 1; year <= r.cfg.Model.Years; year++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		st.Year = year
		perf.StartYear()

		perf.StartPhase(telemetry.PhaseEstablish)
		systems.Establish(st, plot, rng)

		perf.StartPhase(telemetry.PhaseEnvironment)
		weather.Next(env, plot, rng)

		perf.StartPhase(telemetry.PhasePartition)
		part.Partition(st, env, rng)

		perf.StartPhase(telemetry.PhaseGrow)
		systems.Grow(st, env, rng)
		if checkSizes {
			st.CheckSizes("growth")
		}

		perf.StartPhase(telemetry.PhaseMortality)
		if err := systems.Mortality(st, env, plot, rng); err != nil {
			return &RunError{Iter: iter + 1, Year: year, Err: err}
		}
		if checkSizes {
			st.CheckSizes("mortality")
		}
		st.IncrAges()

		perf.StartPhase(telemetry.PhaseStats)
		r.collector.RecordYear(iter, st, env, plot)
		for i, gid := range r.groupIDs {
			biomass[i] = st.GroupBiomass(gid)
		}
		for _, bm := range detector.Check(year, biomass, env.WetDry) {
			marked++
			r.handleBookmark(log, bm, st, env, plot, iter)
		}

		perf.StartPhase(telemetry.PhaseEndOfYear)
		if year == r.cfg.Model.Years && iter == 0 {
			r.saveSnapshot(log, telemetry.TakeSnapshot(st, env, plot, r.seed))
		}
		systems.EndOfYear(st, rng)
		perf.EndYear()
	}

	r.collector.RecordIteration(iter, st)
	r.bookmarks.Add(int64(marked))

	stats := perf.Stats()
	if err := r.opts.Output.WritePerf(stats, iter+1); err != nil {
		log.Error("failed to write perf", "error", err)
	}
	log.Debug("iteration complete", "individuals", st.Count(), "perf", stats)
	return nil
}

func (r *runner) handleBookmark(log *slog.Logger, bm telemetry.Bookmark, st *population.Store, env *components.Environment, plot *components.Plot, iter int) {
	bm.LogBookmark(log)
	if err := r.opts.Output.WriteBookmark(bm); err != nil {
		log.Error("failed to write bookmark", "error", err)
	}
	if iter == 0 {
		snap := telemetry.TakeSnapshot(st, env, plot, r.seed)
		snap.Bookmark = &bm
		r.saveSnapshot(log, snap)
	}
}

func (r *runner) saveSnapshot(log *slog.Logger, snap *telemetry.Snapshot) {
	if r.opts.SnapshotDir == "" {
		return
	}
	path, err := telemetry.SaveSnapshot(snap, r.opts.SnapshotDir)
	if err != nil {
		log.Error("failed to save snapshot", "error", err)
		return
	}
	log.Debug("snapshot saved", "path", path)
}
