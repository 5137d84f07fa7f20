package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pthm-cable/steppe/config"
	"github.com/pthm-cable/steppe/sim"
)

// FitnessEvaluator runs the model for a parameter vector and scores the
// final-years mean biomass against the targets (lower = better).
type FitnessEvaluator struct {
	params     *ParamVector
	targets    []Target
	seeds      []uint64
	window     int // final years averaged
	workers    int
	baseConfig *config.Config
	logger     *slog.Logger

	cache *lru.Cache[string, float64]

	mu       sync.Mutex
	hits     int
	lastMean []float64 // mean biomass per target from the most recent run
}

// NewFitnessEvaluator creates a new evaluator caching up to cacheSize
// results.
func NewFitnessEvaluator(params *ParamVector, targets []Target, seeds []uint64, window, workers, cacheSize int, baseCfg *config.Config) (*FitnessEvaluator, error) {
	cache, err := lru.New[string, float64](max(cacheSize, 1))
	if err != nil {
		return nil, fmt.Errorf("creating evaluation cache: %w", err)
	}
	return &FitnessEvaluator{
		params:     params,
		targets:    targets,
		seeds:      seeds,
		window:     max(window, 1),
		workers:    workers,
		baseConfig: baseCfg,
		logger:     slog.New(slog.DiscardHandler),
		cache:      cache,
	}, nil
}

// CacheHits returns how many evaluations were served from the cache.
func (fe *FitnessEvaluator) CacheHits() int {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.hits
}

// LastMeans returns the per-target mean biomass of the most recent run.
func (fe *FitnessEvaluator) LastMeans() []float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return append([]float64(nil), fe.lastMean...)
}

// cacheKey rounds the clamped vector so nearby simplex points that map to the
// same bounded parameters share a result.
func cacheKey(v []float64) string {
	var b strings.Builder
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%.5f", x)
	}
	return b.String()
}

// Evaluate returns the mean relative squared error over seeds and targets.
// A failed run scores +Inf.
func (fe *FitnessEvaluator) Evaluate(ctx context.Context, raw []float64) float64 {
	x := fe.params.Clamp(raw)
	key := cacheKey(x)
	if f, ok := fe.cache.Get(key); ok {
		fe.mu.Lock()
		fe.hits++
		fe.mu.Unlock()
		return f
	}

	cfg := fe.params.ApplyToConfig(fe.baseConfig, x)
	means := make([]float64, len(fe.targets))
	var total float64
	for _, seed := range fe.seeds {
		res, err := sim.Run(ctx, sim.Options{
			Config:  cfg,
			Seed:    seed,
			Workers: fe.workers,
			Logger:  fe.logger,
		})
		if err != nil {
			slog.Warn("evaluation failed", "seed", seed, "error", err)
			return math.Inf(1)
		}
		for i, t := range fe.targets {
			m, _ := res.Collector.MeanBiomass(t.Species, fe.window)
			means[i] += m / float64(len(fe.seeds))
			total += RelError(m, t.Biomass)
		}
	}
	fitness := total / float64(len(fe.seeds)*len(fe.targets))

	fe.cache.Add(key, fitness)
	fe.mu.Lock()
	fe.lastMean = means
	fe.mu.Unlock()
	return fitness
}

// RelError is the squared error relative to the target.
func RelError(got, want float64) float64 {
	d := (got - want) / want
	return d * d
}
