// Package montecarlo runs repeated forward-curve paths through one model and
// aggregates the sampled rates per maturity.
package montecarlo

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/lmm-sim/lmm-sim/lmm"
)

// Runner drives one Model through many simulated paths. Each path resets the
// model, then advances through the configured query times in order, sampling
// the live part of the curve at each. Paths draw from isolated RNG streams
// derived from the run key, so path p is reproducible regardless of the total
// path count.
//
// Runner owns its Model exclusively and is not safe for concurrent use.
// Parallel simulation needs one Runner (and one Model) per goroutine.
type Runner struct {
	model *lmm.Model
	key   lmm.SimulationKey
	paths int
	times []float64
}

// NewRunner validates the run controls and builds a Runner. Query times must
// be non-decreasing because each path advances a single Brownian driver.
func NewRunner(model *lmm.Model, key lmm.SimulationKey, paths int, queryTimes []float64) (*Runner, error) {
	if paths < 1 {
		return nil, fmt.Errorf("paths must be positive, got %d", paths)
	}
	if len(queryTimes) == 0 {
		return nil, fmt.Errorf("at least one query time is required")
	}
	prev := -1.0
	for i, u := range queryTimes {
		if u < 0 {
			return nil, fmt.Errorf("query time %d must be non-negative, got %g", i, u)
		}
		if u < prev {
			return nil, fmt.Errorf("query times must be non-decreasing, got %g after %g", u, prev)
		}
		prev = u
	}
	return &Runner{
		model: model,
		key:   key,
		paths: paths,
		times: append([]float64(nil), queryTimes...),
	}, nil
}

// Summary aggregates the sampled forward rates at one query time across all
// paths. The per-maturity slices are indexed by grid position; entries below
// FirstLive belong to settled intervals and are zero.
type Summary struct {
	QueryTime float64
	FirstLive int
	Grid      []float64
	Mean      []float64
	StdDev    []float64
	StdErr    []float64
	Min       []float64
	Max       []float64
	Paths     int
}

// Run simulates every path and returns one Summary per query time.
func (r *Runner) Run() ([]*Summary, error) {
	n := r.model.Size()
	nq := len(r.times)

	// samples[q][k][p]: forward rate of maturity k at query time q on path p.
	samples := make([][][]float64, nq)
	for q := range samples {
		samples[q] = make([][]float64, n)
		for k := range samples[q] {
			samples[q][k] = make([]float64, 0, r.paths)
		}
	}
	firstLive := make([]int, nq)

	logrus.Infof("running %d paths over %d query times (%d maturities)", r.paths, nq, n)

	rng := lmm.NewPartitionedRNG(r.key)
	fwd := make([]float64, n)
	for p := 0; p < r.paths; p++ {
		r.model.Reset()
		src := rng.ForSubsystem(lmm.SubsystemPath(p))
		for q, u := range r.times {
			j, err := r.model.Advance(u, fwd, src)
			if err != nil {
				return nil, fmt.Errorf("path %d, query time %g: %w", p, u, err)
			}
			firstLive[q] = j
			for k := j; k < n; k++ {
				samples[q][k] = append(samples[q][k], fwd[k])
			}
		}
		logrus.Debugf("path %d complete", p)
	}

	summaries := make([]*Summary, nq)
	for q := range summaries {
		summaries[q] = r.summarize(r.times[q], firstLive[q], samples[q])
	}
	return summaries, nil
}

func (r *Runner) summarize(u float64, firstLive int, byMaturity [][]float64) *Summary {
	n := r.model.Size()
	s := &Summary{
		QueryTime: u,
		FirstLive: firstLive,
		Grid:      r.model.Grid(),
		Mean:      make([]float64, n),
		StdDev:    make([]float64, n),
		StdErr:    make([]float64, n),
		Min:       make([]float64, n),
		Max:       make([]float64, n),
		Paths:     r.paths,
	}
	for k := firstLive; k < n; k++ {
		xs := byMaturity[k]
		s.Mean[k] = stat.Mean(xs, nil)
		if len(xs) > 1 {
			s.StdDev[k] = stat.StdDev(xs, nil)
			s.StdErr[k] = stat.StdErr(s.StdDev[k], float64(len(xs)))
		}
		s.Min[k] = floats.Min(xs)
		s.Max[k] = floats.Max(xs)
	}
	return s
}
