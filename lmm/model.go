// Package lmm implements a LIBOR Market Model forward-curve simulator.
//
// A Model is parameterized by increasing settlement times t[j], futures
// quotes phi[j], at-the-money caplet volatilities sigma[j], and a correlation
// matrix across Brownian factors. The j-th future covers the interval from
// t[j-1] to t[j] (with the convention t[-1] = 0), so phi[0] is the current
// short rate and sigma[0] = 0.
//
// The futures quote of interval j at time u is modeled log-normally,
//
//	Phi_j(u) = phi[j] * exp(sigma[j]*B_j(u) - sigma[j]^2*u/2),
//
// where B is d-dimensional correlated standard Brownian motion, and the
// forward rate is obtained by the convexity adjustment
//
//	F_j(u) = Phi_j(u) - sigma[j]^2 * (t[j-1]-u)^2 / 2.
package lmm

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrQueryBeyondGrid reports a query time at or beyond the last grid time.
// The model has no data describing forward intervals past its last maturity.
var ErrQueryBeyondGrid = errors.New("query time at or beyond last grid time")

// Model holds the market data of a LIBOR Market Model together with the
// correlated Brownian driver for one simulated path. The market-data slices
// are immutable after construction; only the driver's state evolves.
//
// A Model is not safe for concurrent Advance calls. Parallel path simulation
// needs one Model per goroutine (the market-data inputs may be shared).
type Model struct {
	t     []float64
	phi   []float64
	sigma []float64
	b     *Motion
}

// NewModel validates the market data and builds a Model. The grid, quotes and
// volatility slices must have equal positive length n, the grid must be
// strictly increasing, sigma[0] must be zero, and the correlation dimension
// must equal n. The slices are copied; the caller keeps ownership of its own.
func NewModel(t, phi, sigma []float64, corr *Correlation) (*Model, error) {
	n := len(t)
	if n < 1 {
		return nil, fmt.Errorf("time grid must have at least one point")
	}
	if len(phi) != n || len(sigma) != n {
		return nil, fmt.Errorf("grid, quotes and vols must have equal length: %d, %d, %d", n, len(phi), len(sigma))
	}
	// The implicit predecessor of t[0] is time zero, so the grid must be
	// strictly increasing starting above zero.
	prev := 0.0
	for i, ti := range t {
		if ti <= prev {
			return nil, fmt.Errorf("time grid must be strictly increasing from zero, got t[%d] = %g after %g", i, ti, prev)
		}
		prev = ti
	}
	if sigma[0] != 0 {
		return nil, fmt.Errorf("sigma[0] must be zero (the short rate carries no diffusion), got %g", sigma[0])
	}
	if corr.Dim() != n {
		return nil, fmt.Errorf("correlation dimension %d does not match grid size %d", corr.Dim(), n)
	}

	m := &Model{
		t:     append([]float64(nil), t...),
		phi:   append([]float64(nil), phi...),
		sigma: append([]float64(nil), sigma...),
		b:     NewMotion(corr),
	}
	return m, nil
}

// Size returns the number of grid points.
func (m *Model) Size() int {
	return len(m.t)
}

// Grid returns a copy of the time grid.
func (m *Model) Grid() []float64 {
	return append([]float64(nil), m.t...)
}

// Reset restores the Brownian driver to time zero. The market-data arrays are
// unchanged, so the Model is ready to simulate a fresh path.
func (m *Model) Reset() {
	m.b.Reset()
}

// Advance samples the forward curve at time u into fwd and returns the index
// of the first still-live grid point, i.e. the smallest j with t[j] > u.
//
// Entries fwd[j..n-1] are overwritten with convexity-adjusted forward rates;
// entries below j belong to already-settled intervals and are left untouched.
// fwd must have at least Size() elements.
//
// Advance mutates the Brownian driver, so successive calls on one path must
// use non-decreasing query times. If u is at or beyond the last grid time the
// call fails with ErrQueryBeyondGrid before the driver or buffer is touched.
func (m *Model) Advance(u float64, fwd []float64, src NormalSource) (int, error) {
	n := len(m.t)
	if len(fwd) < n {
		return 0, fmt.Errorf("forward buffer has %d entries, need %d", len(fwd), n)
	}
	// Upper bound: first index with t[j] strictly greater than u, so a query
	// exactly at a grid time treats that index as settled.
	j := sort.Search(n, func(i int) bool { return m.t[i] > u })
	if j == n {
		return 0, fmt.Errorf("no settlement after u = %g, last grid time is %g: %w", u, m.t[n-1], ErrQueryBeyondGrid)
	}

	if err := m.b.Advance(u, src); err != nil {
		return 0, err
	}

	for k := j; k < n; k++ {
		// Futures quote under the martingale measure.
		fwd[k] = m.phi[k] * math.Exp(m.sigma[k]*m.b.At(k)-m.sigma[k]*m.sigma[k]*u/2)
		// Convexity adjustment: the k-th future settles at t[k-1].
		if k > 0 {
			dt := m.t[k-1] - u
			fwd[k] -= m.sigma[k] * m.sigma[k] * dt * dt / 2
		}
	}

	return j, nil
}
