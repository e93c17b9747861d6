package lmm

import (
	"fmt"
	"math"
)

// NormalSource is the randomness capability the Brownian driver consumes:
// independent standard normal draws. *math/rand.Rand satisfies it.
type NormalSource interface {
	NormFloat64() float64
}

// Motion is a d-dimensional correlated standard Brownian motion. It tracks
// the elapsed time of its last advance and the current value of each factor.
//
// Motion is stateful and path-dependent: advancing to the same time twice
// produces different values unless the NormalSource is replayed identically.
// It is owned by exactly one Model and is not safe for concurrent use.
type Motion struct {
	corr  *Correlation
	clock float64
	vals  []float64
	z     []float64 // scratch for one vector of independent draws
}

// NewMotion creates a Motion at time zero with all factor values zero.
func NewMotion(corr *Correlation) *Motion {
	d := corr.Dim()
	return &Motion{
		corr: corr,
		vals: make([]float64, d),
		z:    make([]float64, d),
	}
}

// Dim returns the number of factors.
func (b *Motion) Dim() int {
	return b.corr.Dim()
}

// Clock returns the elapsed time of the last advance.
func (b *Motion) Clock() float64 {
	return b.clock
}

// At returns the current Brownian value of factor k.
func (b *Motion) At(k int) float64 {
	return b.vals[k]
}

// Values returns a copy of the current factor values.
func (b *Motion) Values() []float64 {
	out := make([]float64, len(b.vals))
	copy(out, b.vals)
	return out
}

// Reset restores the motion to time zero with all factor values zero.
func (b *Motion) Reset() {
	b.clock = 0
	for i := range b.vals {
		b.vals[i] = 0
	}
}

// Advance moves the motion forward to elapsed time u, adding a correlated
// Gaussian increment of variance u - Clock() to every factor. One vector of
// d independent draws is consumed from src per call, including when the time
// step is zero. Moving backward in time is an error.
func (b *Motion) Advance(u float64, src NormalSource) error {
	dt := u - b.clock
	if dt < 0 {
		return fmt.Errorf("brownian motion cannot move backward: at time %g, asked for %g", b.clock, u)
	}
	for i := range b.z {
		b.z[i] = src.NormFloat64()
	}
	sd := math.Sqrt(dt)
	d := b.corr.Dim()
	for i := 0; i < d; i++ {
		// Lower-triangular product: increment_i = sum_{k<=i} L[i][k] * z[k].
		var incr float64
		for k := 0; k <= i; k++ {
			incr += b.corr.chol.At(i, k) * b.z[k]
		}
		b.vals[i] += sd * incr
	}
	b.clock = u
	return nil
}
