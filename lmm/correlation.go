package lmm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Correlation describes the co-movement of the d Brownian factors driving the
// model. It holds the d x d correlation matrix together with its lower
// Cholesky factor, computed once at construction so that every Advance call
// can draw correlated increments without re-factorizing.
type Correlation struct {
	dim  int
	rho  *mat.SymDense
	chol *mat.TriDense
}

// NewCorrelation builds a Correlation from a row-major d x d matrix.
// The matrix must have a unit diagonal, off-diagonal entries in [-1, 1],
// and be positive definite.
func NewCorrelation(d int, data []float64) (*Correlation, error) {
	if d < 1 {
		return nil, fmt.Errorf("correlation dimension must be positive, got %d", d)
	}
	if len(data) != d*d {
		return nil, fmt.Errorf("correlation matrix needs %d entries for dimension %d, got %d", d*d, d, len(data))
	}
	for i := 0; i < d; i++ {
		if data[i*d+i] != 1 {
			return nil, fmt.Errorf("correlation diagonal entry (%d,%d) must be 1, got %f", i, i, data[i*d+i])
		}
		for j := 0; j < d; j++ {
			if v := data[i*d+j]; v < -1 || v > 1 {
				return nil, fmt.Errorf("correlation entry (%d,%d) out of [-1,1]: %f", i, j, v)
			}
		}
	}
	rho := mat.NewSymDense(d, data)

	var chol mat.Cholesky
	if ok := chol.Factorize(rho); !ok {
		return nil, fmt.Errorf("correlation matrix is not positive definite")
	}
	l := mat.NewTriDense(d, mat.Lower, nil)
	chol.LTo(l)

	return &Correlation{dim: d, rho: rho, chol: l}, nil
}

// IdentityCorrelation returns the d-dimensional identity correlation
// (independent factors).
func IdentityCorrelation(d int) (*Correlation, error) {
	data := make([]float64, d*d)
	for i := 0; i < d; i++ {
		data[i*d+i] = 1
	}
	return NewCorrelation(d, data)
}

// ConstantCorrelation returns the d-dimensional matrix with every off-diagonal
// entry equal to rho. Positive definiteness requires rho in (-1/(d-1), 1) for
// d > 1; values outside that range are rejected by the factorization.
func ConstantCorrelation(d int, rho float64) (*Correlation, error) {
	data := make([]float64, d*d)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			if i == j {
				data[i*d+j] = 1
			} else {
				data[i*d+j] = rho
			}
		}
	}
	return NewCorrelation(d, data)
}

// Dim returns the number of Brownian factors.
func (c *Correlation) Dim() int {
	return c.dim
}

// At returns the correlation between factors i and j.
func (c *Correlation) At(i, j int) float64 {
	return c.rho.At(i, j)
}
