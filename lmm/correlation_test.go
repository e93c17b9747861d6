package lmm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCorrelation_Validation(t *testing.T) {
	tests := []struct {
		name string
		d    int
		data []float64
	}{
		{"zero dimension", 0, nil},
		{"wrong length", 2, []float64{1, 0, 0}},
		{"diagonal not one", 2, []float64{1, 0, 0, 0.9}},
		{"entry out of range", 2, []float64{1, 2, 2, 1}},
		{"singular matrix", 2, []float64{1, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCorrelation(tt.d, tt.data)
			assert.Error(t, err)
		})
	}
}

func TestNewCorrelation_Accessors(t *testing.T) {
	c, err := NewCorrelation(2, []float64{1, 0.3, 0.3, 1})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Dim())
	assert.Equal(t, 0.3, c.At(0, 1))
	assert.Equal(t, 0.3, c.At(1, 0))
	assert.Equal(t, 1.0, c.At(1, 1))
}

func TestIdentityCorrelation(t *testing.T) {
	c, err := IdentityCorrelation(4)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Dim())
	assert.Equal(t, 0.0, c.At(0, 3))
	assert.Equal(t, 1.0, c.At(2, 2))
}

func TestConstantCorrelation(t *testing.T) {
	c, err := ConstantCorrelation(3, 0.4)
	require.NoError(t, err)
	assert.Equal(t, 0.4, c.At(0, 2))

	// rho = -0.9 with d = 3 is below the -1/(d-1) positive-definiteness
	// bound and must be rejected at factorization.
	_, err = ConstantCorrelation(3, -0.9)
	assert.Error(t, err)
}
