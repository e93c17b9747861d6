// Package scenario defines the YAML scenario format that parameterizes a
// forward-curve simulation: the futures grid, market quotes, caplet vols,
// factor correlation and run controls.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lmm-sim/lmm-sim/lmm"
)

// Correlation kinds accepted in a scenario file.
const (
	CorrIdentity = "identity"
	CorrConstant = "constant"
	CorrFull     = "full"
)

// ValidCorrelationKinds is the set of recognized correlation kinds.
// The empty string defaults to identity.
var ValidCorrelationKinds = map[string]bool{"": true, CorrIdentity: true, CorrConstant: true, CorrFull: true}

// CorrelationSpec selects the factor correlation structure.
type CorrelationSpec struct {
	Kind string    `yaml:"kind"`           // "identity" (default), "constant", "full"
	Rho  float64   `yaml:"rho,omitempty"`  // off-diagonal value for kind=constant
	Data []float64 `yaml:"data,omitempty"` // row-major n x n matrix for kind=full
}

// Scenario is the top-level simulation configuration, loaded from YAML via
// Load(path). Quotes and vols may be quoted in percent (units: percent) or as
// decimals (the default).
type Scenario struct {
	Name        string          `yaml:"name,omitempty"`
	Seed        int64           `yaml:"seed"`
	Paths       int             `yaml:"paths"`
	Units       string          `yaml:"units,omitempty"` // "decimal" (default) or "percent"
	Grid        []float64       `yaml:"grid"`
	Quotes      []float64       `yaml:"quotes"`
	Vols        []float64       `yaml:"vols"`
	Correlation CorrelationSpec `yaml:"correlation"`
	QueryTimes  []float64       `yaml:"query_times"`
}

// Load reads and parses a YAML scenario file and validates it.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks structural consistency of the scenario. Market-data
// invariants that the model itself verifies (strictly increasing grid, zero
// short vol, positive-definite correlation) are re-checked at Build.
func (s *Scenario) Validate() error {
	n := len(s.Grid)
	if n == 0 {
		return fmt.Errorf("grid must have at least one time point")
	}
	if len(s.Quotes) != n || len(s.Vols) != n {
		return fmt.Errorf("grid, quotes and vols must have equal length: %d, %d, %d", n, len(s.Quotes), len(s.Vols))
	}
	if s.Paths < 0 {
		return fmt.Errorf("paths must be non-negative, got %d", s.Paths)
	}
	if s.Units != "" && s.Units != "decimal" && s.Units != "percent" {
		return fmt.Errorf("unknown units %q", s.Units)
	}
	if !ValidCorrelationKinds[s.Correlation.Kind] {
		return fmt.Errorf("unknown correlation kind %q", s.Correlation.Kind)
	}
	if s.Correlation.Kind == CorrFull && len(s.Correlation.Data) != n*n {
		return fmt.Errorf("full correlation needs %d entries for %d grid points, got %d", n*n, n, len(s.Correlation.Data))
	}
	if len(s.QueryTimes) == 0 {
		return fmt.Errorf("query_times must name at least one sampling time")
	}
	prev := -1.0
	for i, u := range s.QueryTimes {
		if u < 0 {
			return fmt.Errorf("query_times[%d] must be non-negative, got %g", i, u)
		}
		if u < prev {
			return fmt.Errorf("query_times must be non-decreasing, got %g after %g", u, prev)
		}
		prev = u
	}
	return nil
}

// Build constructs the correlation structure and the model from the scenario.
// Percent-quoted market data is converted to decimals here.
func (s *Scenario) Build() (*lmm.Model, error) {
	n := len(s.Grid)

	var corr *lmm.Correlation
	var err error
	switch s.Correlation.Kind {
	case "", CorrIdentity:
		corr, err = lmm.IdentityCorrelation(n)
	case CorrConstant:
		corr, err = lmm.ConstantCorrelation(n, s.Correlation.Rho)
	case CorrFull:
		corr, err = lmm.NewCorrelation(n, s.Correlation.Data)
	default:
		return nil, fmt.Errorf("unknown correlation kind %q", s.Correlation.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("building correlation: %w", err)
	}

	quotes := s.Quotes
	vols := s.Vols
	if s.Units == "percent" {
		quotes = scale(quotes, 0.01)
		vols = scale(vols, 0.01)
	}

	model, err := lmm.NewModel(s.Grid, quotes, vols, corr)
	if err != nil {
		return nil, fmt.Errorf("building model: %w", err)
	}
	return model, nil
}

func scale(xs []float64, by float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x * by
	}
	return out
}
