// Package operator builds the discrete Hamiltonian-style energy operator
// over the icosahedral substrate. Off-diagonal entries couple adjacent
// nodes with a fixed constant; diagonal entries carry a logarithmic
// potential of the node state. The matrix is rebuilt whole on every
// parameter change rather than patched in place.
package operator

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"rrf/internal/errors"
	"rrf/internal/field"
	"rrf/internal/params"
)

// DefaultCoupling is the off-diagonal coupling constant. Geometric distance
// is uniform across edges of a regular icosahedron, so a single constant
// captures it.
const DefaultCoupling = 0.1

// maxStateMagnitude caps the state magnitude entering the log potential so
// a runaway state cannot push the diagonal to infinity.
const maxStateMagnitude = 1e12

// Config holds operator construction settings
type Config struct {
	// Coupling is the off-diagonal entry for adjacent node pairs
	Coupling float64
	// Bounds is the valid range for tunable parameters
	Bounds params.Bounds
}

// DefaultConfig returns the default operator configuration
func DefaultConfig() Config {
	return Config{
		Coupling: DefaultCoupling,
		Bounds:   params.DefaultBounds(),
	}
}

// Operator constructs energy operator matrices for a substrate. It holds
// only immutable configuration and is safe for concurrent use; each Build
// returns a fresh matrix the caller owns.
type Operator struct {
	substrate *field.Substrate
	cfg       Config
}

// New creates an Operator over the given substrate
func New(substrate *field.Substrate, cfg Config) *Operator {
	if cfg.Coupling == 0 {
		cfg.Coupling = DefaultCoupling
	}
	return &Operator{substrate: substrate, cfg: cfg}
}

// Bounds returns the parameter bounds the operator validates against
func (o *Operator) Bounds() params.Bounds {
	return o.cfg.Bounds
}

// Build constructs the operator matrix for the given parameters and node
// state. SymDense storage makes the symmetry invariant structural rather
// than something each write has to maintain.
func (o *Operator) Build(p params.Parameters, state []float64) (*mat.SymDense, error) {
	if err := p.Validate(o.cfg.Bounds); err != nil {
		return nil, err
	}
	if len(state) != field.NumNodes {
		return nil, errors.Newf(errors.InternalError,
			"state length %d, want %d", len(state), field.NumNodes)
	}

	h := mat.NewSymDense(field.NumNodes, nil)
	for i := 0; i < field.NumNodes; i++ {
		h.SetSym(i, i, p.PotentialStrength*logPotential(state[i]))
		for j := i + 1; j < field.NumNodes; j++ {
			if o.substrate.Adjacent(i, j) {
				h.SetSym(i, j, o.cfg.Coupling)
			}
		}
	}
	return h, nil
}

// Energy returns the quadratic form (1/2) stateᵀ·H·state
func Energy(h *mat.SymDense, state []float64) float64 {
	x := mat.NewVecDense(len(state), state)
	return 0.5 * mat.Inner(x, h, x)
}

// logPotential evaluates log(1+|s|) with the magnitude clamped so the
// argument stays finite and strictly above the log domain edge.
func logPotential(s float64) float64 {
	m := math.Abs(s)
	if math.IsNaN(m) || m > maxStateMagnitude {
		m = maxStateMagnitude
	}
	return math.Log1p(m)
}
