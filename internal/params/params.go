// Package params defines the tunable parameter set shared by the energy
// operator, the resonance analyzer, and the coherence tuner.
package params

import (
	"math"

	"rrf/internal/errors"
)

// Parameters is the snapshot of tunable knobs for a single run. Parameters
// are mutated only by the tuner between runs, never during a run.
type Parameters struct {
	// PotentialStrength scales the logarithmic diagonal potential
	PotentialStrength float64 `json:"potentialStrength" toml:"potential_strength"`
	// StepSize is the explicit evolution time step
	StepSize float64 `json:"stepSize" toml:"step_size"`
	// ExcitationScale scales the text-derived excitation before injection
	ExcitationScale float64 `json:"excitationScale" toml:"excitation_scale"`
}

// Bounds is the valid range for each tunable parameter
type Bounds struct {
	PotentialMin float64 `json:"potentialMin" mapstructure:"potentialMin"`
	PotentialMax float64 `json:"potentialMax" mapstructure:"potentialMax"`
	StepMin      float64 `json:"stepMin" mapstructure:"stepMin"`
	StepMax      float64 `json:"stepMax" mapstructure:"stepMax"`
	ScaleMin     float64 `json:"scaleMin" mapstructure:"scaleMin"`
	ScaleMax     float64 `json:"scaleMax" mapstructure:"scaleMax"`
}

// Defaults returns the documented cold-start parameters
func Defaults() Parameters {
	return Parameters{
		PotentialStrength: 1.0,
		StepSize:          0.05,
		ExcitationScale:   0.1,
	}
}

// DefaultBounds returns the default valid parameter ranges. The step upper
// bound deliberately admits values past the stable region for the default
// operator; the analyzer's divergence guard catches those at run time.
func DefaultBounds() Bounds {
	return Bounds{
		PotentialMin: 0.0,
		PotentialMax: 50.0,
		StepMin:      1e-4,
		StepMax:      2.0,
		ScaleMin:     1e-3,
		ScaleMax:     10.0,
	}
}

// Validate checks that every parameter is finite and within bounds.
// A violation is a DEGENERATE_PARAMETER error naming the offending knob.
func (p Parameters) Validate(b Bounds) error {
	checks := []struct {
		name     string
		val      float64
		min, max float64
	}{
		{"potentialStrength", p.PotentialStrength, b.PotentialMin, b.PotentialMax},
		{"stepSize", p.StepSize, b.StepMin, b.StepMax},
		{"excitationScale", p.ExcitationScale, b.ScaleMin, b.ScaleMax},
	}

	for _, c := range checks {
		if math.IsNaN(c.val) || math.IsInf(c.val, 0) {
			return errors.Newf(errors.DegenerateParameter, "%s is not finite: %v", c.name, c.val)
		}
		if c.val < c.min || c.val > c.max {
			return errors.Newf(errors.DegenerateParameter,
				"%s = %v outside [%v, %v]", c.name, c.val, c.min, c.max)
		}
	}
	return nil
}

// Clamp returns a copy with every parameter forced into bounds. Non-finite
// values collapse to the corresponding default.
func (p Parameters) Clamp(b Bounds) Parameters {
	d := Defaults()
	return Parameters{
		PotentialStrength: clamp(p.PotentialStrength, b.PotentialMin, b.PotentialMax, d.PotentialStrength),
		StepSize:          clamp(p.StepSize, b.StepMin, b.StepMax, d.StepSize),
		ExcitationScale:   clamp(p.ExcitationScale, b.ScaleMin, b.ScaleMax, d.ExcitationScale),
	}
}

func clamp(v, min, max, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
