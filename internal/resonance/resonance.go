// Package resonance maps input text onto the icosahedral substrate, evolves
// it under the energy operator, and measures the spectral coherence of the
// resulting signal.
//
// A run is a single pipeline: text → excitation → injection → evolution →
// waveform → spectrum → coherence. Every stage is deterministic; identical
// text and parameters always produce bit-identical output. Each run owns
// its own state buffer, so independent runs may execute concurrently.
package resonance

import (
	"context"
	"math"
	"math/cmplx"
	"strings"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"rrf/internal/errors"
	"rrf/internal/field"
	"rrf/internal/operator"
	"rrf/internal/params"
)

// Config holds the fixed analysis constants
type Config struct {
	// ExcitationLength is the length of the text-derived excitation sequence
	ExcitationLength int
	// Steps is the number of discrete evolution steps (waveform length)
	Steps int
	// MagnitudeCeiling is the state norm above which a run is declared
	// divergent and abandoned
	MagnitudeCeiling float64
	// SampleRate maps spectrum bins to frequencies
	SampleRate float64
	// BaseFrequency anchors harmonic quantization of the dominant frequency
	BaseFrequency float64
}

// DefaultConfig returns the default analysis constants
func DefaultConfig() Config {
	return Config{
		ExcitationLength: 64,
		Steps:            256,
		MagnitudeCeiling: 1e6,
		SampleRate:       256.0,
		BaseFrequency:    8.0,
	}
}

// Bin is one (frequency, magnitude) pair of a spectral decomposition
type Bin struct {
	Frequency float64 `json:"frequency"`
	Magnitude float64 `json:"magnitude"`
}

// Metric is the bounded coherence score together with the parameter
// snapshot that produced it. The tuner consumes ordered sequences of these.
type Metric struct {
	Coherence  float64           `json:"coherence"`
	Parameters params.Parameters `json:"parameters"`
}

// Result is the full outcome of one analysis run
type Result struct {
	Metric            Metric    `json:"metric"`
	Waveform          []float64 `json:"waveform"`
	Spectrum          []Bin     `json:"spectrum"`
	DominantFrequency float64   `json:"dominantFrequency"`
	HarmonicFrequency float64   `json:"harmonicFrequency"`
	Energy            float64   `json:"energy"`
}

// Analyzer runs the text → coherence pipeline. It holds only immutable
// collaborators and is safe for concurrent use.
type Analyzer struct {
	substrate *field.Substrate
	operator  *operator.Operator
	cfg       Config
}

// New creates an Analyzer over the given substrate and operator
func New(substrate *field.Substrate, op *operator.Operator, cfg Config) *Analyzer {
	if cfg.ExcitationLength <= 0 {
		cfg.ExcitationLength = DefaultConfig().ExcitationLength
	}
	if cfg.Steps <= 0 {
		cfg.Steps = DefaultConfig().Steps
	}
	if cfg.MagnitudeCeiling <= 0 {
		cfg.MagnitudeCeiling = DefaultConfig().MagnitudeCeiling
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultConfig().SampleRate
	}
	if cfg.BaseFrequency <= 0 {
		cfg.BaseFrequency = DefaultConfig().BaseFrequency
	}
	return &Analyzer{substrate: substrate, operator: op, cfg: cfg}
}

// Config returns the analyzer's fixed constants
func (a *Analyzer) Config() Config {
	return a.cfg
}

// Analyze runs the full pipeline for one text under the given parameters.
// It has no side effects; appending the metric to any history is the
// caller's job.
func (a *Analyzer) Analyze(ctx context.Context, text string, p params.Parameters) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New(errors.EmptyInput, "input text is empty")
	}

	excitation := a.Excite(text)

	// Inject the scaled excitation cyclically across the 12 nodes.
	state := a.substrate.RestState()
	for i, v := range excitation {
		state[i%field.NumNodes] += p.ExcitationScale * v
	}

	// The operator diagonal reflects the excited state; it stays fixed for
	// the whole run and is rebuilt from scratch on the next one.
	h, err := a.operator.Build(p, state)
	if err != nil {
		return nil, err
	}

	waveform, err := a.evolve(ctx, h, state, p.StepSize)
	if err != nil {
		return nil, err
	}

	spectrum := a.Spectrum(waveform)
	coherence, dominant := spectralConcentration(spectrum)

	return &Result{
		Metric: Metric{
			Coherence:  coherence,
			Parameters: p,
		},
		Waveform:          waveform,
		Spectrum:          spectrum,
		DominantFrequency: dominant,
		HarmonicFrequency: HarmonicQuantize(dominant, a.cfg.BaseFrequency),
		Energy:            operator.Energy(h, state),
	}, nil
}

// Excite deterministically maps text to a fixed-length excitation sequence.
// Rune codes pass through a fixed sinusoidal transform and fold cyclically
// into the configured length; the result is normalized to max magnitude 1.
func (a *Analyzer) Excite(text string) []float64 {
	exc := make([]float64, a.cfg.ExcitationLength)
	for i, r := range []rune(text) {
		exc[i%a.cfg.ExcitationLength] += math.Sin(float64(r)*0.1 + float64(i)*0.05)
	}
	norm := math.Max(math.Abs(floats.Max(exc)), math.Abs(floats.Min(exc)))
	if norm > 0 {
		floats.Scale(1/norm, exc)
	}
	return exc
}

// evolve advances the node state for the configured number of steps and
// records one waveform sample (mean node state) per step. It aborts with a
// DIVERGENCE error the moment the state norm crosses the ceiling.
func (a *Analyzer) evolve(ctx context.Context, h *mat.SymDense, state []float64, stepSize float64) ([]float64, error) {
	waveform := make([]float64, a.cfg.Steps)
	var hx mat.VecDense

	for t := 0; t < a.cfg.Steps; t++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.InternalError, "run canceled", err)
		}

		x := mat.NewVecDense(field.NumNodes, state)
		hx.MulVec(h, x)
		floats.AddScaled(state, -stepSize, hx.RawVector().Data)

		norm := floats.Norm(state, 2)
		if math.IsNaN(norm) || norm > a.cfg.MagnitudeCeiling {
			return nil, errors.Newf(errors.Divergence,
				"state norm %.3g exceeded ceiling %.3g at step %d", norm, a.cfg.MagnitudeCeiling, t)
		}

		waveform[t] = floats.Sum(state) / field.NumNodes
	}

	return waveform, nil
}

// Spectrum computes the one-sided spectral decomposition of a waveform.
// Frequencies are strictly increasing; magnitudes are non-negative.
func (a *Analyzer) Spectrum(waveform []float64) []Bin {
	coeffs := fft.FFTReal(waveform)
	n := len(waveform)
	half := n / 2

	bins := make([]Bin, half+1)
	for k := 0; k <= half; k++ {
		bins[k] = Bin{
			Frequency: float64(k) * a.cfg.SampleRate / float64(n),
			Magnitude: cmplx.Abs(coeffs[k]) / float64(n),
		}
	}
	return bins
}

// spectralConcentration returns the share of total spectral magnitude held
// by the dominant non-DC bin, clamped to [0,1], plus that bin's frequency.
// A flat spectrum scores near 1/bins; a single peak scores near 1.
func spectralConcentration(spectrum []Bin) (coherence, dominant float64) {
	var total, peak float64
	for _, b := range spectrum[1:] { // skip DC
		total += b.Magnitude
		if b.Magnitude > peak {
			peak = b.Magnitude
			dominant = b.Frequency
		}
	}
	if total <= 0 {
		return 0, 0
	}
	c := peak / total
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c, dominant
}

// HarmonicQuantize snaps a frequency onto the nearest multiple of the base
// frequency, never below the base itself. Zero or negative input stays 0.
func HarmonicQuantize(freq, base float64) float64 {
	if freq <= 0 || base <= 0 {
		return 0
	}
	n := math.Round(freq / base)
	if n < 1 {
		n = 1
	}
	return n * base
}
