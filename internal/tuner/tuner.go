// Package tuner adjusts the tunable parameters between runs to drive the
// coherence metric upward. It is a bounded coordinate-wise hill-climb over
// three knobs, expressed as an explicit state machine:
//
//	Idle → Evaluating → Adjusting → (Converged | Idle)
//
// The tuner never mutates parameters during a run; it only proposes the
// snapshot for the next one.
package tuner

import (
	"sync"

	"rrf/internal/params"
	"rrf/internal/resonance"
)

// State is a tuning state machine phase
type State string

const (
	// StateIdle means no history has been observed yet
	StateIdle State = "idle"
	// StateEvaluating means the tuner proposed parameters and is waiting
	// for the next metric
	StateEvaluating State = "evaluating"
	// StateAdjusting means the tuner is actively perturbing parameters
	StateAdjusting State = "adjusting"
	// StateConverged means the step size shrank below the minimum; the
	// best-known parameters are returned unchanged from now on
	StateConverged State = "converged"
)

// Config holds hill-climb settings
type Config struct {
	// InitialStep is the starting step multiplier
	InitialStep float64
	// MinStep is the multiplier below which the tuner declares convergence
	MinStep float64
	// ShrinkFactor scales the step down after a patience run of
	// non-improving rounds
	ShrinkFactor float64
	// Patience is how many non-improving rounds to tolerate before
	// shrinking the step
	Patience int
	// Bounds is the valid parameter range; every proposal is clamped to it
	Bounds params.Bounds
}

// DefaultConfig returns the default tuning settings
func DefaultConfig() Config {
	return Config{
		InitialStep:  1.0,
		MinStep:      0.01,
		ShrinkFactor: 0.5,
		Patience:     3,
		Bounds:       params.DefaultBounds(),
	}
}

// perturbation deltas per coordinate at step multiplier 1.0, sized
// relative to each parameter's usable range
var baseDeltas = [3]float64{
	0.25,  // potentialStrength
	0.005, // stepSize
	0.02,  // excitationScale
}

// Tuner is the coherence hill-climb. Safe for concurrent use; Step calls
// are serialized internally.
type Tuner struct {
	mu sync.Mutex

	cfg   Config
	state State

	step         float64
	directions   [3]float64
	coord        int // coordinate perturbed in the most recent proposal
	best         resonance.Metric
	hasBest      bool
	sinceImprove int
}

// New creates a Tuner
func New(cfg Config) *Tuner {
	if cfg.InitialStep <= 0 {
		cfg.InitialStep = DefaultConfig().InitialStep
	}
	if cfg.MinStep <= 0 {
		cfg.MinStep = DefaultConfig().MinStep
	}
	if cfg.ShrinkFactor <= 0 || cfg.ShrinkFactor >= 1 {
		cfg.ShrinkFactor = DefaultConfig().ShrinkFactor
	}
	if cfg.Patience <= 0 {
		cfg.Patience = DefaultConfig().Patience
	}
	return &Tuner{
		cfg:        cfg,
		state:      StateIdle,
		step:       cfg.InitialStep,
		directions: [3]float64{1, 1, 1},
	}
}

// State returns the current phase of the tuning state machine
func (t *Tuner) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Best returns the best metric seen so far and whether one exists
func (t *Tuner) Best() (resonance.Metric, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.best, t.hasBest
}

// StepSize returns the current step multiplier
func (t *Tuner) StepSize() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.step
}

// Step consumes the ordered run history and returns the parameters for the
// next run. An empty history is the cold-start path and yields the
// documented defaults. After convergence the best-known parameters are
// returned unchanged.
func (t *Tuner) Step(history []resonance.Metric) params.Parameters {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(history) == 0 {
		t.state = StateEvaluating
		return params.Defaults()
	}

	if t.state == StateConverged {
		return t.best.Parameters
	}

	latest := history[len(history)-1]
	improved := !t.hasBest || latest.Coherence > t.best.Coherence
	if improved {
		t.best = latest
		t.hasBest = true
		t.sinceImprove = 0
	} else {
		t.sinceImprove++
		// The last perturbation made things worse; try the other way.
		t.directions[t.coord] = -t.directions[t.coord]
		if t.sinceImprove >= t.cfg.Patience {
			t.step *= t.cfg.ShrinkFactor
			t.sinceImprove = 0
			if t.step < t.cfg.MinStep {
				t.state = StateConverged
				return t.best.Parameters
			}
		}
	}

	t.state = StateAdjusting
	t.coord = (t.coord + 1) % 3

	next := t.best.Parameters
	delta := t.directions[t.coord] * t.step * baseDeltas[t.coord]
	switch t.coord {
	case 0:
		next.PotentialStrength += delta
	case 1:
		next.StepSize += delta
	case 2:
		next.ExcitationScale += delta
	}
	return next.Clamp(t.cfg.Bounds)
}

// Reset returns the tuner to its idle cold-start state
func (t *Tuner) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateIdle
	t.step = t.cfg.InitialStep
	t.directions = [3]float64{1, 1, 1}
	t.coord = 0
	t.best = resonance.Metric{}
	t.hasBest = false
	t.sinceImprove = 0
}
