// Package engine wires the substrate, operator, analyzer, tuner, and run
// store into the text → resonance → coherence pipeline and its
// self-improvement loop.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"

	"rrf/internal/config"
	"rrf/internal/errors"
	"rrf/internal/field"
	"rrf/internal/logging"
	"rrf/internal/operator"
	"rrf/internal/params"
	"rrf/internal/resonance"
	"rrf/internal/storage"
	"rrf/internal/tuner"
)

// Engine is the pipeline facade. Analyze calls may run concurrently; the
// run store append and the tuner keep their own serialization.
type Engine struct {
	analyzer *resonance.Analyzer
	tuner    *tuner.Tuner
	db       *storage.DB
	logger   *logging.Logger

	mu      sync.Mutex
	current params.Parameters
}

// New creates an Engine from configuration. The db may be nil for callers
// that do not keep history (every run then starts from the current
// in-memory parameters).
func New(cfg *config.Config, db *storage.DB, logger *logging.Logger) *Engine {
	substrate := field.NewSubstrate()
	op := operator.New(substrate, operator.Config{
		Coupling: cfg.Field.Coupling,
		Bounds:   cfg.Tuning.Bounds,
	})
	analyzer := resonance.New(substrate, op, resonance.Config{
		ExcitationLength: cfg.Analysis.ExcitationLength,
		Steps:            cfg.Analysis.Steps,
		MagnitudeCeiling: cfg.Analysis.MagnitudeCeiling,
		SampleRate:       cfg.Analysis.SampleRate,
		BaseFrequency:    cfg.Analysis.BaseFrequency,
	})
	t := tuner.New(tuner.Config{
		InitialStep:  cfg.Tuning.InitialStep,
		MinStep:      cfg.Tuning.MinStep,
		ShrinkFactor: cfg.Tuning.ShrinkFactor,
		Patience:     cfg.Tuning.Patience,
		Bounds:       cfg.Tuning.Bounds,
	})

	e := &Engine{
		analyzer: analyzer,
		tuner:    t,
		db:       db,
		logger:   logger,
		current:  params.Defaults(),
	}
	e.cleanupExpiredRuns(cfg.Storage.RetentionDays)
	return e
}

// cleanupExpiredRuns drops runs past the retention window. Best effort: a
// failed cleanup never blocks engine startup.
func (e *Engine) cleanupExpiredRuns(retentionDays int) {
	if e.db == nil || retentionDays <= 0 {
		return
	}
	removed, err := e.db.CleanupOldRuns(time.Duration(retentionDays) * 24 * time.Hour)
	if err != nil {
		e.logger.Warn("run retention cleanup failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if removed > 0 {
		e.logger.Info("removed expired runs", map[string]interface{}{
			"removed":       removed,
			"retentionDays": retentionDays,
		})
	}
}

// Parameters returns the parameter snapshot the next run will use
func (e *Engine) Parameters() params.Parameters {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// SetParameters overrides the parameters for the next run
func (e *Engine) SetParameters(p params.Parameters) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = p
}

// TunerState returns the tuning state machine phase
func (e *Engine) TunerState() tuner.State {
	return e.tuner.State()
}

// Analyze runs one analysis with the current parameters, appends the run
// to the store, and returns the stored record alongside the full result.
func (e *Engine) Analyze(ctx context.Context, text string) (*storage.RunRecord, *resonance.Result, error) {
	return e.analyzeWith(ctx, text, e.Parameters())
}

func (e *Engine) analyzeWith(ctx context.Context, text string, p params.Parameters) (*storage.RunRecord, *resonance.Result, error) {
	start := time.Now()

	result, err := e.analyzer.Analyze(ctx, text, p)
	if err != nil {
		return nil, nil, err
	}

	rec := &storage.RunRecord{
		RunID:             uuid.NewString(),
		TextHash:          hashText(text),
		Coherence:         result.Metric.Coherence,
		DominantFrequency: result.DominantFrequency,
		HarmonicFrequency: result.HarmonicFrequency,
		Energy:            result.Energy,
		Parameters:        p,
		RecordedAt:        time.Now().UTC(),
	}

	if e.db != nil {
		seq, err := e.db.AppendRun(rec, &storage.RunPayload{
			Waveform: result.Waveform,
			Spectrum: result.Spectrum,
		})
		if err != nil {
			return nil, nil, errors.Wrap(errors.InternalError, "failed to persist run", err)
		}
		rec.Sequence = seq
	}

	e.logger.Debug("analysis run complete", map[string]interface{}{
		"runId":      rec.RunID,
		"coherence":  rec.Coherence,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return rec, result, nil
}

// Tune loads the run history, advances the tuner one round, and installs
// the proposed parameters for the next run.
func (e *Engine) Tune(ctx context.Context) (params.Parameters, error) {
	history, err := e.loadHistory(ctx)
	if err != nil {
		return params.Parameters{}, err
	}

	next := e.tuner.Step(history)
	e.SetParameters(next)
	return next, nil
}

func (e *Engine) loadHistory(ctx context.Context) ([]resonance.Metric, error) {
	if e.db == nil {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	history, err := e.db.History()
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "failed to load history", err)
	}
	return history, nil
}

// SessionRound is the outcome of one tuning round
type SessionRound struct {
	Round      int               `json:"round"`
	RunID      string            `json:"runId,omitempty"`
	Coherence  float64           `json:"coherence"`
	Diverged   bool              `json:"diverged,omitempty"`
	Parameters params.Parameters `json:"parameters"`
}

// SessionResult summarizes a tuning session
type SessionResult struct {
	Rounds          []SessionRound    `json:"rounds"`
	Best            resonance.Metric  `json:"best"`
	FinalParameters params.Parameters `json:"finalParameters"`
	Converged       bool              `json:"converged"`
}

// Session alternates tune and analyze for up to rounds iterations over a
// fixed text, stopping early on convergence. A diverged round is abandoned
// and fed back to the tuner as a zero-coherence observation so it backs
// off; any other failure aborts the session.
func (e *Engine) Session(ctx context.Context, text string, rounds int) (*SessionResult, error) {
	if rounds <= 0 {
		rounds = 1
	}

	history, err := e.loadHistory(ctx)
	if err != nil {
		return nil, err
	}

	out := &SessionResult{}
	for round := 1; round <= rounds; round++ {
		if e.tuner.State() == tuner.StateConverged {
			break
		}

		p := e.tuner.Step(history)
		e.SetParameters(p)

		rec, result, err := e.analyzeWith(ctx, text, p)
		switch {
		case err == nil:
			history = append(history, result.Metric)
			out.Rounds = append(out.Rounds, SessionRound{
				Round:      round,
				RunID:      rec.RunID,
				Coherence:  result.Metric.Coherence,
				Parameters: p,
			})
		case errors.HasCode(err, errors.Divergence):
			e.logger.Warn("round diverged, shrinking search", map[string]interface{}{
				"round": round,
				"error": err.Error(),
			})
			history = append(history, resonance.Metric{Coherence: 0, Parameters: p})
			out.Rounds = append(out.Rounds, SessionRound{
				Round:      round,
				Diverged:   true,
				Parameters: p,
			})
		default:
			return nil, err
		}
	}

	// Feed the last round to the tuner before reading its best metric,
	// otherwise a session whose final round was the best under-reports.
	out.FinalParameters = e.tuner.Step(history)
	e.SetParameters(out.FinalParameters)
	if best, ok := e.tuner.Best(); ok {
		out.Best = best
	}
	out.Converged = e.tuner.State() == tuner.StateConverged
	return out, nil
}

// History returns the stored metric history, oldest first
func (e *Engine) History(ctx context.Context) ([]resonance.Metric, error) {
	return e.loadHistory(ctx)
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
