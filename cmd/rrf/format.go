package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"rrf/internal/engine"
	"rrf/internal/params"
	"rrf/internal/storage"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *AnalyzeResponseCLI:
		return formatAnalyzeHuman(v)
	case *SessionResponseCLI:
		return formatSessionHuman(v)
	case *HistoryResponseCLI:
		return formatHistoryHuman(v)
	case *StatusResponseCLI:
		return formatStatusHuman(v)
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

// AnalyzeResponseCLI is the per-run summary printed by 'rrf analyze'
type AnalyzeResponseCLI struct {
	RunID             string            `json:"runId"`
	Coherence         float64           `json:"coherence"`
	DominantFrequency float64           `json:"dominantFrequency"`
	HarmonicFrequency float64           `json:"harmonicFrequency"`
	Energy            float64           `json:"energy"`
	Parameters        params.Parameters `json:"parameters"`
	WaveformSamples   int               `json:"waveformSamples"`
}

// SessionResponseCLI is the tuning session summary printed by 'rrf tune'
type SessionResponseCLI struct {
	Session *engine.SessionResult `json:"session"`
}

// HistoryResponseCLI is the run listing printed by 'rrf history'
type HistoryResponseCLI struct {
	Runs []storage.RunRecord `json:"runs"`
}

// StatusResponseCLI is the engine status printed by 'rrf status'
type StatusResponseCLI struct {
	Version    string            `json:"version"`
	TunerState string            `json:"tunerState"`
	Parameters params.Parameters `json:"parameters"`
	RunCount   int64             `json:"runCount"`
}

func formatAnalyzeHuman(resp *AnalyzeResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Run %s\n", resp.RunID))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("Coherence:          %.4f\n", resp.Coherence))
	b.WriteString(fmt.Sprintf("Dominant frequency: %.2f Hz\n", resp.DominantFrequency))
	b.WriteString(fmt.Sprintf("Harmonic frequency: %.2f Hz\n", resp.HarmonicFrequency))
	b.WriteString(fmt.Sprintf("Energy:             %.4g\n", resp.Energy))
	b.WriteString(fmt.Sprintf("Waveform samples:   %d\n\n", resp.WaveformSamples))
	b.WriteString("Parameters:\n")
	writeParams(&b, resp.Parameters)

	return b.String(), nil
}

func formatSessionHuman(resp *SessionResponseCLI) (string, error) {
	var b strings.Builder
	s := resp.Session

	b.WriteString("Tuning session\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	for _, round := range s.Rounds {
		if round.Diverged {
			b.WriteString(fmt.Sprintf("  round %2d: diverged (step=%.4g)\n",
				round.Round, round.Parameters.StepSize))
			continue
		}
		b.WriteString(fmt.Sprintf("  round %2d: coherence=%.4f (run %s)\n",
			round.Round, round.Coherence, round.RunID))
	}

	b.WriteString(fmt.Sprintf("\nBest coherence: %.4f\n", s.Best.Coherence))
	if s.Converged {
		b.WriteString("Tuner converged.\n")
	}
	b.WriteString("\nFinal parameters:\n")
	writeParams(&b, s.FinalParameters)

	return b.String(), nil
}

func formatHistoryHuman(resp *HistoryResponseCLI) (string, error) {
	if len(resp.Runs) == 0 {
		return "No runs recorded yet.", nil
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-6s %-38s %-10s %-10s %s\n",
		"SEQ", "RUN", "COHERENCE", "FREQ", "RECORDED"))
	for _, r := range resp.Runs {
		b.WriteString(fmt.Sprintf("%-6d %-38s %-10.4f %-10.2f %s\n",
			r.Sequence, r.RunID, r.Coherence, r.DominantFrequency,
			r.RecordedAt.Format("2006-01-02 15:04:05")))
	}
	return b.String(), nil
}

func formatStatusHuman(resp *StatusResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("rrf v%s\n", resp.Version))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("Tuner state: %s\n", resp.TunerState))
	b.WriteString(fmt.Sprintf("Stored runs: %d\n\n", resp.RunCount))
	b.WriteString("Current parameters:\n")
	writeParams(&b, resp.Parameters)

	return b.String(), nil
}

func writeParams(b *strings.Builder, p params.Parameters) {
	b.WriteString(fmt.Sprintf("  potential strength: %.4g\n", p.PotentialStrength))
	b.WriteString(fmt.Sprintf("  step size:          %.4g\n", p.StepSize))
	b.WriteString(fmt.Sprintf("  excitation scale:   %.4g\n", p.ExcitationScale))
}
