package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"rrf/internal/params"
	"rrf/internal/storage"
)

func TestFormatResponseJSON(t *testing.T) {
	resp := &AnalyzeResponseCLI{
		RunID:             "run-1",
		Coherence:         0.5,
		DominantFrequency: 16,
		HarmonicFrequency: 16,
		Energy:            2.5,
		Parameters:        params.Defaults(),
		WaveformSamples:   256,
	}

	out, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatalf("FormatResponse: %v", err)
	}

	var decoded AnalyzeResponseCLI
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.RunID != "run-1" || decoded.Coherence != 0.5 {
		t.Errorf("round trip mismatch: %+v", decoded)
	}
}

func TestFormatAnalyzeHuman(t *testing.T) {
	resp := &AnalyzeResponseCLI{
		RunID:      "run-1",
		Coherence:  0.1234,
		Parameters: params.Defaults(),
	}

	out, err := FormatResponse(resp, FormatHuman)
	if err != nil {
		t.Fatalf("FormatResponse: %v", err)
	}
	for _, want := range []string{"run-1", "0.1234", "potential strength"} {
		if !strings.Contains(out, want) {
			t.Errorf("human output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatHistoryHuman(t *testing.T) {
	empty, err := FormatResponse(&HistoryResponseCLI{}, FormatHuman)
	if err != nil {
		t.Fatalf("FormatResponse: %v", err)
	}
	if !strings.Contains(empty, "No runs") {
		t.Errorf("empty history output = %q", empty)
	}

	resp := &HistoryResponseCLI{
		Runs: []storage.RunRecord{{
			Sequence:   3,
			RunID:      "run-3",
			Coherence:  0.75,
			RecordedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		}},
	}
	out, err := FormatResponse(resp, FormatHuman)
	if err != nil {
		t.Fatalf("FormatResponse: %v", err)
	}
	for _, want := range []string{"run-3", "0.75", "2026-02-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("history output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatResponseUnsupported(t *testing.T) {
	if _, err := FormatResponse(&StatusResponseCLI{}, OutputFormat("xml")); err == nil {
		t.Error("expected error for unsupported format")
	}
}
