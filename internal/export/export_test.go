package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"

	"rrf/internal/params"
	"rrf/internal/resonance"
	"rrf/internal/storage"
)

func sampleRun() (*storage.RunRecord, *storage.RunPayload) {
	rec := &storage.RunRecord{
		Sequence:          1,
		RunID:             "run-1",
		TextHash:          "abc123",
		Coherence:         0.42,
		DominantFrequency: 16.0,
		HarmonicFrequency: 16.0,
		Energy:            1.5,
		Parameters:        params.Defaults(),
		RecordedAt:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	payload := &storage.RunPayload{
		Waveform: []float64{0.1, 0.2, 0.3},
		Spectrum: []resonance.Bin{{Frequency: 16.0, Magnitude: 0.9}},
	}
	return rec, payload
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	rec, payload := sampleRun()
	var buf bytes.Buffer
	if err := Write(&buf, rec, payload, FormatJSON, false); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var exp RunExport
	if err := json.Unmarshal(buf.Bytes(), &exp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if exp.Run == nil || exp.Run.RunID != "run-1" {
		t.Errorf("run id lost in export: %+v", exp.Run)
	}
	if len(exp.Waveform) != 3 {
		t.Errorf("waveform has %d samples, want 3", len(exp.Waveform))
	}
	if len(exp.Spectrum) != 1 || exp.Spectrum[0].Frequency != 16.0 {
		t.Errorf("spectrum mismatch: %+v", exp.Spectrum)
	}
}

func TestWriteYAML(t *testing.T) {
	rec, payload := sampleRun()
	var buf bytes.Buffer
	if err := Write(&buf, rec, payload, FormatYAML, false); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var exp RunExport
	if err := yaml.Unmarshal(buf.Bytes(), &exp); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if exp.Run == nil || exp.Run.RunID != "run-1" {
		t.Errorf("run id lost in yaml export: %+v", exp.Run)
	}
	if !strings.Contains(buf.String(), "waveform") {
		t.Errorf("yaml output missing waveform section:\n%s", buf.String())
	}
}

func TestWriteCompressed(t *testing.T) {
	rec, payload := sampleRun()
	var buf bytes.Buffer
	if err := Write(&buf, rec, payload, FormatJSON, true); err != nil {
		t.Fatalf("Write: %v", err)
	}

	gz, err := gzip.NewReader(&buf)
	if err != nil {
		t.Fatalf("output is not gzip: %v", err)
	}
	defer gz.Close()

	var exp RunExport
	if err := json.NewDecoder(gz).Decode(&exp); err != nil {
		t.Fatalf("decode compressed: %v", err)
	}
	if exp.Run == nil || exp.Run.Coherence != 0.42 {
		t.Errorf("coherence lost through compression: %+v", exp.Run)
	}
}

func TestWriteNilPayload(t *testing.T) {
	rec, _ := sampleRun()
	var buf bytes.Buffer
	if err := Write(&buf, rec, nil, FormatJSON, false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if strings.Contains(buf.String(), "waveform") {
		t.Errorf("nil payload should omit waveform:\n%s", buf.String())
	}
}
