// Package export serializes stored runs for external visualization tools.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"

	"rrf/internal/resonance"
	"rrf/internal/storage"
)

// Format is an export output format
type Format string

const (
	// FormatJSON writes indented JSON
	FormatJSON Format = "json"
	// FormatYAML writes YAML
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format string
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatYAML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want json or yaml)", s)
	}
}

// RunExport is the exported view of a single run: the metric record plus
// the waveform samples and spectral pairs a visualizer needs.
type RunExport struct {
	Run      *storage.RunRecord `json:"run" yaml:"run"`
	Waveform []float64          `json:"waveform,omitempty" yaml:"waveform,omitempty"`
	Spectrum []resonance.Bin    `json:"spectrum,omitempty" yaml:"spectrum,omitempty"`
}

// Write serializes the run to w in the given format, optionally
// gzip-compressed.
func Write(w io.Writer, rec *storage.RunRecord, payload *storage.RunPayload, format Format, compress bool) error {
	out := w
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(w)
		out = gz
	}

	exp := RunExport{Run: rec}
	if payload != nil {
		exp.Waveform = payload.Waveform
		exp.Spectrum = payload.Spectrum
	}

	var err error
	switch format {
	case FormatYAML:
		err = yaml.NewEncoder(out).Encode(exp)
	default:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(exp)
	}
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("failed to flush compressed output: %w", err)
		}
	}
	return nil
}

// WriteFile serializes the run to a file
func WriteFile(path string, rec *storage.RunRecord, payload *storage.RunPayload, format Format, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := Write(f, rec, payload, format, compress); err != nil {
		return err
	}
	return f.Close()
}
