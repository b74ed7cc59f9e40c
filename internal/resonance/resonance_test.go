package resonance

import (
	"context"
	"math"
	"testing"

	"rrf/internal/errors"
	"rrf/internal/field"
	"rrf/internal/operator"
	"rrf/internal/params"
)

func newAnalyzer() *Analyzer {
	sub := field.NewSubstrate()
	return New(sub, operator.New(sub, operator.DefaultConfig()), DefaultConfig())
}

func TestAnalyzeEndToEnd(t *testing.T) {
	a := newAnalyzer()

	res, err := a.Analyze(context.Background(), "resonance test", params.Defaults())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(res.Waveform) != a.Config().Steps {
		t.Errorf("waveform length %d, want %d", len(res.Waveform), a.Config().Steps)
	}
	if res.Metric.Coherence < 0 || res.Metric.Coherence > 1 {
		t.Errorf("coherence %v outside [0,1]", res.Metric.Coherence)
	}
	for i := 1; i < len(res.Spectrum); i++ {
		if res.Spectrum[i].Frequency <= res.Spectrum[i-1].Frequency {
			t.Fatalf("frequencies not strictly increasing at bin %d: %v <= %v",
				i, res.Spectrum[i].Frequency, res.Spectrum[i-1].Frequency)
		}
		if res.Spectrum[i].Magnitude < 0 {
			t.Errorf("negative magnitude at bin %d", i)
		}
	}
	if res.Spectrum[0].Frequency != 0 {
		t.Errorf("first bin frequency %v, want 0", res.Spectrum[0].Frequency)
	}
	for i, v := range res.Waveform {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("waveform[%d] = %v, want finite", i, v)
		}
	}
	if math.IsNaN(res.Energy) || math.IsInf(res.Energy, 0) {
		t.Errorf("energy = %v, want finite", res.Energy)
	}
	if res.Metric.Parameters != params.Defaults() {
		t.Errorf("metric should carry the parameter snapshot, got %+v", res.Metric.Parameters)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	a := newAnalyzer()
	p := params.Defaults()

	first, err := a.Analyze(context.Background(), "resonance test", p)
	if err != nil {
		t.Fatalf("first Analyze: %v", err)
	}
	second, err := a.Analyze(context.Background(), "resonance test", p)
	if err != nil {
		t.Fatalf("second Analyze: %v", err)
	}

	if first.Metric.Coherence != second.Metric.Coherence {
		t.Errorf("coherence differs across identical runs: %v != %v",
			first.Metric.Coherence, second.Metric.Coherence)
	}
	for i := range first.Waveform {
		if first.Waveform[i] != second.Waveform[i] {
			t.Fatalf("waveform[%d] differs: %v != %v", i, first.Waveform[i], second.Waveform[i])
		}
	}
	for i := range first.Spectrum {
		if first.Spectrum[i] != second.Spectrum[i] {
			t.Fatalf("spectrum[%d] differs", i)
		}
	}
}

func TestAnalyzeDistinctTextsDiffer(t *testing.T) {
	a := newAnalyzer()
	p := params.Defaults()

	one, err := a.Analyze(context.Background(), "first text", p)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	two, err := a.Analyze(context.Background(), "a rather different input", p)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	same := true
	for i := range one.Waveform {
		if one.Waveform[i] != two.Waveform[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical waveforms")
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	a := newAnalyzer()

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := a.Analyze(context.Background(), text, params.Defaults())
		if !errors.HasCode(err, errors.EmptyInput) {
			t.Errorf("Analyze(%q) error = %v, want EMPTY_INPUT", text, err)
		}
	}
}

func TestAnalyzeDivergence(t *testing.T) {
	a := newAnalyzer()

	// Step size near the upper validity bound is far past the stable
	// region for the default operator; the run must abort with DIVERGENCE,
	// never return NaN/Inf output.
	p := params.Defaults()
	p.StepSize = 1.9
	p.ExcitationScale = 5.0
	p.PotentialStrength = 10.0

	res, err := a.Analyze(context.Background(), "resonance test", p)
	if !errors.HasCode(err, errors.Divergence) {
		t.Fatalf("Analyze error = %v, want DIVERGENCE (result: %+v)", err, res)
	}
}

func TestAnalyzeDegenerateParameters(t *testing.T) {
	a := newAnalyzer()

	p := params.Defaults()
	p.StepSize = math.NaN()
	if _, err := a.Analyze(context.Background(), "text", p); !errors.HasCode(err, errors.DegenerateParameter) {
		t.Errorf("Analyze error = %v, want DEGENERATE_PARAMETER", err)
	}

	p = params.Defaults()
	p.StepSize = params.DefaultBounds().StepMax * 1000
	if _, err := a.Analyze(context.Background(), "text", p); !errors.HasCode(err, errors.DegenerateParameter) {
		t.Errorf("Analyze error = %v, want DEGENERATE_PARAMETER for out-of-bound step", err)
	}
}

func TestAnalyzeCanceledContext(t *testing.T) {
	a := newAnalyzer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := a.Analyze(ctx, "text", params.Defaults()); err == nil {
		t.Error("Analyze should fail with a canceled context")
	}
}

func TestExciteStableAndBounded(t *testing.T) {
	a := newAnalyzer()

	one := a.Excite("stability check")
	two := a.Excite("stability check")
	if len(one) != a.Config().ExcitationLength {
		t.Fatalf("excitation length %d, want %d", len(one), a.Config().ExcitationLength)
	}
	for i := range one {
		if one[i] != two[i] {
			t.Fatalf("excitation[%d] differs across identical texts", i)
		}
		if math.Abs(one[i]) > 1+1e-12 {
			t.Errorf("excitation[%d] = %v, want |v| <= 1", i, one[i])
		}
	}
}

func TestSpectrumOfPureTone(t *testing.T) {
	a := newAnalyzer()
	cfg := a.Config()

	// A pure tone at bin 16 should concentrate nearly all magnitude there.
	n := cfg.Steps
	wave := make([]float64, n)
	for i := range wave {
		wave[i] = math.Sin(2 * math.Pi * 16 * float64(i) / float64(n))
	}

	spectrum := a.Spectrum(wave)
	coherence, dominant := spectralConcentration(spectrum)

	wantFreq := 16 * cfg.SampleRate / float64(n)
	if math.Abs(dominant-wantFreq) > 1e-9 {
		t.Errorf("dominant frequency %v, want %v", dominant, wantFreq)
	}
	if coherence < 0.99 {
		t.Errorf("pure tone coherence %v, want near 1", coherence)
	}
}

func TestSpectralConcentrationFlat(t *testing.T) {
	bins := make([]Bin, 129)
	for i := range bins {
		bins[i] = Bin{Frequency: float64(i), Magnitude: 1}
	}
	coherence, _ := spectralConcentration(bins)
	want := 1.0 / 128 // DC excluded
	if math.Abs(coherence-want) > 1e-12 {
		t.Errorf("flat spectrum coherence %v, want %v", coherence, want)
	}
}

func TestSpectralConcentrationSilence(t *testing.T) {
	bins := make([]Bin, 10)
	for i := range bins {
		bins[i] = Bin{Frequency: float64(i)}
	}
	if c, d := spectralConcentration(bins); c != 0 || d != 0 {
		t.Errorf("silent spectrum gave coherence %v dominant %v, want 0 0", c, d)
	}
}

func TestHarmonicQuantize(t *testing.T) {
	tests := []struct {
		freq, base, want float64
	}{
		{17.0, 8.0, 16.0},
		{20.0, 8.0, 24.0},
		{3.0, 8.0, 8.0}, // never below the base
		{8.0, 8.0, 8.0},
		{0, 8.0, 0},
		{-4, 8.0, 0},
		{10, 0, 0},
	}

	for _, tt := range tests {
		if got := HarmonicQuantize(tt.freq, tt.base); got != tt.want {
			t.Errorf("HarmonicQuantize(%v, %v) = %v, want %v", tt.freq, tt.base, got, tt.want)
		}
	}
}
