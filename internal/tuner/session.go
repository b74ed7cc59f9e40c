package tuner

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"rrf/internal/params"
)

// SessionPreset is a tuning session description stored in a TOML file.
// It bundles the input text with optional overrides for the hill-climb
// settings, so repeatable tuning experiments can be checked into a repo.
type SessionPreset struct {
	// Name is an optional label for the session
	Name string `toml:"name,omitempty"`

	// Text is the input to analyze each round
	Text string `toml:"text"`

	// Rounds is how many analyze/tune rounds to run
	Rounds int `toml:"rounds"`

	// Initial optionally overrides the cold-start parameters
	Initial *params.Parameters `toml:"initial,omitempty"`

	// InitialStep optionally overrides the starting step multiplier
	InitialStep float64 `toml:"initial_step,omitempty"`

	// MinStep optionally overrides the convergence threshold
	MinStep float64 `toml:"min_step,omitempty"`

	// Patience optionally overrides the non-improving round tolerance
	Patience int `toml:"patience,omitempty"`
}

// LoadSessionPreset reads and validates a session preset file
func LoadSessionPreset(path string) (*SessionPreset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session preset: %w", err)
	}

	var preset SessionPreset
	if err := toml.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("failed to parse session preset: %w", err)
	}
	if err := preset.Validate(); err != nil {
		return nil, err
	}
	return &preset, nil
}

// Validate checks the preset for usable values
func (p *SessionPreset) Validate() error {
	if p.Text == "" {
		return fmt.Errorf("session preset has no text")
	}
	if p.Rounds <= 0 {
		return fmt.Errorf("session preset rounds must be positive, got %d", p.Rounds)
	}
	if p.InitialStep < 0 || p.MinStep < 0 {
		return fmt.Errorf("session preset step settings must be non-negative")
	}
	if p.Patience < 0 {
		return fmt.Errorf("session preset patience must be non-negative, got %d", p.Patience)
	}
	return nil
}

// ApplyTo folds the preset's overrides into a tuning config
func (p *SessionPreset) ApplyTo(cfg Config) Config {
	if p.InitialStep > 0 {
		cfg.InitialStep = p.InitialStep
	}
	if p.MinStep > 0 {
		cfg.MinStep = p.MinStep
	}
	if p.Patience > 0 {
		cfg.Patience = p.Patience
	}
	return cfg
}
