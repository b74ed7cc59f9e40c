// Package config loads and validates the engine configuration from
// .rrf/config.json, falling back to documented defaults when no file
// exists.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"rrf/internal/params"
)

// Config represents the complete engine configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Field    FieldConfig    `json:"field" mapstructure:"field"`
	Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis"`
	Tuning   TuningConfig   `json:"tuning" mapstructure:"tuning"`
	Storage  StorageConfig  `json:"storage" mapstructure:"storage"`
	Server   ServerConfig   `json:"server" mapstructure:"server"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// FieldConfig contains substrate and operator settings
type FieldConfig struct {
	// Coupling is the off-diagonal operator entry for adjacent nodes
	Coupling float64 `json:"coupling" mapstructure:"coupling"`
}

// AnalysisConfig contains the resonance analyzer constants
type AnalysisConfig struct {
	ExcitationLength int     `json:"excitationLength" mapstructure:"excitationLength"`
	Steps            int     `json:"steps" mapstructure:"steps"`
	MagnitudeCeiling float64 `json:"magnitudeCeiling" mapstructure:"magnitudeCeiling"`
	SampleRate       float64 `json:"sampleRate" mapstructure:"sampleRate"`
	BaseFrequency    float64 `json:"baseFrequency" mapstructure:"baseFrequency"`
}

// TuningConfig contains the coherence tuner settings
type TuningConfig struct {
	InitialStep  float64       `json:"initialStep" mapstructure:"initialStep"`
	MinStep      float64       `json:"minStep" mapstructure:"minStep"`
	ShrinkFactor float64       `json:"shrinkFactor" mapstructure:"shrinkFactor"`
	Patience     int           `json:"patience" mapstructure:"patience"`
	Bounds       params.Bounds `json:"bounds" mapstructure:"bounds"`
}

// StorageConfig contains run history settings
type StorageConfig struct {
	// RetentionDays is how long run records are kept; 0 disables cleanup
	RetentionDays int `json:"retentionDays" mapstructure:"retentionDays"`
}

// ServerConfig contains the HTTP surface settings
type ServerConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Field: FieldConfig{
			Coupling: 0.1,
		},
		Analysis: AnalysisConfig{
			ExcitationLength: 64,
			Steps:            256,
			MagnitudeCeiling: 1e6,
			SampleRate:       256.0,
			BaseFrequency:    8.0,
		},
		Tuning: TuningConfig{
			InitialStep:  1.0,
			MinStep:      0.01,
			ShrinkFactor: 0.5,
			Patience:     3,
			Bounds:       params.DefaultBounds(),
		},
		Storage: StorageConfig{
			RetentionDays: 90,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8457",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <root>/.rrf/config.json, returning
// defaults when the file does not exist.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ".rrf"))

	defaults := DefaultConfig()
	raw, err := json.Marshal(defaults)
	if err != nil {
		return nil, err
	}
	var defaultMap map[string]interface{}
	if err := json.Unmarshal(raw, &defaultMap); err != nil {
		return nil, err
	}
	for key, val := range defaultMap {
		v.SetDefault(key, val)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaults, nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to <root>/.rrf/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ".rrf")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Analysis.ExcitationLength <= 0 {
		return &ConfigError{Field: "analysis.excitationLength", Message: "must be positive"}
	}
	if c.Analysis.Steps <= 0 {
		return &ConfigError{Field: "analysis.steps", Message: "must be positive"}
	}
	if c.Analysis.MagnitudeCeiling <= 0 {
		return &ConfigError{Field: "analysis.magnitudeCeiling", Message: "must be positive"}
	}
	if c.Analysis.SampleRate <= 0 {
		return &ConfigError{Field: "analysis.sampleRate", Message: "must be positive"}
	}
	if c.Analysis.BaseFrequency <= 0 {
		return &ConfigError{Field: "analysis.baseFrequency", Message: "must be positive"}
	}
	if c.Tuning.MinStep <= 0 || c.Tuning.MinStep >= c.Tuning.InitialStep {
		return &ConfigError{Field: "tuning.minStep", Message: "must be positive and below initialStep"}
	}
	if c.Tuning.ShrinkFactor <= 0 || c.Tuning.ShrinkFactor >= 1 {
		return &ConfigError{Field: "tuning.shrinkFactor", Message: "must be in (0,1)"}
	}
	if c.Tuning.Patience <= 0 {
		return &ConfigError{Field: "tuning.patience", Message: "must be positive"}
	}
	b := c.Tuning.Bounds
	if b.StepMin <= 0 || b.StepMax <= b.StepMin {
		return &ConfigError{Field: "tuning.bounds", Message: "step bounds must satisfy 0 < min < max"}
	}
	if b.PotentialMax <= b.PotentialMin {
		return &ConfigError{Field: "tuning.bounds", Message: "potential bounds must satisfy min < max"}
	}
	if b.ScaleMin <= 0 || b.ScaleMax <= b.ScaleMin {
		return &ConfigError{Field: "tuning.bounds", Message: "scale bounds must satisfy 0 < min < max"}
	}
	if c.Server.Addr == "" {
		return &ConfigError{Field: "server.addr", Message: "must not be empty"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s': %s", e.Field, e.Message)
}
