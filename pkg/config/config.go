// Package config loads and validates the pipeline configuration from YAML.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/agentmentor/agentqa-go/pkg/errors"
	"github.com/agentmentor/agentqa-go/pkg/gate"
)

// Config is the full pipeline configuration. Zero values are filled from
// Default before validation, so a partial YAML file is enough.
type Config struct {
	LLM       LLMConfig        `yaml:"llm"`
	Judge     CapabilityConfig `yaml:"judge"`
	Rewriter  CapabilityConfig `yaml:"rewriter"`
	Inspector InspectorConfig  `yaml:"inspector"`
	Memory    MemoryConfig     `yaml:"memory"`
	Gate      GateConfig       `yaml:"gate"`
	Logging   LoggingConfig    `yaml:"logging"`
}

// LLMConfig selects the reasoning capability. The API key is usually left
// empty and taken from the environment.
type LLMConfig struct {
	Provider string `yaml:"provider" validate:"required,oneof=anthropic"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

// CapabilityConfig bounds one capability call.
type CapabilityConfig struct {
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// UnmarshalYAML accepts Go duration strings ("90s", "2m") for the timeout.
func (c *CapabilityConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Timeout string `yaml:"timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Timeout == "" {
		return nil
	}
	d, err := time.ParseDuration(raw.Timeout)
	if err != nil {
		return err
	}
	c.Timeout = d
	return nil
}

// InspectorConfig tunes the structural checks.
type InspectorConfig struct {
	MinMissingTerms int     `yaml:"min_missing_terms" validate:"gte=1"`
	MinAnswerChars  int     `yaml:"min_answer_chars" validate:"gte=0"`
	OffTopicOverlap float64 `yaml:"off_topic_overlap" validate:"gte=0,lte=1"`
}

// MemoryConfig selects the snippet store. An empty path means in-memory.
type MemoryConfig struct {
	Path           string `yaml:"path"`
	RetrievalLimit int    `yaml:"retrieval_limit" validate:"gte=1"`
}

// GateConfig tunes the release gate.
type GateConfig struct {
	Thresholds gate.Thresholds `yaml:"thresholds"`
	Workers    int             `yaml:"workers" validate:"gte=1"`
}

// LoggingConfig controls verbosity and an optional JSON-lines log file
// written alongside console output.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error fatal"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider: "anthropic",
			Model:    "claude-sonnet-4-5-20250929",
		},
		Judge:    CapabilityConfig{Timeout: 60 * time.Second},
		Rewriter: CapabilityConfig{Timeout: 60 * time.Second},
		Inspector: InspectorConfig{
			MinMissingTerms: 2,
			MinAnswerChars:  40,
			OffTopicOverlap: 0.1,
		},
		Memory: MemoryConfig{RetrievalLimit: 5},
		Gate: GateConfig{
			Thresholds: gate.DefaultThresholds(),
			Workers:    4,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, errors.ResourceNotFound, "cannot read config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, errors.InvalidInput, "cannot parse config file")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, errors.ValidationFailed, "invalid configuration")
	}
	return nil
}
