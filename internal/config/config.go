package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dyluth/trellis/pkg/blackboard"
)

// DefaultFileName is the configuration file trellis looks for in the
// working directory.
const DefaultFileName = "trellis.yml"

// Environment variables overriding file values. The API key should come
// from the environment rather than the file.
const (
	EnvRedisAddr   = "TRELLIS_REDIS_ADDR"
	EnvLLMEndpoint = "TRELLIS_LLM_ENDPOINT"
	EnvLLMAPIKey   = "TRELLIS_LLM_API_KEY"
)

// TrellisConfig represents the top-level trellis.yml configuration
type TrellisConfig struct {
	Version  string         `yaml:"version"`
	Instance string         `yaml:"instance,omitempty"` // Key namespace, default "default"
	UserID   string         `yaml:"user_id"`
	Redis    RedisConfig    `yaml:"redis,omitempty"`
	LLM      LLMConfig      `yaml:"llm,omitempty"`
	Analysis AnalysisConfig `yaml:"analysis,omitempty"`
	Scoring  ScoringConfig  `yaml:"scoring,omitempty"`
}

// RedisConfig specifies how to reach the blackboard
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"` // Default: localhost:6379
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// LLMConfig specifies the optional generative capability. An empty
// endpoint means analyses run rule-only.
type LLMConfig struct {
	Endpoint       string `yaml:"endpoint,omitempty"` // OpenAI-compatible base URL
	Model          string `yaml:"model,omitempty"`
	APIKey         string `yaml:"api_key,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"` // Default: 60
}

// AnalysisConfig specifies analysis behaviour
type AnalysisConfig struct {
	DefaultDepth string `yaml:"default_depth,omitempty"` // minimal, balanced or detailed; default balanced
}

// ScoringConfig specifies day-plan behaviour
type ScoringConfig struct {
	TopN int `yaml:"top_n,omitempty"` // Default: 5
}

// Validate performs strict validation on the configuration
func (c *TrellisConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.UserID == "" {
		return fmt.Errorf("user_id is required")
	}

	if c.Analysis.DefaultDepth != "" {
		if err := blackboard.AnalysisDepth(c.Analysis.DefaultDepth).Validate(); err != nil {
			return fmt.Errorf("invalid analysis.default_depth: %w", err)
		}
	}

	if c.Scoring.TopN < 0 {
		return fmt.Errorf("scoring.top_n cannot be negative: %d", c.Scoring.TopN)
	}

	if c.LLM.TimeoutSeconds < 0 {
		return fmt.Errorf("llm.timeout_seconds cannot be negative: %d", c.LLM.TimeoutSeconds)
	}

	if c.LLM.Endpoint != "" && c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required when llm.endpoint is set")
	}

	return nil
}

// applyDefaults fills unset fields with their documented defaults.
func (c *TrellisConfig) applyDefaults() {
	if c.Instance == "" {
		c.Instance = "default"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 60
	}
	if c.Analysis.DefaultDepth == "" {
		c.Analysis.DefaultDepth = string(blackboard.DepthBalanced)
	}
	if c.Scoring.TopN == 0 {
		c.Scoring.TopN = 5
	}
}

// applyEnvOverrides lets the environment win over the file for the
// values that differ between deployments.
func (c *TrellisConfig) applyEnvOverrides() {
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(EnvLLMEndpoint); v != "" {
		c.LLM.Endpoint = v
	}
	if v := os.Getenv(EnvLLMAPIKey); v != "" {
		c.LLM.APIKey = v
	}
}

// DefaultDepth returns the configured depth as its typed value.
func (c *TrellisConfig) DefaultDepth() blackboard.AnalysisDepth {
	return blackboard.AnalysisDepth(c.Analysis.DefaultDepth)
}

// Load reads and validates trellis.yml from the specified path
func Load(path string) (*TrellisConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config TrellisConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.applyEnvOverrides()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
