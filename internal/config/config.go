// Package config loads and validates the orchestrator's YAML configuration,
// with environment variables overriding file values for the fields an
// operator is most likely to need to override per-deployment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// OrchestratorConfig controls the session loop driving Kernel+ReAct passes.
type OrchestratorConfig struct {
	MetricsPort   string `yaml:"metrics_port"`
	MaxIterations int    `yaml:"max_iterations"`
}

// LLMConfig selects and tunes the R2 Decide language-model backend.
type LLMConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	RetryCount  int           `yaml:"retry_count"`
	Provider    string        `yaml:"provider"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
}

// CheckpointConfig points at the durable store and its idempotency cache.
type CheckpointConfig struct {
	DSN       string `yaml:"dsn"`
	RedisAddr string `yaml:"redis_addr"`
	Namespace string `yaml:"namespace"`
}

// SkillsConfig bounds R6 Dispatch concurrency and pacing.
type SkillsConfig struct {
	DryRun         bool          `yaml:"dry_run"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	CooldownPeriod time.Duration `yaml:"cooldown_period"`
}

// LoggingConfig controls the zap-backed logr facade.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HTTPConfig configures the thin chi-based reference HTTP/WS surface.
type HTTPConfig struct {
	Port string `yaml:"port"`
	Path string `yaml:"path"`
}

// Config is the root configuration tree loaded from YAML.
type Config struct {
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	LLM          LLMConfig          `yaml:"llm"`
	Checkpoint   CheckpointConfig   `yaml:"checkpoint"`
	Skills       SkillsConfig       `yaml:"skills"`
	Logging      LoggingConfig      `yaml:"logging"`
	HTTP         HTTPConfig         `yaml:"http"`
}

var supportedProviders = map[string]bool{
	"anthropic": true,
	"bedrock":   true,
}

// Load reads, parses, defaults, and validates the config at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := loadFromEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Orchestrator.MaxIterations == 0 {
		cfg.Orchestrator.MaxIterations = 20
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "anthropic"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.3
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 500
	}
	if cfg.Checkpoint.Namespace == "" {
		cfg.Checkpoint.Namespace = "default"
	}
	if cfg.Skills.MaxConcurrent == 0 {
		cfg.Skills.MaxConcurrent = 5
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("LLM_ENDPOINT"); v != "" {
		cfg.LLM.Endpoint = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		cfg.HTTP.Port = v
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		cfg.Orchestrator.MetricsPort = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		dryRun, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DRY_RUN value: %w", err)
		}
		cfg.Skills.DryRun = dryRun
	}
	return nil
}

func validate(cfg *Config) error {
	if !supportedProviders[cfg.LLM.Provider] {
		return fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Endpoint == "" {
		cfg.LLM.Endpoint = "https://api.anthropic.com"
	}
	if cfg.LLM.Model == "" {
		return fmt.Errorf("LLM model is required for %s provider", cfg.LLM.Provider)
	}
	if cfg.LLM.Temperature < 0.0 || cfg.LLM.Temperature > 1.0 {
		return fmt.Errorf("LLM temperature must be between 0.0 and 1.0")
	}
	if cfg.LLM.MaxTokens <= 0 {
		return fmt.Errorf("LLM max tokens must be greater than 0")
	}
	if cfg.Checkpoint.Namespace == "" {
		return fmt.Errorf("checkpoint namespace is required")
	}
	if cfg.Skills.MaxConcurrent <= 0 {
		return fmt.Errorf("max concurrent skill dispatches must be greater than 0")
	}
	return nil
}
