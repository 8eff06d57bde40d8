package config

import "time"

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
)

// Config is the top-level taskwise configuration, corresponding to .taskwise.yml.
type Config struct {
	Provider          ProviderType    `yaml:"provider" koanf:"provider"`
	Model             string          `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType    `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string          `yaml:"embedding_model" koanf:"embedding_model"`
	DataDir           string          `yaml:"data_dir" koanf:"data_dir"`
	Port              int             `yaml:"port" koanf:"port"`
	RateLimitRPM      int             `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
	Assistant         AssistantConfig `yaml:"assistant" koanf:"assistant"`
}

// AssistantConfig holds the tuning knobs of the reasoning core.
type AssistantConfig struct {
	// HistoryLimit caps the per-user conversation history (FIFO eviction).
	HistoryLimit int `yaml:"history_limit" koanf:"history_limit"`
	// ClarificationThreshold is the ambiguity score above which a
	// clarification may be requested. Tuned high on purpose: the
	// assistant is built to act rather than interrogate.
	ClarificationThreshold float64 `yaml:"clarification_threshold" koanf:"clarification_threshold"`
	// PendingOpTTLMinutes bounds how long a bulk operation waits for
	// user confirmation before it expires.
	PendingOpTTLMinutes int `yaml:"pending_op_ttl_minutes" koanf:"pending_op_ttl_minutes"`
	// HealthTTLMinutes bounds how long a cached integration health
	// entry is trusted before it must be refreshed.
	HealthTTLMinutes int `yaml:"health_ttl_minutes" koanf:"health_ttl_minutes"`
	// MaxBulkTargets bounds how many records a single bulk operation
	// may touch.
	MaxBulkTargets int `yaml:"max_bulk_targets" koanf:"max_bulk_targets"`
	// MaxChainSteps bounds how many steps a reasoning chain may have.
	MaxChainSteps int `yaml:"max_chain_steps" koanf:"max_chain_steps"`
}

// PendingOpTTL returns the pending operation TTL as a duration.
func (a AssistantConfig) PendingOpTTL() time.Duration {
	return time.Duration(a.PendingOpTTLMinutes) * time.Minute
}

// HealthTTL returns the health cache validity window as a duration.
func (a AssistantConfig) HealthTTL() time.Duration {
	return time.Duration(a.HealthTTLMinutes) * time.Minute
}
