package config

// defaultModels maps each provider to its default chat and embedding models.
var defaultModels = map[ProviderType]struct {
	Model          string
	EmbeddingModel string
}{
	ProviderAnthropic: {Model: "claude-sonnet-4-5-20250929", EmbeddingModel: "text-embedding-3-small"},
	ProviderOpenAI:    {Model: "gpt-4o", EmbeddingModel: "text-embedding-3-small"},
	ProviderOllama:    {Model: "llama3", EmbeddingModel: "nomic-embed-text"},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderAnthropic,
		Model:             "claude-sonnet-4-5-20250929",
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",
		DataDir:           ".taskwise",
		Port:              8321,
		RateLimitRPM:      60,
		Assistant: AssistantConfig{
			HistoryLimit:           15,
			ClarificationThreshold: 0.7,
			PendingOpTTLMinutes:    5,
			HealthTTLMinutes:       5,
			MaxBulkTargets:         100,
			MaxChainSteps:          8,
		},
	}
}

// DefaultModelsFor returns the default chat and embedding models for a provider.
func DefaultModelsFor(p ProviderType) (model, embeddingModel string) {
	if m, ok := defaultModels[p]; ok {
		return m.Model, m.EmbeddingModel
	}
	m := defaultModels[ProviderAnthropic]
	return m.Model, m.EmbeddingModel
}
