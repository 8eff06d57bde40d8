package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/taskwise-ai/taskwise/internal/assistant"
	"github.com/taskwise-ai/taskwise/internal/audit"
	"github.com/taskwise-ai/taskwise/internal/bulkops"
	"github.com/taskwise-ai/taskwise/internal/config"
	"github.com/taskwise-ai/taskwise/internal/conversation"
	"github.com/taskwise-ai/taskwise/internal/db"
	"github.com/taskwise-ai/taskwise/internal/embeddings"
	"github.com/taskwise-ai/taskwise/internal/intent"
	"github.com/taskwise-ai/taskwise/internal/oracle"
	"github.com/taskwise-ai/taskwise/internal/reasoning"
	"github.com/taskwise-ai/taskwise/internal/records"
	"github.com/taskwise-ai/taskwise/internal/recovery"
	"github.com/taskwise-ai/taskwise/internal/sources"
	"github.com/taskwise-ai/taskwise/internal/vectordb"
)

// loadConfig reads and validates the configuration file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration (run 'taskwise init'): %w", err)
	}
	return cfg, nil
}

// createOracleFromConfig builds the LLM client, rate-limited when
// configured.
func createOracleFromConfig(cfg *config.Config) (oracle.Client, error) {
	client, err := oracle.NewClient(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.RateLimitRPM > 0 {
		client = oracle.NewRateLimitedClient(client, cfg.RateLimitRPM)
	}
	return client, nil
}

// createEmbedderFromConfig builds the embedder for semantic search, or
// returns nil when no embedding provider is configured.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "":
		return nil, nil
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		model := embeddings.ModelTextEmbedding3Small
		if cfg.EmbeddingModel != "" {
			model = embeddings.OpenAIModel(cfg.EmbeddingModel)
		}
		return embeddings.NewOpenAIEmbedder(apiKey, model), nil
	case config.ProviderOllama:
		model := cfg.EmbeddingModel
		if model == "" {
			model = "nomic-embed-text"
		}
		return embeddings.NewOllamaEmbedder(model, 768, ""), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbeddingProvider)
	}
}

// createVectorIndex builds the semantic search index and loads any
// persisted state from the data directory. Returns nil (not an error)
// when embeddings are not configured: the store falls back to keyword
// search.
func createVectorIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger) vectordb.VectorStore {
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		logger.Warn("semantic search disabled", zap.Error(err))
		return nil
	}
	if embedder == nil {
		return nil
	}

	index, err := vectordb.NewChromemStore(embedder)
	if err != nil {
		logger.Warn("semantic search disabled", zap.Error(err))
		return nil
	}
	dir := filepath.Join(cfg.DataDir, "vectordb")
	if err := index.Load(ctx, dir); err != nil {
		logger.Warn("could not load vector index, starting empty", zap.String("dir", dir), zap.Error(err))
	}
	return index
}

// buildAssistant wires the full reasoning stack over an open database.
// It is shared by the serve and mcp commands.
func buildAssistant(ctx context.Context, cfg *config.Config, database *db.DB, logger *zap.Logger) (*assistant.Assistant, records.Store, *sources.Tracker, *audit.Store, error) {
	client, err := createOracleFromConfig(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	store := records.NewSQLStore(database, createVectorIndex(ctx, cfg, logger))
	trail := audit.NewStore(database)
	conv := conversation.NewManager(cfg.Assistant.HistoryLimit)
	health := sources.NewTracker(cfg.Assistant.HealthTTL(), nil)
	engine := recovery.NewEngine(health, logger)

	a := assistant.New(assistant.Deps{
		Oracle:   client,
		Store:    store,
		Conv:     conv,
		Intents:  intent.NewResolver(client, conv, cfg.Assistant.ClarificationThreshold, logger),
		Planner:  reasoning.NewPlanner(client, cfg.Assistant.MaxChainSteps, logger),
		Executor: reasoning.NewExecutor(client, store, engine, logger),
		Bulk:     bulkops.NewManager(store, health, cfg.Assistant.PendingOpTTL(), cfg.Assistant.MaxBulkTargets, logger),
		Recovery: engine,
		Health:   health,
		Trail:    trail,
		Logger:   logger,
	})
	return a, store, health, trail, nil
}
