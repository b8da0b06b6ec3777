package services

import (
	"context"
	"path/filepath"

	"krishi-mitra-backend/internal/ai"
	"krishi-mitra-backend/internal/config"
	"krishi-mitra-backend/internal/logger"
	"krishi-mitra-backend/internal/telemetry"
)

// Answer sources of the two configured tiers.
const (
	TierLocal  = "local"
	TierGemini = "gemini"
)

// NewGenerationChainFromConfig builds the local model tier followed by the Gemini
// tier. The returned client must be closed by the caller.
func NewGenerationChainFromConfig(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*GenerationChain, *ai.GeminiClient, error) {
	ollama := ai.NewOllamaClient(cfg.OllamaHost, 0)

	gemini, err := ai.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTier, metrics)
	if err != nil {
		return nil, nil, err
	}
	if !gemini.Configured() {
		logger.Warn("GEMINI_API_KEY not set, fallback answers will report that Gemini is not configured")
	}

	chain := NewGenerationChain([]Tier{
		{Name: TierLocal, Generator: ai.NewOllamaGenerator(ollama, cfg.LocalLLMModel), Timeout: cfg.LocalLLMTimeout},
		{Name: TierGemini, Generator: gemini, Timeout: cfg.GeminiTimeout},
	}, cfg.MinAnswerLength, metrics)
	return chain, gemini, nil
}

// NewPipelineFromConfig wires an ingestion pipeline over the configured corpus folder
// and artifact paths.
func NewPipelineFromConfig(cfg *config.Config, embedder ai.Embedder, metrics *telemetry.Metrics) *Pipeline {
	registry := NewExtractorRegistry()
	logger.Debug("Corpus extractors registered", "extensions", registry.Extensions())
	return NewPipeline(
		NewDirectorySource(cfg.CorpusPath(), registry.Supports),
		registry,
		NewSegmenter(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize),
		embedder,
		NewIndexStore(cfg.ChunksPath(), cfg.EmbeddingsPath()),
		filepath.Join(cfg.DataDir, IngestLockFile),
	).WithMetrics(metrics)
}
