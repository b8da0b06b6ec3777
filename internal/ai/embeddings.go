package ai

import (
	"context"
	"fmt"
	"math"

	"krishi-mitra-backend/internal/config"
)

// Embedder turns text into vectors. Every vector produced by one Embedder has the
// same dimension, and ModelName identifies the model that produced it so persisted
// indexes can be checked against the running configuration.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// NewEmbedder builds the configured embedding provider wrapped in an LRU cache.
// Callers build one per process and share it.
func NewEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	var inner Embedder
	switch cfg.EmbeddingsProvider {
	case "ollama", "":
		inner = NewOllamaEmbedder(NewOllamaClient(cfg.OllamaHost, 0), cfg.OllamaEmbedModel, cfg.EmbedBatchSize)

	case "google":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
		}
		g, err := NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel, cfg.EmbedBatchSize)
		if err != nil {
			return nil, err
		}
		inner = g

	case "hash":
		inner = NewHashEmbedder(cfg.HashDimensions)

	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}

	return NewCachedEmbedder(inner, cfg.EmbedCacheSize), nil
}

// batches splits texts into consecutive slices of at most size elements.
func batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = len(texts)
	}
	var out [][]string
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		out = append(out, texts[start:end])
	}
	return out
}

// normalizeVector scales v to unit length in place. Zero vectors are returned as is.
func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	n := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= n
	}
	return v
}
