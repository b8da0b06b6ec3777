package services

import (
	"context"
	"errors"

	"krishi-mitra-backend/internal/ai"
	"krishi-mitra-backend/internal/config"
	"krishi-mitra-backend/internal/logger"
)

// KnowledgeBase bundles the read-only state a query engine needs: the embedder that
// produced the persisted vectors, the document index and the answer cache.
type KnowledgeBase struct {
	Embedder  ai.Embedder
	Documents *DocumentIndex
	FAQ       *AnswerCache
}

// LoadKnowledgeBase loads the persisted index and FAQ file described by cfg. A
// missing or inconsistent index is not an error: the knowledge base starts without
// documents and every uncached question gets the not-found answer.
func LoadKnowledgeBase(ctx context.Context, cfg *config.Config, embedder ai.Embedder) (*KnowledgeBase, error) {
	store := NewIndexStore(cfg.ChunksPath(), cfg.EmbeddingsPath())

	docs, err := store.Load(embedder.ModelName())
	switch {
	case errors.Is(err, ErrIndexUnavailable):
		logger.Warn("Document index unavailable, run ingestion first", "error", err, "model", embedder.ModelName())
		docs = nil
	case err != nil:
		return nil, err
	default:
		logger.Info("Document index loaded", "chunks", docs.Len(), "model", docs.Model)
	}

	faq, err := LoadAnswerCache(ctx, cfg.FAQPath(), embedder, cfg.SimilarityThreshold)
	if err != nil {
		return nil, err
	}

	return &KnowledgeBase{Embedder: embedder, Documents: docs, FAQ: faq}, nil
}
