package services

import (
	"context"
	"strings"
	"time"

	"krishi-mitra-backend/internal/logger"
	"krishi-mitra-backend/internal/telemetry"
	"krishi-mitra-backend/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// NotFoundMessage is returned when no documents can be retrieved.
	NotFoundMessage = "I'm sorry, I couldn't find specific details in my knowledge base."

	// EmbedErrorMessage is returned when the question itself cannot be embedded.
	EmbedErrorMessage = "I'm sorry, I'm having trouble processing your question right now. Please try again in a moment."

	// DefaultTopK is the number of chunks passed to the generator.
	DefaultTopK = 5

	chunkSeparator = "\n---\n"
)

// QueryRecorder receives every resolved question. Implementations must not block
// the caller for long; failures are theirs to log.
type QueryRecorder interface {
	RecordQuery(ctx context.Context, result *models.QueryResult)
}

// QueryEngine answers questions from the answer cache, falling back to retrieval
// plus generation, and remembers good generated answers.
type QueryEngine struct {
	kb       *KnowledgeBase
	chain    *GenerationChain
	topK     int
	metrics  *telemetry.Metrics
	recorder QueryRecorder
}

func NewQueryEngine(kb *KnowledgeBase, chain *GenerationChain, topK int, metrics *telemetry.Metrics) *QueryEngine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &QueryEngine{kb: kb, chain: chain, topK: topK, metrics: metrics}
}

// WithRecorder attaches a query log.
func (e *QueryEngine) WithRecorder(r QueryRecorder) *QueryEngine {
	e.recorder = r
	return e
}

// Answer returns only the answer text for question.
func (e *QueryEngine) Answer(ctx context.Context, question string) string {
	return e.Resolve(ctx, question).Answer
}

// Resolve answers question and reports where the answer came from.
func (e *QueryEngine) Resolve(ctx context.Context, question string) *models.QueryResult {
	tracer := otel.Tracer("query-engine")
	ctx, span := tracer.Start(ctx, "query.resolve")
	defer span.End()

	start := time.Now()
	result := e.resolve(ctx, question)
	result.Duration = time.Since(start)

	span.SetAttributes(
		attribute.String("query.source", result.Source),
		attribute.Bool("query.cached", result.Cached),
		attribute.Bool("query.committed", result.Committed),
		attribute.Int("query.chunks", result.Chunks),
	)
	e.metrics.RecordQuery(ctx, result.Source, result.Duration.Seconds())
	if e.recorder != nil {
		e.recorder.RecordQuery(ctx, result)
	}
	return result
}

func (e *QueryEngine) resolve(ctx context.Context, question string) *models.QueryResult {
	result := &models.QueryResult{Question: question}

	vec, err := e.kb.Embedder.Embed(ctx, question)
	if err != nil {
		logger.Error("Failed to embed question", "error", err)
		result.Answer = EmbedErrorMessage
		result.Source = models.SourceEmbedError
		return result
	}

	if answer, ok := e.kb.FAQ.LookupVector(vec); ok {
		result.Answer = answer
		result.Source = models.SourceCache
		result.Cached = true
		return result
	}

	hits, err := e.kb.Documents.Search(vec, e.topK)
	if err != nil {
		logger.Error("Document search failed", "error", err)
	}
	if len(hits) == 0 {
		result.Answer = NotFoundMessage
		result.Source = models.SourceUnavailable
		return result
	}
	result.Chunks = len(hits)

	gen := e.chain.Generate(ctx, question, joinPassages(hits))
	result.Answer = gen.Answer
	result.Source = gen.Tier

	if ShouldCache(gen.Answer) {
		if err := e.kb.FAQ.Commit(ctx, question, gen.Answer); err != nil {
			logger.Error("Failed to save answer to FAQ", "error", err)
			e.metrics.RecordFAQCommit(ctx, false)
		} else {
			result.Committed = true
			e.metrics.RecordFAQCommit(ctx, true)
		}
	}
	return result
}

// ShouldCache reports whether an answer is good enough to serve to later questions:
// no mention of an error and more than five words.
func ShouldCache(answer string) bool {
	if strings.Contains(strings.ToLower(answer), "error") {
		return false
	}
	return len(strings.Fields(answer)) > 5
}

func joinPassages(hits []ScoredChunk) string {
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Chunk.Text
	}
	return strings.Join(texts, chunkSeparator)
}
