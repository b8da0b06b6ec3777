package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"krishi-mitra-backend/internal/ai"
	"krishi-mitra-backend/internal/logger"
	"krishi-mitra-backend/models"
)

// DefaultSimilarityThreshold is the cosine score a cached question must exceed to be
// reused for a new one.
const DefaultSimilarityThreshold = 0.85

// AnswerCache is the persistent FAQ of previously generated answers. Lookups run
// concurrently; a commit holds the write lock across embedding, the file write and
// the in-memory swap, so a failed commit leaves both file and memory unchanged.
type AnswerCache struct {
	mu        sync.RWMutex
	path      string
	embedder  ai.Embedder
	threshold float64

	entries []models.FAQEntry
	index   *VectorIndex
}

// NewAnswerCache returns an empty cache that persists to path.
func NewAnswerCache(path string, embedder ai.Embedder, threshold float64) *AnswerCache {
	return &AnswerCache{
		path:      path,
		embedder:  embedder,
		threshold: threshold,
	}
}

// LoadAnswerCache reads the FAQ file at path and embeds its questions. A missing or
// unreadable file yields an empty cache. An embedding failure is returned, since
// the next commit would otherwise overwrite the file with fewer entries.
func LoadAnswerCache(ctx context.Context, path string, embedder ai.Embedder, threshold float64) (*AnswerCache, error) {
	cache := NewAnswerCache(path, embedder, threshold)

	entries, err := readFAQFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("No FAQ file yet, starting with an empty answer cache", "path", path)
		} else {
			logger.Warn("FAQ file unreadable, starting with an empty answer cache", "path", path, "error", err)
		}
		return cache, nil
	}
	if len(entries) == 0 {
		return cache, nil
	}

	index, err := embedQuestions(ctx, embedder, entries)
	if err != nil {
		return nil, fmt.Errorf("embed cached questions: %w", err)
	}
	cache.entries = entries
	cache.index = index

	logger.Info("Answer cache loaded", "path", path, "entries", len(entries))
	return cache, nil
}

func readFAQFile(path string) ([]models.FAQEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []models.FAQEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return entries, nil
}

func embedQuestions(ctx context.Context, embedder ai.Embedder, entries []models.FAQEntry) (*VectorIndex, error) {
	questions := make([]string, len(entries))
	for i, e := range entries {
		questions[i] = e.Query
	}
	vectors, err := embedder.EmbedBatch(ctx, questions)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(entries) {
		return nil, fmt.Errorf("got %d vectors for %d questions", len(vectors), len(entries))
	}
	return NewVectorIndex(vectors)
}

// Lookup embeds question and returns the cached answer of the closest stored
// question when its similarity is strictly above the threshold.
func (c *AnswerCache) Lookup(ctx context.Context, question string) (string, bool, error) {
	vec, err := c.embedder.Embed(ctx, question)
	if err != nil {
		return "", false, err
	}
	answer, ok := c.LookupVector(vec)
	return answer, ok, nil
}

// LookupVector is Lookup for a question that is already embedded.
func (c *AnswerCache) LookupVector(vec []float32) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	match, ok, err := c.index.Best(vec)
	if err != nil {
		logger.Warn("Answer cache lookup failed", "error", err)
		return "", false
	}
	if !ok || match.Score <= c.threshold {
		return "", false
	}
	return c.entries[match.Index].Answer, true
}

// Commit appends a question/answer pair, re-embeds every cached question, persists
// the file and only then swaps the in-memory state.
func (c *AnswerCache) Commit(ctx context.Context, question, answer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]models.FAQEntry, 0, len(c.entries)+1)
	next = append(next, c.entries...)
	next = append(next, models.FAQEntry{Query: question, Answer: answer})

	index, err := embedQuestions(ctx, c.embedder, next)
	if err != nil {
		return fmt.Errorf("embed cached questions: %w", err)
	}
	if err := writeFileAtomic(c.path, encodeIndentedJSON(next)); err != nil {
		return fmt.Errorf("write FAQ file: %w", err)
	}

	c.entries = next
	c.index = index
	return nil
}

// Entries returns a copy of the cached question/answer pairs in commit order.
func (c *AnswerCache) Entries() []models.FAQEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.FAQEntry(nil), c.entries...)
}

func (c *AnswerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
