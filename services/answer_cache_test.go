package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"krishi-mitra-backend/internal/ai"
	"krishi-mitra-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerCacheEmptyMisses(t *testing.T) {
	cache := NewAnswerCache(filepath.Join(t.TempDir(), "faq.json"), ai.NewHashEmbedder(64), DefaultSimilarityThreshold)

	answer, ok, err := cache.Lookup(context.Background(), "When should I sow wheat?")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, answer)
	assert.Equal(t, 0, cache.Len())
}

func TestLoadAnswerCacheMissingOrCorruptFile(t *testing.T) {
	dir := t.TempDir()
	emb := ai.NewHashEmbedder(64)

	cache, err := LoadAnswerCache(context.Background(), filepath.Join(dir, "faq.json"), emb, 0.85)
	require.NoError(t, err)
	assert.Equal(t, 0, cache.Len())

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o644))
	cache, err = LoadAnswerCache(context.Background(), corrupt, emb, 0.85)
	require.NoError(t, err)
	assert.Equal(t, 0, cache.Len())
}

func TestAnswerCacheCommitThenLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faq.json")
	emb := ai.NewHashEmbedder(128)
	cache := NewAnswerCache(path, emb, DefaultSimilarityThreshold)
	ctx := context.Background()

	answer := "Groundnut & millets do well; keep pH < 7.5 for best results."
	require.NoError(t, cache.Commit(ctx, "What crops grow well in sandy loam?", answer))

	got, ok, err := cache.Lookup(ctx, "Which crops grow well in sandy loam?")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, answer, got)

	_, ok, err = cache.Lookup(ctx, "How do I control aphids on mustard?")
	require.NoError(t, err)
	assert.False(t, ok)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  {\n    \"query\": ")
	assert.Contains(t, string(raw), "pH < 7.5")

	reloaded, err := LoadAnswerCache(ctx, path, emb, DefaultSimilarityThreshold)
	require.NoError(t, err)
	assert.Equal(t, cache.Entries(), reloaded.Entries())
}

func TestAnswerCacheThresholdIsStrict(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"stored": {1, 0},
		"query":  {3, 4},
	}}
	ctx := context.Background()

	strict := NewAnswerCache(filepath.Join(t.TempDir(), "faq.json"), emb, 0.6)
	require.NoError(t, strict.Commit(ctx, "stored", "answer"))
	_, ok, err := strict.Lookup(ctx, "query")
	require.NoError(t, err)
	assert.False(t, ok, "a score equal to the threshold is a miss")

	loose := NewAnswerCache(filepath.Join(t.TempDir(), "faq.json"), emb, 0.59)
	require.NoError(t, loose.Commit(ctx, "stored", "answer"))
	got, ok, err := loose.Lookup(ctx, "query")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "answer", got)
}

func TestAnswerCacheFailedCommitChangesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faq.json")
	emb := &stubEmbedder{vectors: map[string][]float32{
		"first":  {1, 0},
		"second": {0, 1},
	}}
	cache := NewAnswerCache(path, emb, 0.85)
	ctx := context.Background()
	require.NoError(t, cache.Commit(ctx, "first", "one"))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	emb.err = errors.New("model offline")
	assert.Error(t, cache.Commit(ctx, "second", "two"))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, []models.FAQEntry{{Query: "first", Answer: "one"}}, cache.Entries())
}

func TestAnswerCacheFailedWriteChangesNothing(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	cache := NewAnswerCache(filepath.Join(blocker, "faq.json"), ai.NewHashEmbedder(32), 0.85)
	assert.Error(t, cache.Commit(context.Background(), "q", "a"))
	assert.Equal(t, 0, cache.Len())
}

func TestAnswerCacheFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faq.json")
	cache := NewAnswerCache(path, ai.NewHashEmbedder(32), 0.85)
	require.NoError(t, cache.Commit(context.Background(), "Best time to sow mustard?", "October is ideal in north India."))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries []map[string]string
	require.NoError(t, json.Unmarshal(raw, &entries))
	assert.Equal(t, []map[string]string{{"query": "Best time to sow mustard?", "answer": "October is ideal in north India."}}, entries)
}
