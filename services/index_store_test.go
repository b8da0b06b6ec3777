package services

import (
	"os"
	"path/filepath"
	"testing"

	"krishi-mitra-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*IndexStore, string, string) {
	t.Helper()
	dir := t.TempDir()
	chunks := filepath.Join(dir, "text_chunks.json")
	vectors := filepath.Join(dir, "embeddings.gob")
	return NewIndexStore(chunks, vectors), chunks, vectors
}

func TestIndexStoreRoundTrip(t *testing.T) {
	store, _, _ := newTestStore(t)
	chunks := []models.Chunk{
		{ChunkID: "a", Source: "soil.pdf", Order: 0, Text: "Sandy loam needs frequent irrigation."},
		{ChunkID: "b", Source: "soil.pdf", Order: 1, Text: "Clay soils hold water for longer."},
	}
	vectors := [][]float32{{1, 0}, {0, 1}}

	require.NoError(t, store.Replace("all-minilm", chunks, vectors))

	idx, err := store.Load("all-minilm")
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, chunks, idx.Chunks)
	assert.Equal(t, 2, idx.Vectors.Dimensions())

	hits, err := idx.Search([]float32{0.1, 0.9}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].Chunk.ChunkID)
}

func TestIndexStoreRefusesOtherModel(t *testing.T) {
	store, _, _ := newTestStore(t)
	require.NoError(t, store.Replace("all-minilm", []models.Chunk{{Text: "x"}}, [][]float32{{1}}))

	_, err := store.Load("text-embedding-004")
	assert.ErrorIs(t, err, ErrIndexUnavailable)
}

func TestIndexStoreMissingFiles(t *testing.T) {
	store, chunksPath, _ := newTestStore(t)

	_, err := store.Load("all-minilm")
	assert.ErrorIs(t, err, ErrIndexUnavailable)

	// a chunk file without its vectors is not an index
	require.NoError(t, os.WriteFile(chunksPath, []byte(`[]`), 0o644))
	_, err = store.Load("all-minilm")
	assert.ErrorIs(t, err, ErrIndexUnavailable)
}

func TestIndexStoreCountMismatch(t *testing.T) {
	store, chunksPath, _ := newTestStore(t)
	require.NoError(t, store.Replace("m", []models.Chunk{{Text: "one"}, {Text: "two"}}, [][]float32{{1}, {0}}))
	require.NoError(t, os.WriteFile(chunksPath, []byte(`[{"text":"one"}]`), 0o644))

	_, err := store.Load("m")
	assert.ErrorIs(t, err, ErrIndexUnavailable)
}

func TestIndexStoreReadsPlainTextChunks(t *testing.T) {
	store, chunksPath, _ := newTestStore(t)
	require.NoError(t, store.Replace("m", []models.Chunk{{Text: "one"}, {Text: "two"}}, [][]float32{{1}, {0}}))
	require.NoError(t, os.WriteFile(chunksPath, []byte(`["first", "second"]`), 0o644))

	idx, err := store.Load("m")
	require.NoError(t, err)
	assert.Equal(t, "second", idx.Chunks[1].Text)
	assert.Equal(t, 1, idx.Chunks[1].Order)
}

func TestIndexStoreReplaceOverwrites(t *testing.T) {
	store, _, _ := newTestStore(t)
	require.NoError(t, store.Replace("m", []models.Chunk{{Text: "old"}}, [][]float32{{1}}))
	require.NoError(t, store.Replace("m", []models.Chunk{{Text: "new a"}, {Text: "new b"}}, [][]float32{{1}, {0}}))

	idx, err := store.Load("m")
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, "new a", idx.Chunks[0].Text)

	// no staged files are left behind
	entries, err := os.ReadDir(filepath.Dir(store.chunksPath))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestIndexStoreRejectsMismatchedInput(t *testing.T) {
	store, _, _ := newTestStore(t)
	err := store.Replace("m", []models.Chunk{{Text: "a"}}, nil)
	assert.Error(t, err)
}

func TestNilDocumentIndexSearch(t *testing.T) {
	var idx *DocumentIndex
	hits, err := idx.Search([]float32{1}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
