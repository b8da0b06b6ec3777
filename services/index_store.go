package services

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"krishi-mitra-backend/internal/logger"
	"krishi-mitra-backend/models"
)

// ErrIndexUnavailable means no loadable document index exists for the configured
// embedding model. Queries answer with the not-found message instead of generating.
var ErrIndexUnavailable = errors.New("document index unavailable")

// vectorFile is the on-disk layout of the vector artifact.
type vectorFile struct {
	Model      string
	Dimensions int
	Vectors    [][]float32
}

// IndexStore persists the document index as two files: ordered chunk records (JSON)
// and their vectors (gob). The vector file is always the last one put in place, and
// Load requires both, so a partially replaced index is never loaded.
type IndexStore struct {
	chunksPath  string
	vectorsPath string
}

// NewIndexStore creates a store for the given artifact paths.
func NewIndexStore(chunksPath, vectorsPath string) *IndexStore {
	return &IndexStore{chunksPath: chunksPath, vectorsPath: vectorsPath}
}

// Replace atomically swaps the persisted index for a new one. Both files are staged
// first; the old files are then removed and the staged chunk file is renamed before
// the staged vector file.
func (s *IndexStore) Replace(model string, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("index replace: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}

	chunksTmp, err := stageFile(s.chunksPath, encodeIndentedJSON(chunks))
	if err != nil {
		return fmt.Errorf("stage chunks: %w", err)
	}
	vectorsTmp, err := stageFile(s.vectorsPath, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(vectorFile{Model: model, Dimensions: dim, Vectors: vectors})
	})
	if err != nil {
		os.Remove(chunksTmp)
		return fmt.Errorf("stage vectors: %w", err)
	}

	cleanup := func() {
		os.Remove(chunksTmp)
		os.Remove(vectorsTmp)
	}

	for _, old := range []string{s.vectorsPath, s.chunksPath} {
		if err := os.Remove(old); err != nil && !errors.Is(err, os.ErrNotExist) {
			cleanup()
			return fmt.Errorf("remove previous index file %s: %w", old, err)
		}
	}

	if err := os.Rename(chunksTmp, s.chunksPath); err != nil {
		cleanup()
		return fmt.Errorf("install chunks: %w", err)
	}
	if err := os.Rename(vectorsTmp, s.vectorsPath); err != nil {
		os.Remove(vectorsTmp)
		return fmt.Errorf("install vectors: %w", err)
	}

	logger.Info("Document index replaced", "chunks", len(chunks), "dimensions", dim, "model", model)
	return nil
}

// Load reads the persisted index. Any missing file, decode failure, count mismatch or
// model mismatch is reported as ErrIndexUnavailable.
func (s *IndexStore) Load(model string) (*DocumentIndex, error) {
	vf, err := s.readVectors()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	if vf.Model != model {
		return nil, fmt.Errorf("%w: index built with model %q, configured model is %q", ErrIndexUnavailable, vf.Model, model)
	}

	chunks, err := s.readChunks()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	if len(chunks) != len(vf.Vectors) {
		return nil, fmt.Errorf("%w: %d chunks but %d vectors", ErrIndexUnavailable, len(chunks), len(vf.Vectors))
	}

	vectors, err := NewVectorIndex(vf.Vectors)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	return &DocumentIndex{Model: vf.Model, Chunks: chunks, Vectors: vectors}, nil
}

func (s *IndexStore) readVectors() (*vectorFile, error) {
	file, err := os.Open(s.vectorsPath)
	if err != nil {
		return nil, fmt.Errorf("open vectors: %w", err)
	}
	defer file.Close()

	var vf vectorFile
	if err := gob.NewDecoder(file).Decode(&vf); err != nil {
		return nil, fmt.Errorf("decode vectors: %w", err)
	}
	return &vf, nil
}

// readChunks accepts chunk records or, for indexes written by older tooling, a plain
// list of chunk texts.
func (s *IndexStore) readChunks() ([]models.Chunk, error) {
	data, err := os.ReadFile(s.chunksPath)
	if err != nil {
		return nil, fmt.Errorf("read chunks: %w", err)
	}

	var chunks []models.Chunk
	if err := json.Unmarshal(data, &chunks); err == nil {
		return chunks, nil
	}

	var texts []string
	if err := json.Unmarshal(data, &texts); err != nil {
		return nil, fmt.Errorf("decode chunks: %w", err)
	}
	chunks = make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{Order: i, Text: text}
	}
	return chunks, nil
}

// ScoredChunk is a retrieved chunk with its similarity to the query.
type ScoredChunk struct {
	Chunk models.Chunk
	Score float64
}

// DocumentIndex is the loaded, read-only document index.
type DocumentIndex struct {
	Model   string
	Chunks  []models.Chunk
	Vectors *VectorIndex
}

// Len returns the number of indexed chunks; a nil index has none.
func (d *DocumentIndex) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Chunks)
}

// Search returns the k chunks most similar to query, best first.
func (d *DocumentIndex) Search(query []float32, k int) ([]ScoredChunk, error) {
	if d.Len() == 0 {
		return []ScoredChunk{}, nil
	}
	matches, err := d.Vectors.TopK(query, k)
	if err != nil {
		return nil, err
	}
	out := make([]ScoredChunk, len(matches))
	for i, m := range matches {
		out[i] = ScoredChunk{Chunk: d.Chunks[m.Index], Score: m.Score}
	}
	return out, nil
}
