package services

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Match is one top-k hit: the position of the vector in the index and its cosine
// similarity to the query.
type Match struct {
	Index int
	Score float64
}

// VectorIndex is an exact, in-memory cosine similarity index. It is immutable after
// construction and safe for concurrent readers.
type VectorIndex struct {
	vectors [][]float32
	norms   []float64
	dim     int
}

// NewVectorIndex builds an index over vectors. All vectors must share one dimension.
func NewVectorIndex(vectors [][]float32) (*VectorIndex, error) {
	idx := &VectorIndex{
		vectors: vectors,
		norms:   make([]float64, len(vectors)),
	}
	for i, v := range vectors {
		if i == 0 {
			idx.dim = len(v)
		} else if len(v) != idx.dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), idx.dim)
		}
		idx.norms[i] = norm(v)
	}
	return idx, nil
}

// Len returns the number of indexed vectors.
func (idx *VectorIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.vectors)
}

// Dimensions returns the vector width, or 0 for an empty index.
func (idx *VectorIndex) Dimensions() int {
	if idx == nil {
		return 0
	}
	return idx.dim
}

// TopK returns up to k matches ordered by descending similarity. Equal scores keep
// insertion order.
func (idx *VectorIndex) TopK(query []float32, k int) ([]Match, error) {
	if idx.Len() == 0 || k <= 0 {
		return []Match{}, nil
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(query), idx.dim)
	}

	qn := norm(query)
	matches := make([]Match, len(idx.vectors))
	for i, v := range idx.vectors {
		matches[i] = Match{Index: i, Score: cosine(query, v, qn, idx.norms[i])}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// Best returns the single closest vector. ok is false for an empty index.
func (idx *VectorIndex) Best(query []float32) (Match, bool, error) {
	matches, err := idx.TopK(query, 1)
	if err != nil || len(matches) == 0 {
		return Match{}, false, err
	}
	return matches[0], true, nil
}

// CosineSimilarity returns the cosine of the angle between a and b. Zero vectors
// score 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	return cosine(a, b, norm(a), norm(b)), nil
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
