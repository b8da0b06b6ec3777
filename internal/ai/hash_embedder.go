package ai

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

const DefaultHashDimensions = 384

// questionStopWords carry no topic signal. Dropping them lets differently phrased
// questions about the same subject land on the same vector.
var questionStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "at": true, "for": true, "with": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "it": true,
	"what": true, "which": true, "how": true, "why": true, "when": true, "where": true,
	"who": true, "do": true, "does": true, "can": true, "should": true, "i": true,
	"my": true, "me": true, "we": true, "you": true, "please": true, "tell": true,
}

// HashEmbedder is an offline embedder: each content word is hashed (FNV-64) into a
// fixed-width bag-of-words vector, which is then L2-normalized. It needs no model
// server and is deterministic, at the cost of any real semantic matching.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hash embedder with the given width.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashEmbedder{dims: dims}
}

func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, e.dims)
	for _, token := range hashTokens(text) {
		h := fnv.New64()
		_, _ = h.Write([]byte(token))
		vec[h.Sum64()%uint64(e.dims)]++
	}
	return normalizeVector(vec), nil
}

func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *HashEmbedder) ModelName() string {
	return fmt.Sprintf("hash-%d", e.dims)
}

func hashTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if !questionStopWords[f] {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
