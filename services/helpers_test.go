package services

import (
	"context"
	"errors"
	"sync"
)

// stubEmbedder returns fixed vectors per text and fails for unknown texts.
type stubEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	calls   int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := s.vectors[t]
		if !ok {
			return nil, errors.New("no vector for " + t)
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) ModelName() string { return "stub" }

// stubGenerator answers with a fixed text or error and counts calls.
type stubGenerator struct {
	mu       sync.Mutex
	label    string
	answer   string
	err      error
	block    bool
	calls    int
	released int
}

func (g *stubGenerator) Name() string { return g.label }

func (g *stubGenerator) Generate(ctx context.Context, _, _ string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.answer, g.err
}

func (g *stubGenerator) Release(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.released++
	return nil
}

func (g *stubGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// plainGenerator has no Release method.
type plainGenerator struct {
	answer string
}

func (g plainGenerator) Name() string { return "Plain" }

func (g plainGenerator) Generate(context.Context, string, string) (string, error) {
	return g.answer, nil
}
