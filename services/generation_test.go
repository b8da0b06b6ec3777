package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"krishi-mitra-backend/internal/ai"

	"github.com/stretchr/testify/assert"
)

const goodAnswer = "Sow wheat in early November after the paddy harvest."

func twoTierChain(primary, secondary Generator, timeout time.Duration) *GenerationChain {
	return NewGenerationChain([]Tier{
		{Name: "local", Generator: primary, Timeout: timeout},
		{Name: "gemini", Generator: secondary},
	}, DefaultMinAnswerLength, nil)
}

func TestChainPrimarySucceeds(t *testing.T) {
	primary := &stubGenerator{label: "Local LLM", answer: "  " + goodAnswer + "\n"}
	secondary := &stubGenerator{label: "Gemini API", answer: "unused answer text"}

	gen := twoTierChain(primary, secondary, time.Second).Generate(context.Background(), "q", "ctx")

	assert.Equal(t, goodAnswer, gen.Answer)
	assert.Equal(t, "local", gen.Tier)
	assert.False(t, gen.Failed)
	assert.Equal(t, 0, secondary.Calls())
	assert.Equal(t, 0, primary.released)
}

func TestChainFallsBackOnError(t *testing.T) {
	primary := &stubGenerator{label: "Local LLM", err: errors.New("connection refused")}
	secondary := &stubGenerator{label: "Gemini API", answer: goodAnswer}

	gen := twoTierChain(primary, secondary, time.Second).Generate(context.Background(), "q", "ctx")

	assert.Equal(t, goodAnswer, gen.Answer)
	assert.Equal(t, "gemini", gen.Tier)
	assert.Equal(t, 1, primary.released)
}

func TestChainFallsBackOnShortAnswer(t *testing.T) {
	primary := &stubGenerator{label: "Local LLM", answer: "  ok   "}
	secondary := &stubGenerator{label: "Gemini API", answer: goodAnswer}

	gen := twoTierChain(primary, secondary, time.Second).Generate(context.Background(), "q", "ctx")

	assert.Equal(t, "gemini", gen.Tier)
	assert.Equal(t, 1, secondary.Calls())
}

func TestChainFallsBackOnTimeout(t *testing.T) {
	primary := &stubGenerator{label: "Local LLM", block: true}
	secondary := &stubGenerator{label: "Gemini API", answer: goodAnswer}

	start := time.Now()
	gen := twoTierChain(primary, secondary, 20*time.Millisecond).Generate(context.Background(), "q", "ctx")

	assert.Equal(t, "gemini", gen.Tier)
	assert.Equal(t, goodAnswer, gen.Answer)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, primary.released)
}

func TestChainFinalFailureBecomesErrorText(t *testing.T) {
	primary := &stubGenerator{label: "Local LLM", err: errors.New("down")}
	secondary := &stubGenerator{label: "Gemini API", err: errors.New("quota exhausted")}

	gen := twoTierChain(primary, secondary, time.Second).Generate(context.Background(), "q", "ctx")

	assert.True(t, gen.Failed)
	assert.Equal(t, "gemini", gen.Tier)
	assert.Equal(t, "Gemini API error: quota exhausted", gen.Answer)
}

func TestChainUnconfiguredSecondary(t *testing.T) {
	primary := &stubGenerator{label: "Local LLM", err: errors.New("down")}
	secondary := &stubGenerator{label: "Gemini API", err: ai.ErrNotConfigured}

	gen := twoTierChain(primary, secondary, time.Second).Generate(context.Background(), "q", "ctx")

	assert.True(t, gen.Failed)
	assert.Equal(t, "Gemini API is not configured.", gen.Answer)
}

func TestChainFinalShortAnswerIsFailure(t *testing.T) {
	chain := NewGenerationChain([]Tier{{Name: "plain", Generator: plainGenerator{answer: "no"}}}, 0, nil)

	gen := chain.Generate(context.Background(), "q", "ctx")

	assert.True(t, gen.Failed)
	assert.Equal(t, "Plain error: response too short", gen.Answer)
}

func TestChainWithoutTiers(t *testing.T) {
	gen := NewGenerationChain(nil, 0, nil).Generate(context.Background(), "q", "ctx")
	assert.True(t, gen.Failed)
	assert.NotEmpty(t, gen.Answer)
}

func TestChainThreeTiers(t *testing.T) {
	chain := NewGenerationChain([]Tier{
		{Name: "a", Generator: &stubGenerator{label: "A", err: errors.New("x")}},
		{Name: "b", Generator: &stubGenerator{label: "B", answer: "short"}},
		{Name: "c", Generator: &stubGenerator{label: "C", answer: goodAnswer}},
	}, DefaultMinAnswerLength, nil)

	gen := chain.Generate(context.Background(), "q", "ctx")
	assert.Equal(t, "c", gen.Tier)
	assert.Equal(t, goodAnswer, gen.Answer)
}
