package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"krishi-mitra-backend/internal/ai"
	"krishi-mitra-backend/internal/logger"
	"krishi-mitra-backend/internal/telemetry"
	"krishi-mitra-backend/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultMinAnswerLength is the shortest trimmed answer a tier may return.
const DefaultMinAnswerLength = 10

// releaseTimeout bounds the best-effort cleanup of an abandoned tier.
const releaseTimeout = 5 * time.Second

var errShortAnswer = errors.New("response too short")

// Generator produces an answer for question from the retrieved passages. Name is
// the label used in displayed error text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, question, passages string) (string, error)
}

// Releaser is implemented by generators that hold resources worth freeing when the
// chain moves past them.
type Releaser interface {
	Release(ctx context.Context) error
}

// Tier is one step of the generation chain. Name is the answer source reported to
// callers ("local", "gemini"). A zero Timeout means no deadline of its own.
type Tier struct {
	Name      string
	Generator Generator
	Timeout   time.Duration
}

// GenerationChain tries tiers in order until one returns a usable answer.
type GenerationChain struct {
	tiers           []Tier
	minAnswerLength int
	metrics         *telemetry.Metrics
}

func NewGenerationChain(tiers []Tier, minAnswerLength int, metrics *telemetry.Metrics) *GenerationChain {
	if minAnswerLength <= 0 {
		minAnswerLength = DefaultMinAnswerLength
	}
	return &GenerationChain{
		tiers:           tiers,
		minAnswerLength: minAnswerLength,
		metrics:         metrics,
	}
}

// Generate never fails. When the last tier fails its error is rendered as the answer
// and Failed is set.
func (c *GenerationChain) Generate(ctx context.Context, question, passages string) models.Generation {
	if len(c.tiers) == 0 {
		return models.Generation{Answer: "No answer generator is configured.", Failed: true}
	}

	last := len(c.tiers) - 1
	for i, tier := range c.tiers[:last] {
		answer, err := c.attempt(ctx, tier, question, passages)
		if err == nil {
			return models.Generation{Answer: answer, Tier: tier.Name}
		}
		logger.Warn("Generator failed, falling back", "tier", tier.Name, "next", c.tiers[i+1].Name, "error", err)
		c.metrics.RecordFallback(ctx, tier.Name, fallbackReason(err))
		c.release(ctx, tier)
	}

	final := c.tiers[last]
	answer, err := c.attempt(ctx, final, question, passages)
	if err != nil {
		logger.Error("Final generator failed", "tier", final.Name, "error", err)
		return models.Generation{Answer: failureText(final.Generator.Name(), err), Tier: final.Name, Failed: true}
	}
	return models.Generation{Answer: answer, Tier: final.Name}
}

func (c *GenerationChain) attempt(ctx context.Context, tier Tier, question, passages string) (string, error) {
	tracer := otel.Tracer("generation-chain")
	ctx, span := tracer.Start(ctx, "generation.tier")
	defer span.End()
	span.SetAttributes(attribute.String("generation.tier", tier.Name))

	if tier.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tier.Timeout)
		defer cancel()
	}

	start := time.Now()
	answer, err := tier.Generator.Generate(ctx, question, passages)
	span.SetAttributes(attribute.Int64("generation.duration_ms", time.Since(start).Milliseconds()))
	if err == nil {
		answer = strings.TrimSpace(answer)
		if utf8.RuneCountInString(answer) < c.minAnswerLength {
			err = errShortAnswer
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return answer, nil
}

func (c *GenerationChain) release(ctx context.Context, tier Tier) {
	r, ok := tier.Generator.(Releaser)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := r.Release(ctx); err != nil {
		logger.Debug("Generator release failed", "tier", tier.Name, "error", err)
	}
}

func failureText(label string, err error) string {
	if errors.Is(err, ai.ErrNotConfigured) {
		return fmt.Sprintf("%s is not configured.", label)
	}
	return fmt.Sprintf("%s error: %v", label, err)
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, errShortAnswer):
		return "short_answer"
	case errors.Is(err, ai.ErrNotConfigured):
		return "not_configured"
	default:
		return "error"
	}
}
