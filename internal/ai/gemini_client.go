package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"krishi-mitra-backend/internal/logger"
	"krishi-mitra-backend/internal/telemetry"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

var (
	// ErrNotConfigured is returned by generators that have no credentials.
	ErrNotConfigured = errors.New("generator not configured")

	ErrQuotaExceeded = errors.New("rate limit exceeded: wait before retry")
	ErrEmptyResponse = errors.New("empty response")
)

type GeminiClient struct {
	breaker      *gobreaker.CircuitBreaker
	rateLimiter  *rate.Limiter
	tokenCounter *TokenCounter
	client       *genai.Client
	model        string
	tier         string
}

type TokenCounter struct {
	mu              sync.Mutex
	limits          RateLimits
	minuteTokens    int
	dailyTokens     int
	minuteRequests  int
	dailyRequests   int
	lastMinuteReset time.Time
	lastDayReset    time.Time
}

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

// NewGeminiClient creates the remote generation tier. An empty apiKey yields a client
// whose Generate always fails with ErrNotConfigured, so the fallback tier can still
// be wired when no key is present.
func NewGeminiClient(ctx context.Context, apiKey, model, tier string, metrics *telemetry.Metrics) (*GeminiClient, error) {
	limits := getRateLimits(tier)
	gc := &GeminiClient{
		tokenCounter: &TokenCounter{limits: limits},
		model:        model,
		tier:         tier,
	}
	if apiKey == "" {
		return gc, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	gc.client = client

	gc.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.RecordCircuitBreakerState("gemini", to.String())
		},
	})

	// RPM limit with some buffer
	gc.rateLimiter = rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), max(1, limits.RPM/10))

	return gc, nil
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

func (gc *GeminiClient) Name() string {
	return "Gemini API"
}

// Configured reports whether an API key was supplied.
func (gc *GeminiClient) Configured() bool {
	return gc != nil && gc.client != nil
}

// Generate answers the question from the retrieved passages.
func (gc *GeminiClient) Generate(ctx context.Context, question, passages string) (string, error) {
	if !gc.Configured() {
		return "", ErrNotConfigured
	}

	// Create tracing span
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate_content")
	defer span.End()

	prompt := BuildUserPrompt(question, passages)
	estimatedTokens := estimateTokens(SystemInstruction, prompt)
	span.SetAttributes(
		attribute.Int("gemini.estimated_tokens", estimatedTokens),
		attribute.String("gemini.model", gc.model),
	)

	// Check token limits
	if !gc.tokenCounter.CanConsume(estimatedTokens, 1) {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", ErrQuotaExceeded
	}

	// Rate limiter wait
	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.model)
		model.SetTemperature(0.4)
		model.SetMaxOutputTokens(2048)
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(SystemInstruction)}}

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			span.SetAttributes(attribute.String("gemini.error_message", err.Error()))
			return nil, err
		}

		actualTokens := extractTokenUsage(resp)
		gc.tokenCounter.RecordUsage(actualTokens, 1)
		span.SetAttributes(attribute.Int("gemini.actual_tokens", actualTokens))

		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
		}
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return "", err
	}

	text := responseText(result.(*genai.GenerateContentResponse))
	if text == "" {
		return "", ErrEmptyResponse
	}
	span.SetAttributes(attribute.Bool("gemini.success", true))
	return text, nil
}

func (tc *TokenCounter) CanConsume(tokens, requests int) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	now := time.Now()

	// Reset counters if time windows expired
	if now.Sub(tc.lastMinuteReset) >= time.Minute {
		tc.minuteTokens = 0
		tc.minuteRequests = 0
		tc.lastMinuteReset = now
	}

	if now.Sub(tc.lastDayReset) >= 24*time.Hour {
		tc.dailyTokens = 0
		tc.dailyRequests = 0
		tc.lastDayReset = now
	}

	if tc.minuteRequests+requests > tc.limits.RPM {
		return false
	}
	if tc.minuteTokens+tokens > tc.limits.TPM {
		return false
	}
	if tc.dailyRequests+requests > tc.limits.RPD {
		return false
	}

	return true
}

func (tc *TokenCounter) RecordUsage(tokens, requests int) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.minuteTokens += tokens
	tc.minuteRequests += requests
	tc.dailyTokens += tokens
	tc.dailyRequests += requests
}

// estimateTokens uses the rough 4 characters per token ratio.
func estimateTokens(parts ...string) int {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	return total / 4
}

// Extract token usage from Gemini response
func extractTokenUsage(resp *genai.GenerateContentResponse) int {
	if resp.UsageMetadata != nil {
		return int(resp.UsageMetadata.TotalTokenCount)
	}
	return max(1, len(responseText(resp))/4)
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		// first candidate only
		break
	}
	return strings.TrimSpace(b.String())
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}

// geminiMaxBatch is the per-request limit of the batch embedding endpoint.
const geminiMaxBatch = 100

// GeminiEmbedder embeds text with a Google embedding model.
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	batchSize int
}

func NewGeminiEmbedder(ctx context.Context, apiKey, model string, batchSize int) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 || batchSize > geminiMaxBatch {
		batchSize = geminiMaxBatch
	}
	return &GeminiEmbedder{client: client, model: model, batchSize: batchSize}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.EmbeddingModel(e.model).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Embedding.Values, nil
}

func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	out := make([][]float32, 0, len(texts))
	for _, chunk := range batches(texts, e.batchSize) {
		b := em.NewBatch()
		for _, text := range chunk {
			b.AddContent(genai.Text(text))
		}
		resp, err := em.BatchEmbedContents(ctx, b)
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != len(chunk) {
			return nil, fmt.Errorf("gemini embed: got %d embeddings for %d inputs", len(resp.Embeddings), len(chunk))
		}
		for _, emb := range resp.Embeddings {
			out = append(out, emb.Values)
		}
	}
	return out, nil
}

func (e *GeminiEmbedder) ModelName() string {
	return e.model
}

func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}
