package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultOllamaHost = "http://localhost:11434"

	// ollamaHTTPTimeout bounds a single request; callers add tighter per-call deadlines.
	ollamaHTTPTimeout = 5 * time.Minute
)

// OllamaClient talks to a local Ollama server over its REST API.
type OllamaClient struct {
	host   string
	client *http.Client
}

// NewOllamaClient creates a client for host. A zero timeout uses a generous default.
func NewOllamaClient(host string, timeout time.Duration) *OllamaClient {
	if host == "" {
		host = DefaultOllamaHost
	}
	if timeout <= 0 {
		timeout = ollamaHTTPTimeout
	}
	return &OllamaClient{
		host:   strings.TrimRight(host, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// ollamaUnloadRequest asks the server to evict a model. An empty prompt with
// keep_alive 0 unloads without generating.
type ollamaUnloadRequest struct {
	Model     string `json:"model"`
	KeepAlive int    `json:"keep_alive"`
}

// Embed returns one vector per input, in order.
func (c *OllamaClient) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	var resp ollamaEmbedResponse
	if err := c.post(ctx, "/api/embed", ollamaEmbedRequest{Model: model, Input: inputs}, &resp); err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("ollama embed: got %d embeddings for %d inputs", len(resp.Embeddings), len(inputs))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		vec := make([]float32, len(emb))
		for j, v := range emb {
			vec[j] = float32(v)
		}
		out[i] = normalizeVector(vec)
	}
	return out, nil
}

// Chat sends a non-streaming chat request and returns the assistant message.
func (c *OllamaClient) Chat(ctx context.Context, model, system, user string) (string, error) {
	req := ollamaChatRequest{
		Model: model,
		Messages: []ollamaMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream: false,
	}

	var resp ollamaChatResponse
	if err := c.post(ctx, "/api/chat", req, &resp); err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return resp.Message.Content, nil
}

// Unload evicts model from the server's memory.
func (c *OllamaClient) Unload(ctx context.Context, model string) error {
	if err := c.post(ctx, "/api/generate", ollamaUnloadRequest{Model: model, KeepAlive: 0}, nil); err != nil {
		return fmt.Errorf("ollama unload %s: %w", model, err)
	}
	return nil
}

func (c *OllamaClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// OllamaEmbedder embeds text with an Ollama embedding model.
type OllamaEmbedder struct {
	client    *OllamaClient
	model     string
	batchSize int
}

func NewOllamaEmbedder(client *OllamaClient, model string, batchSize int) *OllamaEmbedder {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &OllamaEmbedder{client: client, model: model, batchSize: batchSize}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.client.Embed(ctx, e.model, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends texts in request-sized slices and concatenates the results.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, batch := range batches(texts, e.batchSize) {
		vecs, err := e.client.Embed(ctx, e.model, batch)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OllamaEmbedder) ModelName() string {
	return e.model
}

// OllamaGenerator answers with a local chat model. It is the first generation tier.
type OllamaGenerator struct {
	client *OllamaClient
	model  string
}

func NewOllamaGenerator(client *OllamaClient, model string) *OllamaGenerator {
	return &OllamaGenerator{client: client, model: model}
}

func (g *OllamaGenerator) Name() string {
	return "Local LLM"
}

func (g *OllamaGenerator) Generate(ctx context.Context, question, passages string) (string, error) {
	tracer := otel.Tracer("ollama-client")
	ctx, span := tracer.Start(ctx, "ollama.chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("ollama.model", g.model),
		attribute.Int("ollama.context_chars", len(passages)),
	)

	answer, err := g.client.Chat(ctx, g.model, SystemInstruction, BuildUserPrompt(question, passages))
	if err != nil {
		span.SetAttributes(attribute.Bool("ollama.error", true))
		if errors.Is(err, context.DeadlineExceeded) {
			span.SetAttributes(attribute.Bool("ollama.timeout", true))
		}
		return "", err
	}
	return answer, nil
}

// Release unloads the chat model so the next tier is not competing with it for memory.
func (g *OllamaGenerator) Release(ctx context.Context) error {
	return g.client.Unload(ctx, g.model)
}
