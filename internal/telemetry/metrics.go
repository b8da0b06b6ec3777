package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics. A nil *Metrics records nothing, so
// components built without telemetry (tests, the ingest CLI) can share the same code.
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	QueryCounter        metric.Int64Counter
	QueryDuration       metric.Float64Histogram
	GenerationFallbacks metric.Int64Counter
	FAQCommits          metric.Int64Counter
	IngestedChunks      metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(ServiceName)

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	queryCounter, err := meter.Int64Counter(
		"query.answers.total",
		metric.WithDescription("Answered questions by source (cache, tier name, unavailable)"),
	)
	if err != nil {
		return nil, err
	}

	queryDuration, err := meter.Float64Histogram(
		"query.duration",
		metric.WithDescription("End-to-end question answering time in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	fallbacks, err := meter.Int64Counter(
		"generation.fallbacks.total",
		metric.WithDescription("Generator tiers abandoned in favour of the next tier"),
	)
	if err != nil {
		return nil, err
	}

	faqCommits, err := meter.Int64Counter(
		"faq.commits.total",
		metric.WithDescription("Answer cache commits by outcome"),
	)
	if err != nil {
		return nil, err
	}

	ingestedChunks, err := meter.Int64Counter(
		"ingest.chunks.total",
		metric.WithDescription("Chunks written by ingestion runs"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		QueryCounter:        queryCounter,
		QueryDuration:       queryDuration,
		GenerationFallbacks: fallbacks,
		FAQCommits:          faqCommits,
		IngestedChunks:      ingestedChunks,
		CircuitBreakerState: circuitBreakerState,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	)

	m.RequestCounter.Add(context.Background(), 1, attrs)
	m.RequestDuration.Record(context.Background(), duration, attrs)
}

// RecordQuery records which source produced an answer and how long it took.
func (m *Metrics) RecordQuery(ctx context.Context, source string, duration float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("query.source", source))
	m.QueryCounter.Add(ctx, 1, attrs)
	m.QueryDuration.Record(ctx, duration, attrs)
}

// RecordFallback counts a tier handing over to the next one.
func (m *Metrics) RecordFallback(ctx context.Context, from, reason string) {
	if m == nil {
		return
	}
	m.GenerationFallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("generation.tier", from),
		attribute.String("generation.reason", reason),
	))
}

// RecordFAQCommit counts answer cache commits.
func (m *Metrics) RecordFAQCommit(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.FAQCommits.Add(ctx, 1, metric.WithAttributes(attribute.Bool("faq.success", success)))
}

// RecordIngest counts chunks produced by an ingestion run.
func (m *Metrics) RecordIngest(ctx context.Context, chunks int) {
	if m == nil {
		return
	}
	m.IngestedChunks.Add(ctx, int64(chunks))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("state", state),
	))
}
