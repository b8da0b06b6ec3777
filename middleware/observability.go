package middleware

import (
	"net/http"
	"strconv"
	"time"

	"krishi-mitra-backend/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AnswerSourceKey is the gin context key under which handlers publish where an answer
// came from (cache, local, gemini, ...).
const AnswerSourceKey = "answer_source"

// TracingMiddleware starts a server span per request. Probes are not traced.
func TracingMiddleware() gin.HandlerFunc {
	return otelgin.Middleware(telemetry.ServiceName, otelgin.WithFilter(func(r *http.Request) bool {
		return r.URL.Path != "/health" && r.URL.Path != "/ping"
	}))
}

// EnrichTrace adds the request ID and, once the handler ran, the answer source to the
// current span.
func EnrichTrace() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		span.SetAttributes(
			attribute.String("request.id", GetRequestID(c)),
			attribute.String("http.client_ip", c.ClientIP()),
		)

		c.Next()

		if source := c.GetString(AnswerSourceKey); source != "" {
			span.SetAttributes(attribute.String("answer.source", source))
		}
		span.SetAttributes(attribute.Int("http.response.status_code", c.Writer.Status()))
	}
}

// MetricsMiddleware records request counts and latency by route and status class.
func MetricsMiddleware(metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordRequest(c.Request.Method, path, statusClass(c.Writer.Status()), time.Since(start).Seconds())
	}
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
