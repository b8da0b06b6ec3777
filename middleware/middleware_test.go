package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"krishi-mitra-backend/internal/config"
	"krishi-mitra-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDMiddlewareGeneratesAndPropagates(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c)+"|"+utils.RequestIDFrom(c.Request.Context()))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	id := w.Header().Get(RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Equal(t, id+"|"+id, w.Body.String())

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRequestIDMiddlewareReplacesMalformedIDs(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	for _, bad := range []string{"has space", strings.Repeat("a", maxRequestIDLength+1)} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(RequestIDHeader, bad)
		r.ServeHTTP(w, req)

		assert.NotEqual(t, bad, w.Header().Get(RequestIDHeader))
		assert.Len(t, w.Body.String(), 36)
	}
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(http.StatusOK))
	assert.Equal(t, "4xx", statusClass(http.StatusTooManyRequests))
	assert.Equal(t, "5xx", statusClass(http.StatusBadGateway))
}

func TestRequestSizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(RequestSizeLimit(16))
	r.POST("/ask", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"a very long question"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "request_too_large")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimitFailsOpenWithoutRedis(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	r := gin.New()
	r.Use(RateLimitMiddleware(rdb, &config.Config{RateLimitReqs: 1, RateLimitWindow: 60}))
	r.POST("/ask", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ask", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestMetricsMiddlewareWithoutMetrics(t *testing.T) {
	r := gin.New()
	r.Use(MetricsMiddleware(nil))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
