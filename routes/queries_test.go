package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"krishi-mitra-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	logs  []models.QueryLog
	err   error
	limit int64
}

func (f *fakeHistory) Recent(_ context.Context, limit int64) ([]models.QueryLog, error) {
	f.limit = limit
	return f.logs, f.err
}

func newQueryRouter(h QueryHistory) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupQueryLogRoutes(r, h)
	return r
}

func TestRecentQueries(t *testing.T) {
	h := &fakeHistory{logs: []models.QueryLog{{Question: "When to sow wheat?", Source: "gemini"}}}
	r := newQueryRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/queries", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(defaultQueryLimit), h.limit)

	var body struct {
		Queries []models.QueryLog `json:"queries"`
		Count   int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "When to sow wheat?", body.Queries[0].Question)
}

func TestRecentQueriesLimit(t *testing.T) {
	h := &fakeHistory{}
	r := newQueryRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/queries?limit=5000", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(maxQueryLimit), h.limit)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/queries?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecentQueriesStoreError(t *testing.T) {
	r := newQueryRouter(&fakeHistory{err: errors.New("connection refused")})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/queries", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
