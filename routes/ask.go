package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"krishi-mitra-backend/internal/logger"
	"krishi-mitra-backend/middleware"
	"krishi-mitra-backend/models"
	"krishi-mitra-backend/services"
	"krishi-mitra-backend/utils"

	"github.com/gin-gonic/gin"
)

// Answerer resolves a question to an answer.
type Answerer interface {
	Resolve(ctx context.Context, question string) *models.QueryResult
}

// FAQSource lists the cached question/answer pairs.
type FAQSource interface {
	Entries() []models.FAQEntry
}

type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

type AskResponse struct {
	Answer string `json:"answer"`
	Source string `json:"source,omitempty"`
	Cached bool   `json:"cached"`
}

// SetupAskRoutes registers the question answering and FAQ endpoints. guards run
// before /ask only (rate limiting, body size).
func SetupAskRoutes(router *gin.Engine, engine Answerer, faq FAQSource, guards ...gin.HandlerFunc) {
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	ask := append(append([]gin.HandlerFunc{}, guards...), func(c *gin.Context) {
		var req AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		question := strings.TrimSpace(req.Question)
		if question == "" {
			utils.RespondWithBadRequest(c, "Question must not be empty", nil)
			return
		}

		result := engine.Resolve(c.Request.Context(), question)
		c.Set(middleware.AnswerSourceKey, result.Source)
		logger.Info("Question answered",
			"request_id", middleware.GetRequestID(c),
			"source", result.Source,
			"cached", result.Cached,
			"committed", result.Committed,
			"duration", result.Duration.String(),
		)

		c.JSON(http.StatusOK, AskResponse{
			Answer: result.Answer,
			Source: result.Source,
			Cached: result.Cached,
		})
	})
	router.POST("/ask", ask...)

	router.GET("/faq", func(c *gin.Context) {
		entries := faq.Entries()
		if entries == nil {
			entries = []models.FAQEntry{}
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
	})

	router.GET("/faq/export", func(c *gin.Context) {
		format := c.DefaultQuery("format", services.ExportFormatExcel)
		export, err := services.ExportFAQ(faq.Entries(), format, time.Now())
		if errors.Is(err, services.ErrUnsupportedFormat) {
			utils.RespondWithError(c, http.StatusBadRequest, utils.CodeUnsupportedFormat,
				"Unsupported export format", gin.H{"supported": []string{services.ExportFormatExcel, services.ExportFormatJSON, services.ExportFormatBoth}})
			return
		}
		if err != nil {
			logger.Error("FAQ export failed", "format", format, "error", err)
			utils.RespondWithInternalError(c, "Export failed", nil)
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
		c.Header("X-Record-Count", fmt.Sprintf("%d", export.RecordCount))
		c.Data(http.StatusOK, export.ContentType, export.Data)
	})
}

// HealthStatus reports the loaded knowledge base.
type HealthStatus struct {
	Documents  int
	FAQEntries int
	Model      string
}

// SetupHealthRoutes registers /health. status is called on every request.
func SetupHealthRoutes(router *gin.Engine, status func() HealthStatus) {
	router.GET("/health", func(c *gin.Context) {
		s := status()
		state := "healthy"
		if s.Documents == 0 {
			state = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      state,
			"timestamp":   time.Now(),
			"chunks":      s.Documents,
			"faq_entries": s.FAQEntries,
			"model":       s.Model,
		})
	})
}
