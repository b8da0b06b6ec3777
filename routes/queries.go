package routes

import (
	"context"
	"net/http"
	"strconv"

	"krishi-mitra-backend/internal/logger"
	"krishi-mitra-backend/models"
	"krishi-mitra-backend/utils"

	"github.com/gin-gonic/gin"
)

const (
	defaultQueryLimit = 20
	maxQueryLimit     = 200
)

// QueryHistory returns the most recently answered questions.
type QueryHistory interface {
	Recent(ctx context.Context, limit int64) ([]models.QueryLog, error)
}

// SetupQueryLogRoutes registers GET /queries. Only mounted when a query log is
// configured.
func SetupQueryLogRoutes(router *gin.Engine, history QueryHistory) {
	router.GET("/queries", func(c *gin.Context) {
		limit := defaultQueryLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				utils.RespondWithBadRequest(c, "limit must be a positive integer", gin.H{"limit": raw})
				return
			}
			limit = min(n, maxQueryLimit)
		}

		logs, err := history.Recent(c.Request.Context(), int64(limit))
		if err != nil {
			logger.Error("Failed to read query log", "error", err)
			utils.RespondWithInternalError(c, "Failed to read query log", nil)
			return
		}
		if logs == nil {
			logs = []models.QueryLog{}
		}
		c.JSON(http.StatusOK, gin.H{"queries": logs, "count": len(logs)})
	})
}
