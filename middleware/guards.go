package middleware

import (
	"net/http"
	"strconv"
	"time"

	"krishi-mitra-backend/internal/config"
	"krishi-mitra-backend/internal/logger"
	"krishi-mitra-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "krishi:ratelimit:"

// RequestSizeLimit rejects bodies larger than maxSize. Bodies without a
// Content-Length are capped while being read.
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			utils.AbortWithError(c, http.StatusRequestEntityTooLarge, utils.CodeRequestTooLarge,
				"Request body exceeds maximum size",
				gin.H{"max_size": maxSize, "received": c.Request.ContentLength})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// RateLimitMiddleware allows cfg.RateLimitReqs requests per client IP and route in a
// fixed window of cfg.RateLimitWindow seconds. Requests pass when Redis is down.
func RateLimitMiddleware(rdb redis.Cmdable, cfg *config.Config) gin.HandlerFunc {
	window := time.Duration(cfg.RateLimitWindow) * time.Second
	limit := int64(cfg.RateLimitReqs)

	return func(c *gin.Context) {
		key := rateLimitKeyPrefix + c.FullPath() + ":" + c.ClientIP()

		ctx, cancel := utils.WithShortTimeout(c.Request.Context())
		defer cancel()

		// SetNX starts the window; Incr keeps its TTL.
		pipe := rdb.TxPipeline()
		pipe.SetNX(ctx, key, 0, window)
		incr := pipe.Incr(ctx, key)
		ttl := pipe.TTL(ctx, key)
		if _, err := pipe.Exec(ctx); err != nil {
			logger.Warn("Rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		count := incr.Val()
		c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, limit-count), 10))
		if count <= limit {
			c.Next()
			return
		}

		retryAfter := int(ttl.Val().Seconds())
		if retryAfter <= 0 {
			retryAfter = cfg.RateLimitWindow
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		utils.AbortWithError(c, http.StatusTooManyRequests, utils.CodeRateLimited,
			"Too many questions. Please try again later.",
			gin.H{"retry_after": retryAfter, "limit": limit})
	}
}
