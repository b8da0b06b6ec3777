package middleware

import (
	"time"

	"krishi-mitra-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength caps client supplied IDs before they reach logs and the query log.
const maxRequestIDLength = 128

// RequestIDMiddleware reuses a well-formed X-Request-ID or generates one, stores it in
// the request context and echoes it back.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.WithRequestID(c.Request.Context(), requestID))
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// GetRequestID returns the ID set by RequestIDMiddleware.
func GetRequestID(c *gin.Context) string {
	return utils.RequestIDFrom(c.Request.Context())
}

// CORSMiddlewareWithOrigins lets the configured browser origins call the API.
func CORSMiddlewareWithOrigins(allowedOrigins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		ExposeHeaders: []string{"Content-Disposition", "X-Record-Count", RequestIDHeader, "Retry-After"},
		MaxAge:        12 * time.Hour,
	})
}
