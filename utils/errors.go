package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes carried in ErrorResponse.ErrorCode.
const (
	CodeBadRequest        = "bad_request"
	CodeUnsupportedFormat = "unsupported_format"
	CodeRequestTooLarge   = "request_too_large"
	CodeRateLimited       = "rate_limit_exceeded"
	CodeInternal          = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
}

func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details any) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// AbortWithError responds and stops the handler chain. Middleware uses it.
func AbortWithError(c *gin.Context, statusCode int, errorCode, message string, details any) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

func RespondWithBadRequest(c *gin.Context, message string, details any) {
	RespondWithError(c, http.StatusBadRequest, CodeBadRequest, message, details)
}

func RespondWithInternalError(c *gin.Context, message string, details any) {
	RespondWithError(c, http.StatusInternalServerError, CodeInternal, message, details)
}
