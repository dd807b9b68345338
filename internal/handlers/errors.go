package handlers

import "github.com/gin-gonic/gin"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`   // Error code (e.g., "bad_request", "forbidden")
	Message string `json:"message"` // Human-readable error message
}

// Error codes.
const (
	CodeBadRequest    = "bad_request"
	CodeUnauthorized  = "unauthorized"
	CodeTokenExpired  = "token_expired"
	CodeInvalidToken  = "invalid_token"
	CodeForbidden     = "forbidden"
	CodeInternalError = "internal_error"
)

// Abort writes an ErrorResponse and stops the handler chain.
func Abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}
