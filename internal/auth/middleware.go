package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/questai/mongodb-tools-api/internal/constant"
	"github.com/questai/mongodb-tools-api/internal/handlers"
	"github.com/questai/mongodb-tools-api/internal/logger"
)

// RequireToken creates a middleware that verifies the bearer token and stores the
// resulting *TokenData in the gin context.
func RequireToken(verifier TokenVerifier, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(constant.HeaderAuthorization)
		if authHeader == "" {
			unauthorized(c, handlers.CodeUnauthorized, "Authorization header required")
			return
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			unauthorized(c, handlers.CodeUnauthorized, "Invalid authorization format. Use: Authorization: Bearer <token>")
			return
		}

		data, err := verifier.VerifyDefault(token)
		if err != nil {
			log.Debug("Token verification failed", "error", err, "path", c.Request.URL.Path)
			switch {
			case errors.Is(err, ErrTokenExpired):
				unauthorized(c, handlers.CodeTokenExpired, "Access token expired")
			case errors.Is(err, ErrMissingClaims):
				unauthorized(c, handlers.CodeUnauthorized, "Could not validate credentials")
			default:
				unauthorized(c, handlers.CodeInvalidToken, "Invalid access token")
			}
			return
		}

		c.Set(constant.ContextKeyToken, data)
		c.Next()
	}
}

// TokenFromContext returns the identity stored by RequireToken.
func TokenFromContext(c *gin.Context) (*TokenData, bool) {
	value, exists := c.Get(constant.ContextKeyToken)
	if !exists {
		return nil, false
	}
	data, ok := value.(*TokenData)
	return data, ok && data != nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, strings.TrimSpace(constant.BearerPrefix)) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context, code, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	handlers.Abort(c, http.StatusUnauthorized, code, message)
}
