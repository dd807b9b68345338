package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/questai/mongodb-tools-api/internal/constant"
	"github.com/questai/mongodb-tools-api/internal/logger"
)

// RequestID propagates an incoming X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(constant.HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(constant.ContextKeyRequestID, id)
		c.Header(constant.HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger logs every request once it has been handled.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		reqLog := log.WithFields(
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"ip", c.ClientIP(),
			"request_id", c.GetString(constant.ContextKeyRequestID),
		)

		if err := c.Errors.Last(); err != nil {
			reqLog.WithError(err).Error("Request failed", "errors", len(c.Errors))
			return
		}

		reqLog.Info("Request processed")
	}
}
