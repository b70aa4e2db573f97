// internal/middleware/logging_middleware.go
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"led-service/internal/utils"
)

// LoggingMiddleware logs every request once it has been served
func LoggingMiddleware(logger *utils.ServiceLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		duration := time.Since(startTime)

		reqLogger := logger
		if id, ok := c.Get(RequestIDKey); ok {
			if s, ok := id.(string); ok {
				reqLogger = &utils.ServiceLogger{Logger: utils.LoggerWithRequestID(logger.Logger, s)}
			}
		}

		reqLogger.LogAPIRequest(
			c.Request.Method,
			c.Request.URL.Path,
			c.Request.UserAgent(),
			c.ClientIP(),
			c.Writer.Status(),
			duration,
		)
	}
}
