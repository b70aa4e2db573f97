// internal/middleware/recovery_middleware.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"led-service/internal/utils"
)

// RecoveryMiddleware turns a handler panic into a 500 API response.
// The log entry carries the request ID set further down the chain.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestLogger := utils.LoggerWithRequestID(logger, c.GetString(RequestIDKey))
		requestLogger.Error("Panic recovered in LED API handler",
			zap.Any("panic", recovered),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("raw_path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.Stack("stacktrace"),
		)

		utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error", nil)
		c.Abort()
	})
}
