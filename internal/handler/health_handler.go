// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"led-service/internal/board"
	"led-service/internal/config"
	"led-service/internal/utils"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	boards    *board.Registry
	websocket *WebSocketHandler
	config    *config.Config
	logger    *utils.ServiceLogger
	startedAt time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(boards *board.Registry, websocket *WebSocketHandler, config *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		boards:    boards,
		websocket: websocket,
		config:    config,
		logger:    utils.NewServiceLogger(logger, "health-handler"),
		startedAt: time.Now(),
	}
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(router gin.IRoutes) {
	router.GET("/health", h.HealthCheck)
	router.GET("/live", h.LivenessCheck)
}

// HealthCheck performs general health check
// @Summary Health check
// @Description Get service health including the board registry and WebSocket clients
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Service is healthy"
// @Failure 503 {object} HealthResponse "Service is unhealthy"
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Checks:    make(map[string]CheckResult),
	}

	boardCount := len(h.boards.List())
	if boardCount == 0 {
		health.Status = "unhealthy"
		health.Checks["boards"] = CheckResult{
			Status:  "unhealthy",
			Message: "No board definitions registered",
		}
	} else {
		health.Checks["boards"] = CheckResult{
			Status: "healthy",
			Data:   map[string]interface{}{"count": boardCount},
		}
	}

	if h.websocket != nil {
		health.Checks["websocket"] = CheckResult{
			Status: "healthy",
			Data:   map[string]interface{}{"clients": h.websocket.connections.Count()},
		}
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		h.logger.Warn("Health check failed", zap.Any("checks", health.Checks))
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, health)
}

// LivenessCheck reports that the process can respond
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents individual check result
type CheckResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
