// internal/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"led-service/internal/board"
	"led-service/internal/config"
	"led-service/internal/handler"
	"led-service/internal/middleware"
	"led-service/internal/service"
	"led-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config     *config.Config
	logger     *zap.Logger
	boards     *board.Registry
	ledService *service.LedService
	websocket  *handler.WebSocketHandler
}

// NewRouter creates a new router instance
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	boards *board.Registry,
	ledService *service.LedService,
	websocket *handler.WebSocketHandler,
) *Router {
	return &Router{
		config:     config,
		logger:     logger,
		boards:     boards,
		ledService: ledService,
		websocket:  websocket,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Debug("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.boards, r.websocket, r.config, r.logger)
	ledHandler := handler.NewLedHandler(r.ledService, r.logger)

	// Health check routes
	healthHandler.RegisterRoutes(router)

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	ledHandler.RegisterRoutes(apiV1)

	// JSON-RPC over WebSocket
	if r.websocket != nil {
		r.websocket.RegisterRoutes(router)
	}

	if r.config.Metrics.Enabled {
		router.GET(r.config.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	r.logger.Debug("All routes configured successfully")
}
