// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"led-service/internal/board"
	"led-service/internal/config"
	"led-service/internal/handler"
	"led-service/internal/routes"
	"led-service/internal/rpc"
	"led-service/internal/service"
	"led-service/internal/utils"
)

const shutdownTimeout = 30 * time.Second

// Application represents the main application
type Application struct {
	config *config.Config
	logger *zap.Logger
	server *http.Server

	boards     *board.Registry
	eventBus   *handler.EventBus
	ledService *service.LedService
	websocket  *handler.WebSocketHandler
}

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config file")
	pflag.Parse()

	app, err := NewApplication(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Application stopped with error", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "led-service")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeBoards(); err != nil {
		return nil, fmt.Errorf("failed to initialize board registry: %w", err)
	}

	app.initializeServices()
	app.initializeServer()

	return app, nil
}

// initializeBoards registers the built-in boards and any from led.boards_dir
func (app *Application) initializeBoards() error {
	app.boards = board.NewRegistry(app.logger)
	board.RegisterDefaultBoards(app.boards, app.logger)

	if dir := app.config.Led.BoardsDir; dir != "" {
		if _, err := board.LoadDir(app.boards, dir, app.logger); err != nil {
			return err
		}
	}

	if _, err := app.boards.Get(app.config.Led.DefaultBoard); err != nil {
		app.logger.Warn("Default board is not registered",
			zap.String("board", app.config.Led.DefaultBoard),
		)
	}

	app.logger.Info("Board registry initialized",
		zap.Int("registered_boards", len(app.boards.List())),
	)
	return nil
}

// initializeServices creates service instances
func (app *Application) initializeServices() {
	app.eventBus = handler.NewEventBus(app.logger)

	app.ledService = service.NewLedService(
		app.boards,
		app.config,
		app.logger,
		service.WithEventPublisher(app.eventBus),
	)

	dispatcher := rpc.NewDispatcher(app.ledService, app.logger)
	app.websocket = handler.NewWebSocketHandler(
		dispatcher,
		app.eventBus,
		app.config.Security.AllowedOrigins,
		app.logger,
	)

	app.logger.Info("Services initialized successfully")
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() {
	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.boards,
		app.ledService,
		app.websocket,
	)

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      routerManager.SetupRouter(),
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
		zap.Bool("tls_enabled", app.config.Server.TLS.Enabled),
	)
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully
func (app *Application) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.eventBus.Start()
		return nil
	})

	g.Go(func() error {
		app.websocket.Run(ctx)
		return nil
	})

	g.Go(func() error {
		app.logger.Info("Starting HTTP server", zap.String("address", app.server.Addr))

		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(app.config.Server.TLS.CertFile, app.config.Server.TLS.KeyFile)
		} else {
			err = app.server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return app.shutdown()
	})

	return g.Wait()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() error {
	serviceLogger := utils.NewServiceLogger(app.logger, "led-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := app.server.Shutdown(ctx)
	if err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	if wsErr := app.websocket.Shutdown(ctx); wsErr != nil {
		app.logger.Warn("WebSocket clients did not close in time", zap.Error(wsErr))
	}

	app.eventBus.Stop()

	app.logger.Info("Application shutdown completed")
	if syncErr := utils.CloseLogger(app.logger); syncErr != nil {
		fmt.Fprintf(os.Stderr, "Logger close error: %v\n", syncErr)
	}

	return err
}
