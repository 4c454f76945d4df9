// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "device-terminal/docs"
	"device-terminal/internal/config"
	"device-terminal/internal/database"
	"device-terminal/internal/discovery"
	"device-terminal/internal/handler"
	"device-terminal/internal/repository"
	"device-terminal/internal/routes"
	"device-terminal/internal/service"
	"device-terminal/internal/terminal"
	"device-terminal/internal/utils"
)

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	router   *routes.Router
	database *database.DB

	// Terminal
	log        *terminal.Log
	controller *terminal.Controller
	scanners   *discovery.ScannerManager

	// Archive
	transcriptService *service.TranscriptService

	background context.CancelFunc
	workers    sync.WaitGroup
}

// @title Device Terminal API
// @version 1.0.0
// @description Serial and USB terminal for a microcontroller: connect, send line commands and stream the device output

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8085
// @BasePath /api/v1
func main() {
	app, err := NewApplication(os.Getenv("DEVICE_TERMINAL_CONFIG"))
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
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

	serviceLogger := utils.NewServiceLogger(logger, "device-terminal")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initializeTerminal(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}

	app.initializeServices()
	app.initializeServer()

	return app, nil
}

// initializeDatabase connects the transcript archive and runs migrations
func (app *Application) initializeDatabase() error {
	if !app.config.Database.Enabled {
		app.logger.Info("Transcript archive disabled")
		return nil
	}

	db, err := database.NewConnection(app.config, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	app.database = db

	migrator := database.NewMigrator(db, app.logger, &app.config.Database)
	if err := migrator.Up(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	app.logger.Info("Database initialized successfully")
	return nil
}

// initializeTerminal creates the device session controller and scanners
func (app *Application) initializeTerminal() error {
	opts, err := terminal.OptionsFromConfig(app.config)
	if err != nil {
		return err
	}

	app.log = terminal.NewLog()
	selector := discovery.NewSelector(app.config, app.logger)
	app.controller = terminal.NewController(selector, opts, app.log, app.logger)
	app.scanners = discovery.NewDefaultScannerManager(app.config, app.logger)

	app.logger.Info("Terminal initialized",
		zap.String("transport", app.config.Terminal.Transport),
		zap.Duration("settle_delay", opts.SettleDelay),
	)
	return nil
}

// initializeServices creates service instances
func (app *Application) initializeServices() {
	if app.database == nil {
		return
	}

	repo := repository.NewTranscriptRepository(app.database, app.logger)
	app.transcriptService = service.NewTranscriptService(repo, &app.config.Database, app.logger)

	app.logger.Info("Services initialized successfully")
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() {
	deps := routes.Dependencies{
		Session: app.controller,
		Log:     app.log,
		Scanner: app.scanners,
	}
	// Interfaces stay nil when the archive is disabled.
	if app.database != nil {
		deps.DB = app.database
	}
	if app.transcriptService != nil {
		deps.Transcripts = app.transcriptService
	}

	app.router = routes.NewRouter(app.config, app.logger, deps)

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      app.router.SetupRouter(),
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
		zap.Bool("tls_enabled", app.config.Server.TLS.Enabled),
	)
}

// startBackgroundServices starts background services
func (app *Application) startBackgroundServices() {
	ctx, cancel := context.WithCancel(context.Background())
	app.background = cancel

	if app.transcriptService != nil {
		app.workers.Add(1)
		go func() {
			defer app.workers.Done()
			app.transcriptService.Run(ctx, app.log)
		}()
	}

	app.logger.Info("Background services started")
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "device-terminal")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Hijacked WebSocket connections are not closed by Shutdown.
	app.router.Close()
	if err := app.server.Shutdown(ctx); err != nil {
		utils.LogError(app.logger, "HTTP server shutdown error", err)
	} else {
		app.logger.Info("HTTP server stopped")
	}

	if err := app.controller.Close(); err != nil {
		utils.LogError(app.logger, "Device session close error", err)
	}

	if app.background != nil {
		app.background()
		app.workers.Wait()
	}

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			utils.LogError(app.logger, "Database close error", err)
		} else {
			app.logger.Info("Database connection closed")
		}
	}

	app.logger.Info("Application shutdown completed")

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

// Start serves HTTP until a shutdown signal arrives
func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(
				app.config.Server.TLS.CertFile,
				app.config.Server.TLS.KeyFile,
			)
		} else {
			err = app.server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.startBackgroundServices()
	app.waitForShutdown()

	return nil
}

var _ handler.TerminalSession = (*terminal.Controller)(nil)
