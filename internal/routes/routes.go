// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"device-terminal/internal/config"
	"device-terminal/internal/handler"
	"device-terminal/internal/middleware"
	"device-terminal/internal/utils"
)

// Dependencies are the components the routes are served by. DB and
// Transcripts are nil when the archive is disabled.
type Dependencies struct {
	Session     handler.TerminalSession
	Log         handler.LogSource
	Scanner     handler.DeviceScanner
	DB          handler.Pinger
	Transcripts handler.TranscriptReader
}

// Router holds all dependencies for routing
type Router struct {
	config    *config.Config
	logger    *zap.Logger
	deps      Dependencies
	wsHandler *handler.WebSocketHandler
}

// NewRouter creates a new router instance
func NewRouter(config *config.Config, logger *zap.Logger, deps Dependencies) *Router {
	return &Router{
		config: config,
		logger: logger,
		deps:   deps,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// Close disconnects WebSocket clients
func (r *Router) Close() {
	if r.wsHandler != nil {
		r.wsHandler.Close()
	}
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger, "/live", "/ready"))

	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.deps.DB, r.deps.Session, r.config, r.logger)
	terminalHandler := handler.NewTerminalHandler(r.deps.Session, r.deps.Log, r.logger)
	discoveryHandler := handler.NewDiscoveryHandler(r.deps.Scanner, r.logger)
	transcriptHandler := handler.NewTranscriptHandler(r.deps.Transcripts, r.logger)
	r.wsHandler = handler.NewWebSocketHandler(r.deps.Session, r.deps.Log, r.config.Security.AllowedOrigins, r.logger)

	r.addHealthRoutes(router, healthHandler)

	apiV1 := router.Group("/api/v1")
	r.addSessionRoutes(apiV1, terminalHandler)
	r.addDiscoveryRoutes(apiV1, discoveryHandler)
	r.addTranscriptRoutes(apiV1, transcriptHandler)

	r.wsHandler.RegisterRoutes(router.Group("/ws"))

	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addHealthRoutes sets up health check routes
func (r *Router) addHealthRoutes(router *gin.Engine, handler *handler.HealthHandler) {
	health := router.Group("")
	{
		health.GET("/health", handler.HealthCheck)
		health.GET("/ready", handler.ReadinessCheck)
		health.GET("/live", handler.LivenessCheck)
	}
}

// addSessionRoutes sets up the device session routes
func (r *Router) addSessionRoutes(api *gin.RouterGroup, handler *handler.TerminalHandler) {
	session := api.Group("/session")
	{
		session.GET("", handler.GetSession)
		session.POST("/connect", handler.Connect)
		session.POST("/disconnect", handler.Disconnect)
		session.POST("/send", handler.Send)
		session.GET("/log", handler.GetLog)
	}
}

// addDiscoveryRoutes sets up device discovery routes
func (r *Router) addDiscoveryRoutes(api *gin.RouterGroup, handler *handler.DiscoveryHandler) {
	api.GET("/devices", handler.ScanDevices)
}

// addTranscriptRoutes sets up transcript archive routes
func (r *Router) addTranscriptRoutes(api *gin.RouterGroup, handler *handler.TranscriptHandler) {
	transcripts := api.Group("/transcripts")
	{
		transcripts.GET("", handler.ListSessions)
		transcripts.GET("/:session_id", handler.GetTranscript)
	}
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
