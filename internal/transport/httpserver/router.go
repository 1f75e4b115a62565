// Package httpserver provides HTTP server and routing.
package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"provider-sync-service/internal/transport/httpserver/handler"
	"provider-sync-service/internal/transport/httpserver/middleware"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port        int
	BodyLimit   int
	MetricsPath string
}

// Metrics is the Prometheus surface of the server.
// Implementations: internal/metrics
type Metrics interface {
	middleware.RequestRecorder
	Handler() http.Handler
}

// Server wraps Fiber app with handlers.
type Server struct {
	App    *fiber.App
	Logger *zap.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// metrics may be nil, in which case no metrics route is mounted.
func NewServer(
	cfg ServerConfig,
	adminHandler *handler.AdminHandler,
	metrics Metrics,
	readiness []middleware.ReadinessCheck,
	logger *zap.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "provider-sync-service",
		BodyLimit:    cfg.BodyLimit,
		ErrorHandler: errorHandler(logger),
	})

	// Health checks first so probes answer under load.
	app.Use(middleware.NewHealthCheck(readiness...))

	app.Use(requestid.New())
	app.Use(middleware.Recover(logger))
	app.Use(middleware.Logger(logger, metricsPath(cfg)))
	if metrics != nil {
		app.Use(middleware.Metrics(metrics))
		app.Get(metricsPath(cfg), adaptor.HTTPHandler(metrics.Handler()))
	}
	app.Use(compress.New())

	registerRoutes(app, adminHandler)

	return &Server{
		App:    app,
		Logger: logger,
	}
}

func metricsPath(cfg ServerConfig) string {
	if cfg.MetricsPath == "" {
		return "/metrics"
	}

	return cfg.MetricsPath
}

// registerRoutes sets up all API routes.
func registerRoutes(app *fiber.App, adminHandler *handler.AdminHandler) {
	// Health checks are handled by middleware (/livez, /readyz)

	v1 := app.Group("/api/v1")

	admin := v1.Group("/admin")
	admin.Post("/sync", adminHandler.Sync)
	admin.Post("/venue-providers/:id/sync", adminHandler.SyncVenueProvider)
	admin.Get("/providers", adminHandler.GetProviders)
	admin.Get("/sync-events", adminHandler.GetSyncEvents)
	admin.Get("/thumbnails/:kind/:id/:index", adminHandler.GetThumbnail)
}

// errorHandler returns a custom error handler that logs based on HTTP status code.
// 404s are logged at DEBUG level, 4xx at WARN, 5xx at ERROR.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		switch {
		case code == fiber.StatusNotFound:
			logger.Debug("resource not found",
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
			)
		case code >= 500:
			logger.Error("server error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		default:
			logger.Warn("client error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "UNHANDLED_ERROR",
		})
	}
}

// Start starts the HTTP server.
func (s *Server) Start(port int) error {
	s.Logger.Info("starting HTTP server", zap.Int("port", port))

	return s.App.Listen(fmt.Sprintf(":%d", port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.Logger.Info("shutting down HTTP server")

	return s.App.Shutdown()
}
