// Package api exposes the scoring pipeline, audit log and registry over
// HTTP/JSON.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/inclusivefin/altcredit/internal/audit"
	"github.com/inclusivefin/altcredit/internal/config"
	"github.com/inclusivefin/altcredit/internal/registry"
	"github.com/inclusivefin/altcredit/internal/scoring"
)

// Server is the HTTP front of the service.
type Server struct {
	logger   *slog.Logger
	cfg      config.ServerConfig
	env      string
	pipeline *scoring.Pipeline
	audit    *audit.Logger
	registry *registry.Registry
	limits   config.AuditConfig
	http     *http.Server
}

// New wires the router. The pipeline, audit logger and registry must be
// non-nil; apiKey empty disables authentication.
func New(logger *slog.Logger, cfg *config.Config, pipeline *scoring.Pipeline, auditLog *audit.Logger, reg *registry.Registry) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		logger:   logger,
		cfg:      cfg.Server,
		env:      cfg.Environment,
		pipeline: pipeline,
		audit:    auditLog,
		registry: reg,
		limits:   cfg.Audit,
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(requestLog(logger))
	if len(cfg.Server.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: cfg.Server.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
			AllowHeaders: []string{"Content-Type", "X-API-Key", "X-Request-ID"},
			MaxAge:       12 * time.Hour,
		}))
	}

	router.GET("/health", s.handleHealth)

	v1 := router.Group("/v1")
	v1.Use(apiKeyAuth(cfg.API.Key))
	v1.GET("/models", s.handleModels)
	v1.POST("/score", s.handleScore)
	v1.POST("/explain", s.handleExplain)
	v1.POST("/audit/fairness", s.handleFairness)
	v1.POST("/audit/outcomes", s.handleOutcome)
	v1.GET("/audit/recent", s.handleRecent)

	s.http = &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("api server listening", slog.String("address", s.cfg.Address))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
