// Package api exposes the operator HTTP API: health, status, positions,
// halt recovery and Prometheus metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"binance-pattern-trader/internal/auth"
	"binance-pattern-trader/internal/lifecycle"
	"binance-pattern-trader/internal/metrics"
	"binance-pattern-trader/internal/position"
)

// BotAPI is the part of the trading controller the API drives
type BotAPI interface {
	Status() lifecycle.Status
	Positions() (open, closed []position.Position)
	Resume(ctx context.Context, symbol string) error
	ReleaseLock(ctx context.Context, symbol string) error
	IsConfigured(symbol string) bool
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ProductionMode bool
}

// Server represents the HTTP API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	bot        BotAPI
	config     ServerConfig
	jwtManager *auth.JWTManager
	checks     map[string]HealthCheck
	startedAt  time.Time
	logger     zerolog.Logger
}

// NewServer creates a new API server. jwtManager may be nil when auth is disabled.
func NewServer(config ServerConfig, bot BotAPI, jwtManager *auth.JWTManager, checks map[string]HealthCheck, logger zerolog.Logger) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:     router,
		bot:        bot,
		config:     config,
		jwtManager: jwtManager,
		checks:     checks,
		startedAt:  time.Now(),
		logger:     logger.With().Str("component", "API").Logger(),
	}
	router.Use(s.requestLogger())

	corsConfig := cors.DefaultConfig()
	if len(config.AllowedOrigins) == 0 || (len(config.AllowedOrigins) == 1 && config.AllowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = config.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Trace-ID"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "X-Trace-ID"}
	router.Use(cors.New(corsConfig))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := s.router.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/status", s.handleStatus)
	api.GET("/positions", s.handleGetPositions)

	admin := api.Group("")
	if s.jwtManager != nil {
		admin.Use(auth.Middleware(s.jwtManager), auth.RequireScope(auth.ScopeAdmin))
	}
	admin.POST("/symbols/:symbol/resume", s.handleResume)
	admin.DELETE("/locks/:symbol", s.handleReleaseLock)
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Bool("auth", s.jwtManager != nil).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
