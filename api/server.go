package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/transcript-sync/api/types"
	"github.com/killallgit/transcript-sync/pkg/config"
)

// Server represents the HTTP server
type Server struct {
	engine             *gin.Engine
	httpServer         *http.Server
	rateLimiters       *sync.Map
	cleanupInitialized sync.Once
	cleanupStop        chan struct{}
	streamsDone        chan struct{}
	maxBodyBytes       int64

	// Dependencies for handlers
	dependencies *types.Dependencies
}

// NewServer creates a new HTTP server. Timeouts and limits come from the
// server section of the configuration.
func NewServer(address string) *Server {
	// Set Gin mode based on environment
	if config.GetString("environment") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin engine with recovery middleware only
	engine := gin.New()
	engine.Use(gin.Recovery())

	readTimeout := config.GetDuration("server.read_timeout")
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	maxHeaderBytes := config.GetInt("server.max_header_bytes")
	if maxHeaderBytes <= 0 {
		maxHeaderBytes = 1 << 20 // 1 MB
	}
	maxBodyBytes := int64(config.GetInt("server.max_body_bytes"))
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1024 * 1024
	}

	server := &Server{
		engine:       engine,
		rateLimiters: &sync.Map{},
		cleanupStop:  make(chan struct{}),
		streamsDone:  make(chan struct{}),
		maxBodyBytes: maxBodyBytes,
		httpServer: &http.Server{
			Addr:        address,
			Handler:     engine,
			ReadTimeout: readTimeout,
			// zero by default: snapshot streams stay open
			WriteTimeout:   config.GetDuration("server.write_timeout"),
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: maxHeaderBytes,
		},
	}

	// snapshot streams never go idle; end them when shutdown begins
	server.httpServer.RegisterOnShutdown(func() { close(server.streamsDone) })

	return server
}

// SetDependencies sets all handler dependencies
func (s *Server) SetDependencies(deps *types.Dependencies) {
	s.dependencies = deps
}

// Engine returns the Gin engine for testing
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Initialize sets up middleware and routes
func (s *Server) Initialize() error {
	// Setup global middleware
	s.setupMiddleware()

	// Setup routes
	if err := s.setupRoutes(); err != nil {
		return err
	}

	return nil
}

// setupMiddleware configures global middleware
func (s *Server) setupMiddleware() {
	// Logger middleware
	s.engine.Use(gin.Logger())

	// Global CORS
	s.engine.Use(CORS())

	// Global request size limit
	s.engine.Use(RequestSizeLimitWithSize(s.maxBodyBytes))
}

// setupRoutes delegates to the main route registration
func (s *Server) setupRoutes() error {
	if s.dependencies != nil && s.dependencies.StreamsDone == nil {
		s.dependencies.StreamsDone = s.streamsDone
	}
	return RegisterRoutes(s.engine, s.dependencies, s.rateLimiters, s.cleanupStop, &s.cleanupInitialized)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the rate limiter cleanup goroutine
	close(s.cleanupStop)

	return s.httpServer.Shutdown(ctx)
}
