package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/finsight/expense-insights-service/internal/config"
	"github.com/finsight/expense-insights-service/internal/middleware"
)

// Server represents the HTTP server for the expense insights service
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *config.Config
	logger     *logrus.Logger
}

// NewServer creates and configures a new server instance
func NewServer(cfg *config.Config, logger *logrus.Logger) *Server {
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	server := &Server{
		router: router,
		config: cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}

	// Configure routes
	server.setupRoutes()

	return server
}

// GetRouter returns the gin router instance
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// setupRoutes configures the base application routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// API documentation endpoints
	swaggerHandler := ginSwagger.WrapHandler(swaggerFiles.Handler)
	s.router.GET("/api-docs/*any", swaggerHandler)

	s.router.GET("/api-docs", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/api-docs/index.html")
	})
}

// Start begins listening for requests and handles graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		s.logger.WithField("port", s.config.Port).Info("Server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	<-quit
	s.logger.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server gracefully
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("Server exited gracefully")
	return nil
}
