package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/health-intelligence-engine/internal/domain"
	"github.com/health-intelligence-engine/internal/middleware"
	"github.com/health-intelligence-engine/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Server represents the HTTP server
type Server struct {
	config   domain.ServerConfig
	health   *service.HealthService
	logger   *logrus.Logger
	router   *gin.Engine
	server   *http.Server
	upgrader websocket.Upgrader
}

// NewServer creates a new HTTP server instance
func NewServer(config domain.ServerConfig, health *service.HealthService, logger *logrus.Logger) *Server {
	if logger.GetLevel() >= logrus.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AccessLogger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(config.AllowedOrigins))

	s := &Server{
		config: config,
		health: health,
		logger: logger,
		router: router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(config.AllowedOrigins),
		},
	}

	s.setupRoutes()
	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	// Websocket connections are long-lived, so only the plain request routes
	// carry the request deadline.
	v1 := s.router.Group("/api/v1")
	v1.GET("/patients/:patientId/chat/ws", s.handleChatWebsocket)

	timed := v1.Group("", middleware.RequestTimeout(s.config.RequestTimeout))
	{
		timed.POST("/symptoms/predict", s.handlePredict)
		timed.POST("/patients/:patientId/summary", s.handleGenerateSummary)
		timed.POST("/patients/:patientId/chat", s.handleChat)
		timed.GET("/patients/:patientId/context", s.handleContextSummary)
		timed.GET("/patients/:patientId/context/validation", s.handleValidateContext)
		timed.GET("/patients/:patientId/quota", s.handleQuota)
		timed.GET("/conversations/:conversationId", s.handleConversationHistory)
		timed.DELETE("/conversations/:conversationId", s.handleClearConversation)
		timed.GET("/models", s.handleModels)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
	})
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || (len(allowed) == 1 && allowed[0] == "*") {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
