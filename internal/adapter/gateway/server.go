// Package gateway exposes the turn API over HTTP.
package gateway

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"parley/internal/infra/config"
	"parley/internal/usecase/orchestrate"
)

// Server is the HTTP gateway over the orchestrator.
type Server struct {
	orchestrator *orchestrate.Orchestrator
	engine       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	addr         string
	boundAddr    string
}

// NewServer builds the gin engine and routes.
func NewServer(o *orchestrate.Orchestrator, cfg config.GatewayConfig, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	s := &Server{
		orchestrator: o,
		engine:       engine,
		logger:       logger,
		addr:         cfg.Listen,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	api := s.engine.Group("/api")
	{
		api.POST("/chat", s.handleChat)
		api.POST("/knowledge", s.handleAddKnowledge)
		api.GET("/knowledge/search", s.handleSearchKnowledge)
		api.GET("/conversations/:id", s.handleConversation)
	}
}

// Start begins serving. Blocks until the context is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.boundAddr = listener.Addr().String()
	s.httpSrv = &http.Server{Handler: s.engine}

	s.logger.Info("gateway started", "addr", s.boundAddr)

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	if err := s.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

// BoundAddr returns the actual listen address. Only valid after Start.
func (s *Server) BoundAddr() string { return s.boundAddr }

// Handler exposes the engine for tests.
func (s *Server) Handler() http.Handler { return s.engine }
