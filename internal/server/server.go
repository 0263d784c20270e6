// Package server exposes the admin/introspection HTTP surface: scan
// status, config reload, and a signal-event WebSocket stream. Built on
// gin with gin-contrib/cors, with graceful Start/Shutdown over a plain
// http.Server.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"signal-engine/internal/config"
	"signal-engine/internal/events"
	"signal-engine/internal/scan"
)

// Config holds the bind address and CORS origins for the admin server.
type Config struct {
	Host           string
	Port           int
	ProductionMode bool
	AllowedOrigins []string
}

// Reloader rebuilds a fresh config.Registry from source (environment
// and/or Vault) for the reload endpoint to install.
type Reloader func() (*config.Registry, error)

// Server is the admin HTTP+WebSocket surface.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	log        zerolog.Logger

	status     scan.StatusReporter
	configs    *config.Store
	reload     Reloader
	sink       *events.Sink
	hub        *hub
	cfg        Config
}

// New builds a Server wired to status, the hot-reloadable config store, a
// reload function, and the event sink whose broadcast channel feeds
// /ws/signals.
func New(cfg Config, status scan.StatusReporter, configs *config.Store, reload Reloader, sink *events.Sink, log zerolog.Logger) *Server {
	if cfg.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST"}
	router.Use(cors.New(corsConfig))

	h := newHub(sink, log)
	go h.run()

	s := &Server{
		router:  router,
		log:     log.With().Str("component", "admin_server").Logger(),
		status:  status,
		configs: configs,
		reload:  reload,
		sink:    sink,
		hub:     h,
		cfg:     cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/status", s.handleStatus)
	s.router.POST("/config/reload", s.handleConfigReload)
	s.router.GET("/ws/signals", s.handleWebSocket)
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.Status())
}

func (s *Server) handleConfigReload(c *gin.Context) {
	next, err := s.reload()
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	s.configs.Reload(next)
	s.log.Info().Msg("config reloaded")
	c.JSON(http.StatusOK, gin.H{"reloaded": true})
}

// Start runs the HTTP server until it's closed or fails to bind.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.log.Info().Str("addr", addr).Msg("admin server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("admin server: %w", err)
	}
	return nil
}

// Shutdown gracefully drains in-flight requests and WebSocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
