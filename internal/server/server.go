package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agentfs/agentfs/internal/api/middleware"
	"github.com/agentfs/agentfs/internal/audit"
	"github.com/agentfs/agentfs/internal/infrastructure/config"
	"github.com/agentfs/agentfs/internal/infrastructure/monitoring"
	"github.com/agentfs/agentfs/internal/kv"
	"github.com/agentfs/agentfs/internal/infrastructure/logging"
	"github.com/agentfs/agentfs/internal/policy"
	"github.com/agentfs/agentfs/internal/search"
	"github.com/agentfs/agentfs/internal/store"
	"github.com/agentfs/agentfs/internal/store/memory"
	"github.com/agentfs/agentfs/internal/store/remote"
	"github.com/agentfs/agentfs/internal/tools"
	"github.com/agentfs/agentfs/internal/vfs"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router   *gin.Engine
	registry *tools.Registry
	store    store.Store
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	httpSrv  *http.Server
}

// NewServer assembles the full stack from configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	logger := logging.FromLevel(cfg.Logging.Level, cfg.Logging.Development)

	logger.Info("Initializing AgentFS server",
		zap.String("port", cfg.Server.Port),
		zap.String("store_backend", cfg.Store.Backend),
	)

	metrics := monitoring.NewMetrics()

	st, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	fs := vfs.New(st, vfs.WithLogger(logger.Logger))
	engine := search.New(fs, logger.Logger)
	kvStore := kv.New(st)
	auditLog := audit.New(st)

	pol := policy.New(policy.Config{
		Timeout:     time.Duration(cfg.Policy.TimeoutMs) * time.Millisecond,
		MaxRetries:  cfg.Policy.MaxRetries,
		BackoffBase: time.Duration(cfg.Policy.BackoffBaseMs) * time.Millisecond,
		BackoffCap:  time.Duration(cfg.Policy.BackoffCapMs) * time.Millisecond,
	},
		policy.WithLogger(logger.Logger),
		policy.WithAudit(auditLog),
		policy.WithMetrics(metrics),
	)

	registry := tools.NewRegistry(pol)
	for _, provider := range []tools.Provider{
		tools.NewFSProvider(fs),
		tools.NewSearchProvider(engine),
		tools.NewKVProvider(kvStore),
		tools.NewAuditProvider(auditLog),
	} {
		if err := registry.RegisterProvider(provider); err != nil {
			return nil, fmt.Errorf("register tools: %w", err)
		}
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	s := &Server{
		router:   router,
		registry: registry,
		store:    st,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}
	s.registerRoutes()

	logger.Info("Server initialized successfully")
	return s, nil
}

func newStore(cfg *config.Config, logger *logging.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return memory.New(), nil
	case "remote":
		return remote.New(remote.Config{
			Address:  cfg.Store.Address,
			RetryMax: cfg.Store.RetryMax,
		}, logger.Logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func (s *Server) registerRoutes() {
	s.router.GET("/", s.handleRoot)
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/tools", s.handleListTools)
	s.router.POST("/tools/execute", s.handleExecuteTool)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
}

// Router exposes the gin engine, for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))

	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close drains in-flight requests, closes the store and syncs the logger.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP shutdown failed", zap.Error(err))
		}
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("Failed to close store", zap.Error(err))
		return fmt.Errorf("failed to close store: %w", err)
	}

	s.logger.Sync()
	return nil
}
