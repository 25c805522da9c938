package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	api "github.com/GriffinCanCode/Orchestrator/backend/internal/api/http"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/api/middleware"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/config"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/boot"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/buildlog"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/loader"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/host"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/logging"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/shared/ordering"
)

// ShutdownTimeout bounds how long in-flight requests may take on shutdown.
const ShutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and the host instance it serves.
type Server struct {
	router   *gin.Engine
	http     *http.Server
	instance *host.Instance
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer wires configuration, loaders, the host instance and the router.
// It does not boot the instance; call Boot before Run.
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return NewServerWithLogger(cfg, logger)
}

// NewServerWithLogger is NewServer with a caller supplied logger.
func NewServerWithLogger(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	logger.Info("Initializing orchestration host",
		zap.String("home", cfg.Home.Dir),
		zap.String("items_dir", cfg.Home.ItemsDir),
		zap.String("addr", cfg.Server.Addr()),
	)

	metrics := monitoring.NewMetrics()

	registry, err := Loaders(cfg.Loading.Exclude)
	if err != nil {
		return nil, err
	}

	opts, err := host.OptionsFrom(cfg)
	if err != nil {
		return nil, err
	}
	opts.Registry = registry
	opts.Validator = boot.NewLayoutValidator(cfg.Home.ItemsDir, cfg.Home.CreateMissing)
	opts.Logger = logger
	opts.Metrics = metrics
	if dial := buildlog.CollectorDialer(cfg.BuildLog, logger); dial != nil {
		logger.Info("Streaming build logs to collector", zap.String("collector", cfg.BuildLog.Collector))
		opts.Collector = dial
	}

	inst, err := host.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create host instance: %w", err)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}
	if rps := cfg.RateLimit.GlobalRequestsPerSecond; rps > 0 {
		logger.Info("Global rate limiting enabled", zap.Int("rps", rps))
		router.Use(middleware.GlobalRateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: rps,
			Burst:             rps,
		}))
	}

	api.Register(router, inst)

	return &Server{
		router:   router,
		instance: inst,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		http: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Loaders returns the built-in loaders: the directory loader first, then the
// legacy loader that picks up whatever the directory loader left unclaimed.
func Loaders(exclude []string) (*loader.Registry, error) {
	reg := loader.NewRegistry()
	err := errors.Join(
		reg.Register(loader.Registration{
			Name:   "directory",
			Order:  ordering.Structural,
			Loader: loader.NewDirectoryLoader(exclude),
		}),
		reg.Register(loader.Registration{
			Name:   "legacy",
			Order:  ordering.Generic,
			Loader: loader.NewLegacyLoader(exclude),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register loaders: %w", err)
	}
	return reg, nil
}

// Boot validates the home and loads every item.
func (s *Server) Boot(ctx context.Context) error {
	start := time.Now()
	if err := s.instance.Boot(ctx); err != nil {
		return err
	}
	s.logger.Info("Host ready",
		zap.Int("items", len(s.instance.AllItems())),
		zap.Duration("startup", time.Since(start)),
	)
	return nil
}

// Reload re-runs the loaders against the home directory. A failed reload
// leaves the served namespace unchanged.
func (s *Server) Reload(ctx context.Context) error {
	s.logger.Info("Reloading items from disk")
	if err := s.instance.Reload(ctx); err != nil {
		s.logger.Error("Reload failed", zap.Error(err))
		return err
	}
	return nil
}

// Instance returns the host instance.
func (s *Server) Instance() *host.Instance {
	return s.instance
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve serves HTTP on an existing listener until Shutdown is called.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", l.Addr().String()))
	if err := s.http.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	err := s.http.Shutdown(ctx)
	if err != nil {
		s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
	}
	_ = s.logger.Sync()
	return err
}
