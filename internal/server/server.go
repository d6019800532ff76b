// Package server wires the sync server HTTP surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/iudanet/docsync/internal/config"
	"github.com/iudanet/docsync/internal/server/handlers"
	"github.com/iudanet/docsync/internal/server/metrics"
	"github.com/iudanet/docsync/internal/server/middleware"
	"github.com/iudanet/docsync/internal/server/notify"
	"github.com/iudanet/docsync/internal/server/storage"
)

// Server HTTP сервер репликации
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	handler    http.Handler
	notifier   *notify.Notifier
	limiter    *middleware.RateLimiter
	cfg        *config.ServerConfig
}

// Options зависимости сервера
type Options struct {
	Store   storage.DocumentStore
	Metrics *metrics.Metrics
	// Notifier реестр live-слушателей этого экземпляра
	Notifier *notify.Notifier
	// Broadcaster получает сигналы после push; nil означает Notifier
	Broadcaster notify.Broadcaster
	Version     string
}

// New builds the router and middleware chain
func New(logger *slog.Logger, cfg *config.ServerConfig, opts Options) *Server {
	if opts.Notifier == nil {
		opts.Notifier = notify.New(logger)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	opts.Metrics.RegisterListenerGauge(opts.Notifier.Total)

	replication := handlers.NewReplicationHandler(
		logger,
		opts.Store,
		opts.Notifier,
		opts.Broadcaster,
		opts.Metrics,
		handlers.Options{
			DefaultBatchSize:  cfg.Replication.DefaultBatchSize,
			MaxBatchSize:      cfg.Replication.MaxBatchSize,
			HeartbeatInterval: cfg.Replication.HeartbeatInterval,
		},
	)
	health := handlers.NewHealthHandler(logger, opts.Store, cfg.Storage.Driver, opts.Version)
	debug := handlers.NewDebugHandler(logger, opts.Store)

	mux := http.NewServeMux()

	// Служебные маршруты регистрируются до шаблонов коллекций
	mux.HandleFunc("GET /health", health.Health)
	mux.HandleFunc("GET /debug/collections", debug.Collections)
	mux.Handle("GET /metrics", opts.Metrics.Handler())

	// Репликация
	mux.HandleFunc("GET /{collection}/pull", replication.HandlePull)
	var push http.Handler = http.HandlerFunc(replication.HandlePush)
	var limiter *middleware.RateLimiter
	if cfg.Replication.PushRateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.Replication.PushRateLimit, cfg.Replication.PushRateWindow)
		push = middleware.RateLimit(limiter, logger)(push)
	}
	mux.Handle("POST /{collection}/push", push)
	mux.HandleFunc("GET /{collection}/pullStream", replication.HandleStream)

	handler := middleware.Chain(mux,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingWithSkip(logger, []string{"/health", "/metrics"}),
		middleware.MetricsMiddleware(opts.Metrics),
		middleware.CORSMiddleware,
	)

	return &Server{
		logger:   logger,
		handler:  handler,
		notifier: opts.Notifier,
		limiter:  limiter,
		cfg:      cfg,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			// WriteTimeout не задан: pullStream держит ответ открытым
			IdleTimeout: 120 * time.Second,
		},
	}
}

// Handler returns the root handler with middlewares applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Close releases background resources. Serve calls it on return.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Run serves on the configured address until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.Close()

	// Открытые pullStream соединения завершаются вместе с сервером
	s.httpServer.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server", "listeners", s.notifier.Total())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}
