package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/gogobubbles/leadops/internal/adapters/http/api"
	"github.com/gogobubbles/leadops/internal/adapters/http/swagger"
	"github.com/gogobubbles/leadops/internal/adapters/notify"
	"github.com/gogobubbles/leadops/internal/adapters/repository"
	service "github.com/gogobubbles/leadops/internal/app"
	"github.com/gogobubbles/leadops/internal/config"
	"github.com/gogobubbles/leadops/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout          = 10 * time.Second
	writeTimeout         = 10 * time.Second
	idleTimeout          = 60 * time.Second
	readHeaderTimeout    = 5 * time.Second
	statsRefreshInterval = 5 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Long:  "Run the HTTP service. Configuration is layered: defaults, then the YAML file named by LEADOPS_CONFIG, then LEADOPS_* environment variables.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithLevel(cfg.LogLevel)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.Get()

	opts := []service.Option{
		service.WithLogger(log),
		service.WithRules(cfg.Rules),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithLedgerSize(cfg.LedgerSize),
		service.WithLookbackDays(cfg.LookbackDays),
		service.WithEvaluationConcurrency(cfg.EvaluationConcurrency),
	}

	if cfg.StoreDriver == config.StorePostgres {
		store, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return err
		}
		log.Info(ctx, "using postgres store")
		opts = append(opts, service.WithStore(store))
	}

	if cfg.NATSURL != "" {
		pub, err := notify.Connect(cfg.NATSURL,
			notify.WithToken(cfg.NATSToken),
			notify.WithLogger(log.Named("notify")),
		)
		if err != nil {
			return err
		}
		log.Info(ctx, "publishing events to nats", logger.String("url", cfg.NATSURL))
		opts = append(opts, service.WithPublisher(pub))
	}

	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return err
	}

	go refreshServiceMetrics(ctx, svc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	api.NewServer(svc, svc, api.WithLogger(log.Named("api"))).Register(ctx, r)
	swagger.Register(ctx, r)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("service stop: %w", err))
	}
	log.Info(ctx, "server stopped")
	return errors.Join(errs...)
}

// refreshServiceMetrics polls service stats, which refresh the queue and
// worker gauges, until ctx ends.
func refreshServiceMetrics(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(statsRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = svc.GetStats()
		}
	}
}
