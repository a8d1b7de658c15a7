package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/grove/pkg/api"
	"github.com/platinummonkey/grove/pkg/config"
	"github.com/platinummonkey/grove/pkg/middleware"
	"github.com/platinummonkey/grove/pkg/observability"
	"github.com/platinummonkey/grove/pkg/seed"
	"github.com/platinummonkey/grove/pkg/stats"
	"github.com/platinummonkey/grove/pkg/storage/backends"
	"github.com/platinummonkey/grove/pkg/storage/sqlstore"
)

func main() {
	configFile := flag.String("config", os.Getenv(config.EnvConfigFile), "Path to a YAML config file")
	port := flag.String("port", "", "Port to listen on (overrides GROVE_PORT)")
	seedOnStart := flag.Bool("seed", false, "Load the starter trees and insects before serving")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *seedOnStart {
		cfg.SeedOnStart = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout)
	if err := run(cfg, *configFile, logger); err != nil {
		logger.WithError(err).Error("grove stopped with an error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, configFile string, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	defer func() {
		if err := shutdown.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Shutdown incomplete")
		}
	}()

	providers, err := observability.InitOTel(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	if providers != nil {
		shutdown.Register("opentelemetry", providers.Shutdown)
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = observability.NewMetrics(registry)
	}

	repo, err := backends.Open(ctx, cfg.Storage, sqlstore.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	shutdown.Register("storage", func(context.Context) error { return repo.Close() })
	logger.WithField("driver", cfg.Storage.Driver).Info("Storage initialized")

	if cfg.SeedOnStart {
		if _, err := seed.New(repo, logger).Up(ctx); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = middleware.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })
	}

	if metrics != nil && cfg.StatsSchedule != "" {
		collector := stats.NewCollector(repo, metrics, logger)
		if err := collector.Start(ctx, cfg.StatsSchedule); err != nil {
			return err
		}
		shutdown.Register("stats collector", collector.Stop)
	}

	requestLogger := newRequestLogger(cfg.Observability.Level())

	opts := []api.Option{
		api.WithRequestTimeout(cfg.Server.RequestTimeout),
		api.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		api.WithTracing(cfg.Observability.OTelEnabled),
	}
	if metrics != nil {
		opts = append(opts, api.WithMetrics(metrics))
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, api.WithCORS(cfg.Server.CORSOrigins))
	}
	if cfg.RateLimit.Enabled {
		limiter := newLimiter(ctx, cfg, redisClient)
		opts = append(opts, api.WithMiddleware(middleware.NewRateLimitMiddleware(limiter, requestLogger, metrics).Handler))
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewServer(repo, requestLogger, opts...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(repo, redisClient))
	if metrics != nil {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Registered last so they stop first.
	shutdown.Register("health server", healthServer.Shutdown)
	shutdown.Register("api server", apiServer.Shutdown)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("API listening on %s", apiServer.Addr)
		return serve(apiServer)
	})
	g.Go(func() error {
		logger.Infof("Health and metrics listening on %s", healthServer.Addr)
		return serve(healthServer)
	})
	if configFile != "" {
		g.Go(func() error {
			defer observability.RecoverPanic(logger, "config watcher")
			return config.Watch(gctx, configFile, func(next *config.Config) {
				level := next.Observability.Level()
				logger.SetLevel(level)
				requestLogger.SetLevel(logrusLevel(level))
				logger.WithField("level", level.String()).Info("Log level reloaded")
			}, func(err error) {
				logger.WithError(err).Warn("Config reload failed")
			})
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")
		return shutdown.Shutdown(context.Background())
	})

	return g.Wait()
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server on %s failed: %w", srv.Addr, err)
	}
	return nil
}

// newLimiter shares limits through Redis when it is configured and keeps
// them in memory otherwise.
func newLimiter(ctx context.Context, cfg *config.Config, client *redis.Client) middleware.Limiter {
	if client != nil {
		return middleware.NewDistributedRateLimiter(client, cfg.RateLimit.Limiter(), "")
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimit.Limiter())
	limiter.StartCleanup(ctx)
	return limiter
}

func newRequestLogger(level observability.LogLevel) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrusLevel(level))
	return logger
}

func logrusLevel(level observability.LogLevel) logrus.Level {
	switch level {
	case observability.DebugLevel:
		return logrus.DebugLevel
	case observability.WarnLevel:
		return logrus.WarnLevel
	case observability.ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
