// Package observability provides structured logging, Prometheus metrics,
// health checks, graceful shutdown and OpenTelemetry setup for grove.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("port", 8080).Info("Server started")
//	logger.SetLevel(observability.DebugLevel) // applies to derived loggers too
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//
// HTTP metrics are labelled with the gorilla/mux route template, never the
// raw path, so /trees/{id} is one series regardless of id.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(repo, redisClient)
//	observability.RegisterHealthRoutes(healthMux, checker)
//
// The database is required; Redis only degrades readiness.
//
// # Shutdown
//
//	sm := observability.NewShutdownManager(logger, 30*time.Second)
//	sm.Register("database", func(context.Context) error { return repo.Close() })
//	sm.Register("http", server.Shutdown)
//	_ = sm.Shutdown(context.Background()) // http first, then database
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "grove",
//		Insecure:    true,
//	}, logger)
//	defer providers.Shutdown(ctx)
package observability
