// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Overview
//
// This package centralizes observability infrastructure including JSON logging, metrics
// collection, health checks, and distributed tracing integration.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.Infof("Server started on port %d", 8080)
//
// Context-aware logging:
//
//	observability.FromContext(ctx).WithError(err).Error("Request failed")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.PermissionChecksTotal.WithLabelValues("task", "create", "allowed").Inc()
//
// # Health Checks
//
// Configure health checker:
//
//	checker := observability.NewHealthChecker(platformClient, redisClient, version)
//	status := checker.Check(ctx)
//
// # Tracing
//
// Initialize tracing:
//
//	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
//		Enabled:     true,
//		ServiceName: "consoled",
//		Endpoint:    "otel-collector:4317",
//	}, logger)
//	defer observability.ShutdownTracing(ctx, tp, logger)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/middleware: Request logging middleware
package observability
