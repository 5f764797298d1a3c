package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/vantage6/console/pkg/api"
	"github.com/vantage6/console/pkg/async"
	"github.com/vantage6/console/pkg/audit"
	"github.com/vantage6/console/pkg/config"
	"github.com/vantage6/console/pkg/events"
	"github.com/vantage6/console/pkg/middleware"
	"github.com/vantage6/console/pkg/observability"
	"github.com/vantage6/console/pkg/platform"
	"github.com/vantage6/console/pkg/session"
)

// These variables are set externally by the linker.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "consoled: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Infof("Starting consoled %s (%s)", version, commit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracerProvider, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:        cfg.Observability.TracingEnabled,
		Endpoint:       cfg.Observability.TracingEndpoint,
		ServiceName:    cfg.Observability.TracingServiceName,
		ServiceVersion: version,
		Insecure:       cfg.Observability.TracingInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	platformOpts := []platform.Option{
		platform.WithTimeout(cfg.Platform.Timeout),
		platform.WithRetryMax(cfg.Platform.RetryMax),
	}
	if cfg.Observability.TracingEnabled {
		platformOpts = append(platformOpts, platform.WithTracing())
	}
	base, err := platform.NewClient(cfg.Platform.URL, platformOpts...)
	if err != nil {
		return fmt.Errorf("connecting to platform: %w", err)
	}
	logger.Infof("Platform API at %s", base.Address())

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	auditor, searcher, err := buildAuditTrail(cfg.Audit, logger)
	if err != nil {
		return fmt.Errorf("initializing audit trail: %w", err)
	}

	sessions := session.NewManager(base, cfg.Session.TTL, cfg.Session.MaxSessions, logger, metrics, auditor)

	hub := events.NewHub(metrics)
	if redisClient != nil {
		subscriber := events.NewSubscriber(redisClient, cfg.Redis.Channel, hub, logger)
		async.Go(ctx, logger, "event-subscriber", subscriber.Run)
		logger.Infof("Bridging platform events from Redis channel %q", cfg.Redis.Channel)
	} else {
		logger.Warn("Redis not configured, event stream carries local events only")
	}

	var caches *api.Caches
	if cfg.Cache.Enabled {
		caches = api.NewCaches(cfg.Cache.Size, cfg.Cache.TTL, metrics)
	}

	// share limits across instances when Redis is available
	var limiter api.RateLimiter
	if redisClient != nil {
		limiter = middleware.NewDistributedRateLimitMiddleware(redisClient)
	} else {
		local := middleware.NewRateLimitMiddleware()
		local.StartCleanup(ctx)
		limiter = local
	}

	server := api.NewServer(api.Config{
		Sessions:    sessions,
		Logger:      logger,
		Metrics:     metrics,
		Hub:         hub,
		Auditor:     auditor,
		Searcher:    searcher,
		RateLimiter: limiter,
		Caches:      caches,
	})

	scheduler := cron.New()
	if cfg.Session.SweepSchedule != "" {
		_, err := scheduler.AddFunc(cfg.Session.SweepSchedule, func() {
			if swept := sessions.Sweep(); swept > 0 {
				logger.Infof("Swept %d expired sessions, %d remain", swept, sessions.Count())
			}
		})
		if err != nil {
			return fmt.Errorf("invalid sweep schedule %q: %w", cfg.Session.SweepSchedule, err)
		}
	}
	if caches != nil {
		// a periodic purge forces a refetch even for hot keys that never
		// age out of the LRU
		if _, err := scheduler.AddFunc("@hourly", func() {
			caches.PurgeAll()
			logger.Debug("Purged entity caches")
		}); err != nil {
			return err
		}
	}
	scheduler.Start()

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	checker := observability.NewHealthChecker(base, redisClient, version)
	observability.RegisterHealthRoutes(healthMux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		cancel()
		<-scheduler.Stop().Done()
		return auditor.Close()
	})
	if tracerProvider != nil {
		shutdown.RegisterShutdownFunc(tracerProvider.Shutdown)
	}

	if path := os.Getenv("V6CONSOLE_CONFIG_FILE"); path != "" {
		async.Go(ctx, logger, "config-watcher", func(ctx context.Context) error {
			return config.Watch(ctx, path, logger, func(next *config.Config) {
				logger.Infof("Log level now %s", next.Observability.LogLevelName)
			})
		})
	}

	go func() {
		logger.Infof("Health and metrics server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()
	go func() {
		logger.Infof("Console API listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("API server failed")
		}
	}()

	return shutdown.WaitForShutdown()
}

// buildAuditTrail assembles the configured audit sinks. The file sink is the
// durable trail; the database sink additionally serves the audit browser.
func buildAuditTrail(cfg config.AuditConfig, logger *observability.Logger) (audit.Logger, api.Searcher, error) {
	if !cfg.Enabled {
		return audit.NopLogger{}, nil, nil
	}

	var sinks []audit.Logger
	var searcher api.Searcher

	if cfg.FilePath != "" {
		fileLogger, err := audit.NewFileLogger(audit.FileLoggerConfig{
			Path:   cfg.FilePath,
			Rotate: true,
		})
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, fileLogger)
		logger.Infof("Audit trail file %s", cfg.FilePath)
	}

	if cfg.DBPath != "" {
		db, err := sql.Open("sqlite3", cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		dbLogger, err := audit.NewDBLogger(db)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, dbLogger)
		searcher = dbLogger
		logger.Infof("Audit database %s", cfg.DBPath)
	}

	if len(sinks) == 1 {
		return sinks[0], searcher, nil
	}
	return audit.NewMultiLogger(sinks...), searcher, nil
}
