package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/platinummonkey/plughost/pkg/api"
	"github.com/platinummonkey/plughost/pkg/async"
	"github.com/platinummonkey/plughost/pkg/codegen/builder"
	"github.com/platinummonkey/plughost/pkg/codegen/templates"
	"github.com/platinummonkey/plughost/pkg/config"
	"github.com/platinummonkey/plughost/pkg/demo"
	"github.com/platinummonkey/plughost/pkg/middleware"
	"github.com/platinummonkey/plughost/pkg/observability"
	"github.com/platinummonkey/plughost/pkg/plugins"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize OpenTelemetry")
	}

	var (
		promRegistry *prometheus.Registry
		metrics      *observability.Metrics
	)
	if cfg.Observability.MetricsEnabled {
		promRegistry = prometheus.NewRegistry()
		promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(promRegistry)
	}

	if err := os.MkdirAll(cfg.Plugins.LibDir, 0755); err != nil {
		log.WithError(err).Fatal("Failed to create library directory")
	}

	loader, err := plugins.NewLoader(cfg.Plugins.LibDir, newOpener(cfg.Plugins.Loader), metrics, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create plugin loader")
	}
	registry := plugins.NewRegistry(loader, metrics, log)

	b, err := builder.New(builder.Config{
		LibDir:        cfg.Plugins.LibDir,
		ScratchDir:    cfg.Build.ScratchDir,
		HostModuleDir: cfg.Build.HostModuleDir,
		HostModule:    templates.DefaultHostModule,
		GoBinary:      cfg.Build.GoBinary,
		Timeout:       cfg.Build.Timeout,
		HistorySize:   cfg.Build.HistorySize,
		HistoryTTL:    cfg.Build.HistoryTTL,
	}, templates.NewCatalog(), metrics, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create builder")
	}

	evictor, err := plugins.NewEvictor(registry, cfg.Plugins.EvictInterval, cfg.Plugins.EvictIDs, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create evictor")
	}
	evictor.Start()

	var watcher *plugins.Watcher
	if cfg.Plugins.WatchArtifacts {
		watcher, err = plugins.NewWatcher(cfg.Plugins.LibDir, registry, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to watch library directory")
		}
		async.Go(ctx, log, "artifact watcher", func(ctx context.Context) error {
			watcher.Run(ctx)
			return nil
		})
	}

	if len(cfg.Plugins.PreloadIDs) > 0 {
		async.Go(ctx, log, "plugin preload", func(ctx context.Context) error {
			api.Preload(ctx, registry, b, cfg.Plugins.PreloadIDs, 2*cfg.Build.Timeout, log)
			return nil
		})
	}

	limiter, closeLimiter := newBuildLimiter(ctx, cfg.RateLimit, log)

	health := observability.NewHealthChecker(cfg.Observability.OTelServiceVersion)
	health.AddCheck("lib_dir", true, observability.DirCheck(cfg.Plugins.LibDir))
	health.AddCheck("scratch_dir", true, observability.DirCheck(scratchDir(cfg.Build.ScratchDir)))
	if checker, ok := limiter.(interface{ HealthCheck(context.Context) error }); ok {
		health.AddCheck("redis", false, checker.HealthCheck)
	}

	server := api.NewServer(api.Config{
		Registry:               registry,
		Builder:                b,
		Artifacts:              loader,
		Metrics:                metrics,
		MetricsRegistry:        promRegistry,
		Health:                 health,
		BuildLimiter:           limiter,
		BuildLimiterFailClosed: !cfg.RateLimit.FailOpen,
		MaxBodyBytes:           cfg.Server.MaxBodyBytes,
		Log:                    log,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      otelhttp.NewHandler(server, "plughost"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(log, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(evictor.Stop)
	if watcher != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return watcher.Close()
		})
	}
	if closeLimiter != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return closeLimiter()
		})
	}
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, log)
	})

	serveErr := make(chan error, 1)
	async.Go(ctx, log, "http server", func(context.Context) error {
		log.WithFields(logrus.Fields{
			"addr":    cfg.Server.Addr,
			"lib_dir": cfg.Plugins.LibDir,
			"loader":  cfg.Plugins.Loader,
		}).Info("Starting plugin host")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			cancel()
		}
		return nil
	})

	shutdownErr := shutdown.WaitForShutdown(ctx)
	select {
	case err := <-serveErr:
		log.WithError(err).Fatal("HTTP server failed")
	default:
	}
	if shutdownErr != nil {
		log.WithError(shutdownErr).Error("Shutdown completed with errors")
		os.Exit(1)
	}
}

func newOpener(mode string) plugins.Opener {
	if mode == config.LoaderStatic {
		return plugins.NewStaticOpener(demo.Factories())
	}
	return plugins.NativeOpener{}
}

// newBuildLimiter picks the rate limiter for build-triggering routes. A
// Redis limiter is returned with a close func for its client.
func newBuildLimiter(ctx context.Context, cfg config.RateLimitConfig, log *logrus.Logger) (middleware.Limiter, func() error) {
	if !cfg.Enabled {
		return nil, nil
	}

	limits := &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RequestsPerMinute,
		WindowDuration:    time.Minute,
		BurstSize:         cfg.Burst,
	}

	if cfg.RedisAddr == "" {
		limiter := middleware.NewRateLimiter(limits)
		limiter.StartCleanup(ctx)
		return limiter, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	limiter := middleware.NewDistributedRateLimiter(client, limits, "")
	if err := limiter.HealthCheck(ctx); err != nil {
		log.WithError(err).WithField("addr", cfg.RedisAddr).Warn("Redis unreachable, rate limiting fails open until it recovers")
	}
	return limiter, client.Close
}

func scratchDir(dir string) string {
	if dir == "" {
		return os.TempDir()
	}
	return dir
}
