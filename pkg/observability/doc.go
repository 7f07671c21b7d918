// Package observability provides structured logging, Prometheus metrics, and
// OpenTelemetry tracing for the plugin host.
//
// # Structured Logging
//
// Loggers are logrus loggers configured from LOG_LEVEL and LOG_FORMAT:
//
//	log := observability.NewLogger("info", "json", os.Stdout)
//	log.WithField("id", "foo").Info("Loaded plugin")
//
// Request scoped entries carry the request id and, when tracing, the span:
//
//	observability.FromContext(r.Context()).Warn("Dispatch failed")
//
// # Prometheus Metrics
//
// All recording methods accept a nil *Metrics so components can run without
// a registry in tests:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.RecordLoad("success")
//	metrics.RecordBuild("foo", "success", time.Since(start))
//
// # Health Probes
//
//	health := observability.NewHealthChecker(version)
//	health.AddCheck("lib_dir", true, observability.DirCheck(libDir))
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, cfg, log)
//	defer observability.ShutdownOTel(ctx, providers, log)
package observability
