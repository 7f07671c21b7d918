package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/plughost/pkg/plugins"
	"github.com/sirupsen/logrus"
)

// Loader modes
const (
	LoaderNative = "native"
	LoaderStatic = "static"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Plugins       PluginConfig
	Build         BuildConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
}

// PluginConfig holds loading and eviction settings
type PluginConfig struct {
	LibDir         string
	Loader         string
	EvictInterval  time.Duration
	EvictIDs       []string
	WatchArtifacts bool
	PreloadIDs     []string
}

// BuildConfig holds build orchestration settings
type BuildConfig struct {
	ScratchDir    string
	HostModuleDir string
	GoBinary      string
	Timeout       time.Duration
	HistorySize   int
	HistoryTTL    time.Duration
}

// RateLimitConfig throttles the routes that can start a build. RedisAddr
// switches from a per-process limiter to one shared through Redis.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	Burst             int
	FailOpen          bool
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables. Malformed
// values are errors rather than silently replaced by defaults.
func LoadConfig() (*Config, error) {
	env := &envReader{}
	cfg := &Config{
		Server:        loadServerConfig(env),
		Plugins:       loadPluginConfig(env),
		Build:         loadBuildConfig(env),
		RateLimit:     loadRateLimitConfig(env),
		Observability: loadObservabilityConfig(env),
	}

	if err := errors.Join(env.errs...); err != nil {
		return nil, fmt.Errorf("configuration parsing failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig(env *envReader) ServerConfig {
	return ServerConfig{
		Addr:            getEnv("PLUGHOST_ADDR", ""),
		ReadTimeout:     env.getDuration("PLUGHOST_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    env.getDuration("PLUGHOST_WRITE_TIMEOUT", 10*time.Minute),
		IdleTimeout:     env.getDuration("PLUGHOST_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: env.getDuration("PLUGHOST_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:    env.getInt64("PLUGHOST_MAX_BODY_BYTES", 1<<20),
	}
}

func loadPluginConfig(env *envReader) PluginConfig {
	return PluginConfig{
		LibDir:         getEnv("PLUGHOST_LIB_DIR", "./libs"),
		Loader:         strings.ToLower(getEnv("PLUGHOST_LOADER", LoaderNative)),
		EvictInterval:  env.getDuration("PLUGHOST_EVICT_INTERVAL", 10*time.Second),
		EvictIDs:       splitList(getEnv("PLUGHOST_EVICT_IDS", "foo,bar")),
		WatchArtifacts: env.getBool("PLUGHOST_WATCH_ARTIFACTS", true),
		PreloadIDs:     splitList(getEnv("PLUGHOST_PRELOAD_IDS", "")),
	}
}

func loadRateLimitConfig(env *envReader) RateLimitConfig {
	return RateLimitConfig{
		Enabled:           env.getBool("PLUGHOST_RATE_LIMIT_ENABLED", true),
		RequestsPerMinute: env.getInt("PLUGHOST_RATE_LIMIT_PER_MINUTE", 30),
		Burst:             env.getInt("PLUGHOST_RATE_LIMIT_BURST", 5),
		FailOpen:          env.getBool("PLUGHOST_RATE_LIMIT_FAIL_OPEN", true),
		RedisAddr:         getEnv("PLUGHOST_REDIS_ADDR", ""),
		RedisPassword:     getEnv("PLUGHOST_REDIS_PASSWORD", ""),
		RedisDB:           env.getInt("PLUGHOST_REDIS_DB", 0),
	}
}

func loadBuildConfig(env *envReader) BuildConfig {
	return BuildConfig{
		ScratchDir:    getEnv("PLUGHOST_SCRATCH_DIR", ""),
		HostModuleDir: getEnv("PLUGHOST_HOST_MODULE_DIR", "."),
		GoBinary:      getEnv("PLUGHOST_GO_BINARY", "go"),
		Timeout:       env.getDuration("PLUGHOST_BUILD_TIMEOUT", 5*time.Minute),
		HistorySize:   env.getInt("PLUGHOST_BUILD_HISTORY_SIZE", 128),
		HistoryTTL:    env.getDuration("PLUGHOST_BUILD_HISTORY_TTL", 24*time.Hour),
	}
}

func loadObservabilityConfig(env *envReader) ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           getEnv("PLUGHOST_LOG_LEVEL", "info"),
		LogFormat:          getEnv("PLUGHOST_LOG_FORMAT", "json"),
		MetricsEnabled:     env.getBool("PLUGHOST_METRICS_ENABLED", true),
		OTelEnabled:        env.getBool("PLUGHOST_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("PLUGHOST_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("PLUGHOST_OTEL_SERVICE_NAME", "plughost"),
		OTelServiceVersion: getEnv("PLUGHOST_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       env.getBool("PLUGHOST_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("PLUGHOST_ADDR is required")
	}
	if _, port, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return fmt.Errorf("invalid server address %q: %w", c.Server.Addr, err)
	} else if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return fmt.Errorf("invalid server port %q", port)
	}

	if _, err := plugins.LibSuffix(); err != nil {
		return err
	}

	switch c.Plugins.Loader {
	case LoaderNative:
		if !plugins.NativeSupported {
			return fmt.Errorf("native plugin loading is not supported by this build; use PLUGHOST_LOADER=static")
		}
	case LoaderStatic:
	default:
		return fmt.Errorf("invalid loader: %s (must be native or static)", c.Plugins.Loader)
	}

	if c.Plugins.LibDir == "" {
		return fmt.Errorf("library directory is required")
	}
	if err := plugins.ValidateEvictInterval(c.Plugins.EvictInterval); err != nil {
		return err
	}
	for _, id := range c.Plugins.EvictIDs {
		if id == plugins.EvictAll {
			continue
		}
		if err := plugins.ValidateIdentifier(id); err != nil {
			return fmt.Errorf("invalid eviction id: %w", err)
		}
	}
	for _, id := range c.Plugins.PreloadIDs {
		if err := plugins.ValidateIdentifier(id); err != nil {
			return fmt.Errorf("invalid preload id: %w", err)
		}
	}

	if c.Build.Timeout <= 0 {
		return fmt.Errorf("build timeout must be positive")
	}
	if c.Build.HistorySize <= 0 {
		return fmt.Errorf("build history size must be positive")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerMinute <= 0 {
			return fmt.Errorf("rate limit must be positive when enabled")
		}
		if c.RateLimit.Burst < 0 {
			return fmt.Errorf("rate limit burst cannot be negative")
		}
	}

	if _, err := logrus.ParseLevel(c.Observability.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed variables and collects the ones that are malformed
type envReader struct {
	errs []error
}

func (e *envReader) fail(key, value string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (e *envReader) getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		e.fail(key, value, err)
		return defaultValue
	}
	return b
}

func (e *envReader) getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		e.fail(key, value, err)
		return defaultValue
	}
	return i
}

func (e *envReader) getInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		e.fail(key, value, err)
		return defaultValue
	}
	return i
}

func (e *envReader) getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		e.fail(key, value, err)
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
