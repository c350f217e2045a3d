package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port                    int      `mapstructure:"port"`
	DatabasePath            string   `mapstructure:"database_path"`
	LogLevel                string   `mapstructure:"log_level"`
	LogFormat               string   `mapstructure:"log_format"` // "json" | "text"
	AllowedOrigins          []string `mapstructure:"allowed_origins"`
	UpstreamURL             string   `mapstructure:"upstream_url"`                // Base URL of the job-processing API
	UpstreamTimeoutSec      int      `mapstructure:"upstream_timeout_sec"`        // Per-request timeout for upstream calls
	UpstreamRateLimitPerSec float64  `mapstructure:"upstream_rate_limit_per_sec"` // Token bucket rate (req/s); 0 = no limit
	UpstreamRateLimitBurst  int      `mapstructure:"upstream_rate_limit_burst"`   // Token bucket burst; 0 = no limit
	ReconcileIntervalSec    int      `mapstructure:"reconcile_interval_sec"`      // Poll cadence; 0 = poller disabled
	ReconcileService        string   `mapstructure:"reconcile_service"`           // Upstream service name sampled by the poller
	ShutdownTimeoutSec      int      `mapstructure:"shutdown_timeout_sec"`        // Graceful shutdown wait
	DashboardCacheTTLSec    int      `mapstructure:"dashboard_cache_ttl_sec"`     // Dashboard summary cache TTL; 0 = cache disabled
	TracingEnabled          bool     `mapstructure:"tracing_enabled"`
	TracingEndpoint         string   `mapstructure:"tracing_endpoint"` // OTLP/HTTP endpoint, host:port
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/jobtrace/")
	viper.AddConfigPath("$HOME/.jobtrace")
	viper.AddConfigPath(".")

	// Defaults
	viper.SetDefault("port", 8080)
	viper.SetDefault("database_path", "./jobtrace.db")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("allowed_origins", []string{"*"})
	viper.SetDefault("upstream_url", "http://localhost:9090")
	viper.SetDefault("upstream_timeout_sec", 10)
	viper.SetDefault("upstream_rate_limit_per_sec", 0)
	viper.SetDefault("upstream_rate_limit_burst", 0)
	viper.SetDefault("reconcile_interval_sec", 60)
	viper.SetDefault("reconcile_service", "jobs-api")
	viper.SetDefault("shutdown_timeout_sec", 15)
	viper.SetDefault("dashboard_cache_ttl_sec", 30)
	viper.SetDefault("tracing_enabled", false)
	viper.SetDefault("tracing_endpoint", "localhost:4318")

	// Environment variables
	viper.SetEnvPrefix("JOBTRACE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; using defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
