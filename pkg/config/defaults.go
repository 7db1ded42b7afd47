package config

import (
	"strings"
	"time"

	"github.com/quillchat/quill/pkg/chat/rpc"
	"github.com/quillchat/quill/pkg/controlplane/api"
	"github.com/quillchat/quill/pkg/controlplane/store"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	cfg.Server.ApplyDefaults()
	applyPeersDefaults(&cfg.Peers)
	cfg.Redis.ApplyDefaults()
	cfg.Store.ApplyDefaults()
	applyAdminDefaults(&cfg.Admin)
	applyMetricsDefaults(&cfg.Metrics)
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
}

// applyPeersDefaults sets stub pool defaults. The roster itself has no
// default; an empty roster is a single-node deployment.
func applyPeersDefaults(cfg *PeersConfig) {
	if cfg.PoolSize == 0 {
		cfg.PoolSize = rpc.DefaultPoolSize
	}
}

// applyAdminDefaults sets admin API server defaults. The API defaults
// to enabled; production deployments that manage accounts elsewhere
// turn it off explicitly.
func applyAdminDefaults(cfg *api.APIConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8790
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.Username == "" {
		cfg.Username = "admin"
	}
	if cfg.JWT.AccessTokenDuration == 0 {
		cfg.JWT.AccessTokenDuration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenDuration == 0 {
		cfg.JWT.RefreshTokenDuration = 7 * 24 * time.Hour
	}
}

// applyMetricsDefaults sets metrics defaults. Collection is opt-in;
// the port defaults only when metrics are enabled.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyLoggingDefaults sets logging defaults and normalizes the level
// to uppercase.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults. Tracing and
// profiling stay opt-in.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// GetDefaultConfig returns a Config with all default values applied.
// Useful for generating sample configuration files and for tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Store: store.Config{
			// SQLite for single-node setups; clusters use postgres.
			Type: store.DatabaseTypeSQLite,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
