package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/quillchat/quill/internal/bytesize"
	"github.com/quillchat/quill/pkg/cache"
	"github.com/quillchat/quill/pkg/chat/server"
	"github.com/quillchat/quill/pkg/controlplane/api"
	"github.com/quillchat/quill/pkg/controlplane/store"
)

// Config is the static configuration of a quill chat node.
//
// It covers the chat listener, the peer roster for cross-node delivery,
// the Redis presence cache, the relational identity store, the admin
// API, and the ambient concerns (logging, metrics, telemetry). Accounts
// and the friend graph are NOT configured here; they live in the store
// and are managed through the admin API.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (QUILL_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values
type Config struct {
	// Server configures the framed TCP listener and the peer RPC port.
	Server server.Config `mapstructure:"server" yaml:"server"`

	// Peers lists the other chat nodes notifications can be forwarded
	// to. An empty roster is a valid single-node deployment.
	Peers PeersConfig `mapstructure:"peers" yaml:"peers"`

	// Redis configures the shared presence and identity cache.
	Redis cache.Config `mapstructure:"redis" yaml:"redis"`

	// Store configures the relational identity store (SQLite or
	// PostgreSQL).
	Store store.Config `mapstructure:"store" yaml:"store"`

	// Admin configures the admin HTTP API.
	Admin api.APIConfig `mapstructure:"admin" yaml:"admin"`

	// Metrics configures the Prometheus metrics server.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry tracing and Pyroscope profiling.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
}

// PeersConfig lists the peer chat nodes and sizes their stub pools.
type PeersConfig struct {
	// Servers is the peer roster. An entry carrying this node's own
	// name is tolerated and never dialed for delivery; the router
	// resolves the local case by name before consulting the roster.
	Servers []PeerConfig `mapstructure:"servers" yaml:"servers"`

	// PoolSize is the number of pre-dialed stubs kept per peer.
	// Default: 5
	PoolSize int `mapstructure:"pool_size" validate:"omitempty,min=1" yaml:"pool_size"`
}

// PeerConfig identifies one peer chat node.
type PeerConfig struct {
	// Name is the peer's server name, as it appears in presence
	// entries. Must be unique across the roster.
	Name string `mapstructure:"name" yaml:"name"`

	// Host is the peer's reachable address.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the peer's RPC port.
	Port int `mapstructure:"port" yaml:"port"`
}

// Addr returns the peer's dialable host:port address.
func (p PeerConfig) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, trace data is exported to an OTLP-compatible collector.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is on.
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port).
	// Default: "localhost:4317"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use a non-TLS connection.
	// Default: true (for local development)
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate is the trace sampling rate (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration.
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is on.
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server URL.
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes selects which profile types to collect.
	// Valid values: cpu, alloc_objects, alloc_space, inuse_objects,
	// inuse_space, goroutines, mutex_count, mutex_duration,
	// block_count, block_duration
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types,omitempty"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and the HTTP server
	// are on.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint.
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
//
// When configPath is empty the default location is searched
// ($XDG_CONFIG_HOME/quill/config.{yaml,toml}). A missing file is not an
// error; the default configuration is returned instead.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration and returns a user-friendly error with
// setup instructions when the config file does not exist.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  quill init\n\n"+
				"Or specify a custom config file:\n"+
				"  quill <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  quill init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML
// format. The file is written with 0600 permissions because it may
// carry credentials.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config
// file settings. Environment variables use the QUILL_ prefix with
// underscores, e.g. QUILL_LOGGING_LEVEL=DEBUG, QUILL_SERVER_PORT=9000.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("QUILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. Returns
// whether a config file was found; a missing file is not an error.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom
// config types: ByteSize and time.Duration.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize,
// so config files can say "2KiB", "1Mi", or a plain byte count.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings and numbers to time.Duration, so
// config files can say "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Raw integers are nanoseconds
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path. Uses
// XDG_CONFIG_HOME if set, otherwise ~/.config, falling back to the
// current directory when no home directory can be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "quill")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "quill")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
