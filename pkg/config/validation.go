package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for errors.
//
// Struct tags cover the scalar constraints (log level oneof, port
// ranges, sample rate bounds); section Validate methods and the checks
// below cover everything the tags cannot express.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := validatePeers(&cfg.Peers, cfg.Server.Name); err != nil {
		return fmt.Errorf("peers: %w", err)
	}
	if err := cfg.Redis.Validate(); err != nil {
		return err
	}
	if err := cfg.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry endpoint is required when telemetry is enabled")
	}
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return fmt.Errorf("profiling endpoint is required when profiling is enabled")
	}

	return nil
}

// validatePeers checks the peer roster. A peer may carry the node's own
// name (the router never dials it), but the roster forbids duplicates
// because pools are keyed by name.
func validatePeers(cfg *PeersConfig, self string) error {
	seen := make(map[string]struct{}, len(cfg.Servers))
	for i, peer := range cfg.Servers {
		if peer.Name == "" {
			return fmt.Errorf("server %d: name is required", i)
		}
		if _, dup := seen[peer.Name]; dup {
			return fmt.Errorf("duplicate server name %q", peer.Name)
		}
		seen[peer.Name] = struct{}{}

		if peer.Name == self {
			// Skip address checks for the self entry; it is never
			// dialed.
			continue
		}
		if peer.Host == "" {
			return fmt.Errorf("server %q: host is required", peer.Name)
		}
		if peer.Port < 1 || peer.Port > 65535 {
			return fmt.Errorf("server %q: invalid port %d: must be 1-65535", peer.Name, peer.Port)
		}
	}
	return nil
}
