package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// InitConfig creates a starter configuration file at the default
// location and returns its path. Fails if the file already exists,
// unless force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath creates a starter configuration file at path. The
// file carries every section with its default value and a freshly
// generated development JWT secret, so a node starts out of the box.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	secret, err := generateDevSecret()
	if err != nil {
		return fmt.Errorf("failed to generate JWT secret: %w", err)
	}

	defaults := GetDefaultConfig()
	content := fmt.Sprintf(starterTemplate, defaults.Server.Name, defaults.Store.SQLite.Path, secret)

	// 0600 because the file carries the JWT secret.
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateDevSecret returns a random 64-character hex string, good
// enough for development. Production deployments should set
// QUILL_ADMIN_SECRET instead.
func generateDevSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// starterTemplate is the commented config written by 'quill init'.
// Interpolated values: server name, sqlite path, JWT secret.
const starterTemplate = `# Quill Configuration File
#
# Values shown are the defaults. Every key can be overridden with a
# QUILL_ environment variable, e.g. QUILL_SERVER_PORT=9000 or
# QUILL_LOGGING_LEVEL=DEBUG.

# Chat listener. The name identifies this node in the shared presence
# entries and MUST be unique across the deployment.
server:
  name: %s
  host: 0.0.0.0
  port: 8090
  rpc_port: 50051
  max_connections: 4096
  max_payload: 2KiB
  max_send_queue: 1000
  max_recv_queue: 10000
  idle_timeout: 0s
  shutdown_timeout: 30s

# Peer chat nodes for cross-node notification delivery. Leave the
# roster empty on a single node.
peers:
  pool_size: 5
  servers: []
  # servers:
  #   - {name: quill-b, host: 10.0.0.2, port: 50051}
  #   - {name: quill-c, host: 10.0.0.3, port: 50051}

# Shared presence and identity cache. All nodes of a deployment must
# point at the same Redis.
redis:
  addr: 127.0.0.1:6379
  password: ""
  db: 0

# Relational identity store. SQLite works for a single node; clusters
# should use postgres so every node sees the same accounts.
store:
  type: sqlite
  auto_migrate: true
  sqlite:
    path: %s
  # postgres:
  #   host: localhost
  #   port: 5432
  #   database: quill
  #   user: quill
  #   password: ""
  #   sslmode: disable

# Admin HTTP API: health probes, node inspection, session management,
# account provisioning. Bind it to an internal interface in production.
admin:
  enabled: true
  port: 8790
  username: admin
  # password: leave empty to generate a random one at startup (logged once)
  jwt:
    # Generated for development. For production set QUILL_ADMIN_SECRET:
    #   export QUILL_ADMIN_SECRET=$(openssl rand -hex 32)
    secret: %s
    access_token_duration: 15m
    refresh_token_duration: 168h

logging:
  level: INFO
  format: text
  output: stdout

# Prometheus metrics, served on /metrics when enabled.
metrics:
  enabled: false
  port: 9090

# OpenTelemetry tracing and Pyroscope profiling, both opt-in.
telemetry:
  enabled: false
  endpoint: localhost:4317
  insecure: true
  sample_rate: 1.0
  profiling:
    enabled: false
    endpoint: http://localhost:4040
`
