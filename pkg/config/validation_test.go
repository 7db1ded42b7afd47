package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidAdminPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Admin.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for port out of range")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}
}

func TestValidate_ChatAndRPCPortCollision(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Port = 50051
	cfg.Server.RPCPort = 50051

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error when port equals rpc_port")
	}
	if !strings.Contains(err.Error(), "rpc_port") {
		t.Errorf("Expected error to mention rpc_port, got: %v", err)
	}
}

func TestValidate_OversizedMaxPayload(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.MaxPayload = 1 << 20

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for max_payload beyond the u16 header range")
	}
}

func TestValidate_PeerDuplicateName(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Peers.Servers = []PeerConfig{
		{Name: "quill-b", Host: "10.0.0.2", Port: 50051},
		{Name: "quill-b", Host: "10.0.0.3", Port: 50051},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for duplicate peer name")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("Expected 'duplicate' in error, got: %v", err)
	}
}

func TestValidate_PeerMissingHost(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Peers.Servers = []PeerConfig{{Name: "quill-b", Port: 50051}}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for peer without host")
	}
	if !strings.Contains(err.Error(), "host") {
		t.Errorf("Expected 'host' in error, got: %v", err)
	}
}

func TestValidate_PeerInvalidPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Peers.Servers = []PeerConfig{{Name: "quill-b", Host: "10.0.0.2", Port: 0}}

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for peer with port 0")
	}
}

func TestValidate_SelfPeerEntryAllowed(t *testing.T) {
	// Deployments often ship one roster to every node, so an entry
	// naming this node itself must pass; it is never dialed.
	cfg := GetDefaultConfig()
	cfg.Server.Name = "quill-a"
	cfg.Peers.Servers = []PeerConfig{
		{Name: "quill-a"},
		{Name: "quill-b", Host: "10.0.0.2", Port: 50051},
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected self entry to be tolerated, got error: %v", err)
	}
}

func TestValidate_InvalidStoreType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "mysql"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unsupported store type")
	}
	if !strings.Contains(err.Error(), "store") {
		t.Errorf("Expected 'store' in error, got: %v", err)
	}
}

func TestValidate_TelemetryEnabledWithoutEndpoint(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for telemetry enabled without endpoint")
	}
	if !strings.Contains(err.Error(), "telemetry") && !strings.Contains(err.Error(), "endpoint") {
		t.Errorf("Expected error about telemetry endpoint, got: %v", err)
	}
}

func TestValidate_TelemetrySampleRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = "localhost:4317"
	cfg.Telemetry.SampleRate = 1.5

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for sample rate out of range")
	}
}

func TestValidate_LogLevelCaseAccepted(t *testing.T) {
	testCases := []string{"info", "INFO", "debug", "DEBUG", "warn", "WARN", "error", "ERROR"}

	for _, level := range testCases {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level

		if err := Validate(cfg); err != nil {
			t.Errorf("Validation failed for level %q: %v", level, err)
		}
		// Validation must not normalize; that is ApplyDefaults' job.
		if cfg.Logging.Level != level {
			t.Errorf("Expected level to remain %q after validation, got %q", level, cfg.Logging.Level)
		}
	}
}
