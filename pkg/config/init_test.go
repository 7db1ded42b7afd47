package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitConfig_Success(t *testing.T) {
	// Redirect the default config dir into a temp directory.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatalf("Config file was not created at %s", configPath)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	contentStr := string(content)
	expectedSections := []string{
		"# Quill Configuration File",
		"server:",
		"peers:",
		"redis:",
		"store:",
		"admin:",
		"logging:",
	}

	for _, section := range expectedSections {
		if !strings.Contains(contentStr, section) {
			t.Errorf("Config file missing section: %s", section)
		}
	}

	// The generated file must load and validate as-is.
	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Generated config does not load: %v", err)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("Expected generated chat port 8090, got %d", cfg.Server.Port)
	}
	if len(cfg.Admin.JWT.Secret) != 64 {
		t.Errorf("Expected a generated 64-char JWT secret, got %d chars", len(cfg.Admin.JWT.Secret))
	}
}

func TestInitConfig_AlreadyExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if _, err := InitConfig(false); err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	_, err := InitConfig(false)
	if err == nil {
		t.Fatal("Expected error when config already exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected 'already exists' error, got: %v", err)
	}
}

func TestInitConfig_Force(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	if _, err := InitConfig(true); err != nil {
		t.Fatalf("InitConfig with force failed: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Failed to stat recreated config: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("Recreated config file is empty")
	}
}

func TestInitConfigToPath_CustomPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "dir", "quill.yaml")

	if err := InitConfigToPath(configPath, false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Config file was not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected file mode 0600, got %v", info.Mode().Perm())
	}
}

func TestInitConfig_UniqueSecrets(t *testing.T) {
	tmpDir := t.TempDir()
	pathA := filepath.Join(tmpDir, "a.yaml")
	pathB := filepath.Join(tmpDir, "b.yaml")

	if err := InitConfigToPath(pathA, false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}
	if err := InitConfigToPath(pathB, false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}

	cfgA, err := Load(pathA)
	if err != nil {
		t.Fatalf("Failed to load config A: %v", err)
	}
	cfgB, err := Load(pathB)
	if err != nil {
		t.Fatalf("Failed to load config B: %v", err)
	}

	if cfgA.Admin.JWT.Secret == cfgB.Admin.JWT.Secret {
		t.Error("Expected each init to generate its own JWT secret")
	}
}
