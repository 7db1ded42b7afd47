package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/quillchat/quill/pkg/chat/session"
)

const testAdminPassword = "test-admin-password"

// testConfig creates an APIConfig with a valid JWT secret (>= 32 characters).
func testConfig(port int) APIConfig {
	enabled := true
	return APIConfig{
		Enabled:      &enabled,
		Port:         port,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  10 * time.Second,
		Username:     "admin",
		Password:     testAdminPassword,
		JWT: JWTConfig{
			Secret:               "test-secret-key-for-testing-only-32chars",
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 7 * 24 * time.Hour,
		},
	}
}

// startServer starts the server in the background and waits for it to bind.
func startServer(t *testing.T, server *Server) (context.CancelFunc, chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(ctx)
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	return cancel, errChan
}

func TestAPIServer_Lifecycle(t *testing.T) {
	cfg := testConfig(18790)

	server, err := NewServer(cfg, Deps{})
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	cancel, errChan := startServer(t, server)

	// Make request to health endpoint
	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/health", cfg.Port))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", contentType)
	}

	// Shutdown
	cancel()

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Expected nil on graceful shutdown, got: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not shutdown in time")
	}
}

func TestAPIServer_Port(t *testing.T) {
	server, err := NewServer(testConfig(9999), Deps{})
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	if server.Port() != 9999 {
		t.Errorf("Expected port 9999, got %d", server.Port())
	}
}

func TestAPIServer_DefaultConfig(t *testing.T) {
	cfg := APIConfig{
		// Port and timeouts not set - should use defaults
		Password: testAdminPassword,
		JWT: JWTConfig{
			Secret: "test-secret-key-for-testing-only-32chars",
		},
	}

	server, err := NewServer(cfg, Deps{})
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	// After applyDefaults, port should be 8790
	if server.Port() != 8790 {
		t.Errorf("Expected default port 8790, got %d", server.Port())
	}
}

func TestAPIServer_ReadinessWithoutBackends(t *testing.T) {
	cfg := testConfig(18791)

	server, err := NewServer(cfg, Deps{})
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	cancel, _ := startServer(t, server)
	defer cancel()

	// Liveness should always be OK
	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/health", cfg.Port))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	// Readiness should be 503 with no store and no redis
	resp2, err := http.Get(fmt.Sprintf("http://localhost:%d/health/ready", cfg.Port))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer func() { _ = resp2.Body.Close() }()

	if resp2.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected status %d, got %d", http.StatusServiceUnavailable, resp2.StatusCode)
	}
}

func TestAPIServer_RootRedirectsToHealth(t *testing.T) {
	cfg := testConfig(18792)

	server, err := NewServer(cfg, Deps{})
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	cancel, _ := startServer(t, server)
	defer cancel()

	// Create a client that doesn't follow redirects
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/", cfg.Port))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("Expected status %d, got %d", http.StatusTemporaryRedirect, resp.StatusCode)
	}

	location := resp.Header.Get("Location")
	if location != "/health" {
		t.Errorf("Expected redirect to '/health', got '%s'", location)
	}
}

func TestAPIServer_StoresEndpoint(t *testing.T) {
	cfg := testConfig(18793)

	server, err := NewServer(cfg, Deps{})
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	cancel, _ := startServer(t, server)
	defer cancel()

	// Stores endpoint should be 503 with no backends
	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/health/stores", cfg.Port))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected status %d, got %d", http.StatusServiceUnavailable, resp.StatusCode)
	}

	var response struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response.Status != "unhealthy" {
		t.Errorf("Expected status 'unhealthy', got '%s'", response.Status)
	}
}

func TestAPIServer_LoginAndNode(t *testing.T) {
	cfg := testConfig(18794)
	cfg.Username = "operator"

	registry := session.NewRegistry()
	server, err := NewServer(cfg, Deps{
		NodeName: "quill-test",
		Registry: registry,
	})
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	cancel, _ := startServer(t, server)
	defer cancel()

	base := fmt.Sprintf("http://localhost:%d", cfg.Port)

	// Node endpoint requires authentication
	resp, err := http.Get(base + "/api/v1/node")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status %d without token, got %d", http.StatusUnauthorized, resp.StatusCode)
	}

	// Login with the configured credentials
	body, _ := json.Marshal(map[string]string{
		"username": "operator",
		"password": testAdminPassword,
	})
	loginResp, err := http.Post(base+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to make login request: %v", err)
	}
	defer func() { _ = loginResp.Body.Close() }()

	if loginResp.StatusCode != http.StatusOK {
		t.Fatalf("Expected login status %d, got %d", http.StatusOK, loginResp.StatusCode)
	}

	var login struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(loginResp.Body).Decode(&login); err != nil {
		t.Fatalf("Failed to decode login response: %v", err)
	}
	if login.AccessToken == "" {
		t.Fatal("Expected non-empty access token")
	}

	// Node endpoint with the access token
	req, _ := http.NewRequest(http.MethodGet, base+"/api/v1/node", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)

	nodeResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make node request: %v", err)
	}
	defer func() { _ = nodeResp.Body.Close() }()

	if nodeResp.StatusCode != http.StatusOK {
		t.Fatalf("Expected node status %d, got %d", http.StatusOK, nodeResp.StatusCode)
	}

	var node struct {
		Name           string `json:"name"`
		ActiveSessions int    `json:"active_sessions"`
	}
	if err := json.NewDecoder(nodeResp.Body).Decode(&node); err != nil {
		t.Fatalf("Failed to decode node response: %v", err)
	}

	if node.Name != "quill-test" {
		t.Errorf("Expected node name 'quill-test', got '%s'", node.Name)
	}
	if node.ActiveSessions != 0 {
		t.Errorf("Expected 0 active sessions, got %d", node.ActiveSessions)
	}
}

func TestAPIServer_InvalidJWTSecret(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")

	cfg := APIConfig{
		Password: testAdminPassword,
		JWT: JWTConfig{
			Secret: "short", // Too short, should fail
		},
	}

	_, err := NewServer(cfg, Deps{})
	if err == nil {
		t.Fatal("Expected error for invalid JWT secret, got nil")
	}
}

func TestAPIServer_GeneratedAdminPassword(t *testing.T) {
	cfg := testConfig(0)
	cfg.Password = ""

	// An empty password must not fail construction; a random one is
	// generated and logged instead.
	if _, err := NewServer(cfg, Deps{}); err != nil {
		t.Fatalf("Failed to create server with generated password: %v", err)
	}
}
