package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/quillchat/quill/internal/controlplane/api/auth"
	"github.com/quillchat/quill/internal/controlplane/api/handlers"
	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/pkg/cache"
	"github.com/quillchat/quill/pkg/chat/session"
	"github.com/quillchat/quill/pkg/controlplane/models"
)

// Deps carries the node collaborators the admin API exposes. Every field
// is optional; routes whose collaborator is missing are not mounted, and
// the readiness probe reports the gap.
type Deps struct {
	// NodeName is this node's identifier, the same value written into
	// presence records on login.
	NodeName string

	// Registry is the chat plane's live session registry, backing the
	// node and session routes.
	Registry *session.Registry

	// Store is the relational account store, backing the user routes.
	Store models.Store

	// StoreType names the configured database backend ("sqlite",
	// "postgres") for health reporting.
	StoreType string

	// Cache is the Redis client used for presence counts and login token
	// seeding.
	Cache *cache.Client
}

// Server provides the admin HTTP server for a chat node.
//
// The server exposes health probes, Prometheus metrics, and a small
// JWT-protected management API for inspecting sessions and provisioning
// chat accounts.
//
// Endpoints:
//   - GET /health: Liveness probe
//   - GET /health/ready: Readiness probe
//   - GET /health/stores: Detailed backend health
//   - GET /metrics: Prometheus metrics
//   - POST /api/v1/auth/login: Admin authentication
//   - POST /api/v1/auth/refresh: Token refresh
//   - GET /api/v1/auth/me: Current identity
//   - GET /api/v1/node: Node name and session counts
//   - /api/v1/sessions/*: Session inspection and kick
//   - /api/v1/users/*: Chat account provisioning
//
// The server supports graceful shutdown with configurable timeout.
type Server struct {
	server       *http.Server
	jwtService   *auth.JWTService
	config       APIConfig
	shutdownOnce sync.Once
}

// NewServer creates a new admin API HTTP server.
//
// The server is created in a stopped state. Call Start() to begin serving
// requests.
//
// The JWT service is created internally from the config. The JWT secret
// must be configured via config.JWT.Secret or the QUILL_ADMIN_SECRET
// environment variable. The admin login credentials come from
// config.Username and config.Password; an empty password is replaced with
// a generated one, logged exactly once at startup.
//
// Returns a configured but not yet started Server, or an error if the JWT
// or credential configuration is invalid.
func NewServer(config APIConfig, deps Deps) (*Server, error) {
	config.applyDefaults()

	// Get JWT secret from config (prefers env var)
	jwtSecret := config.GetJWTSecret()
	if len(jwtSecret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 characters; set via %s env var or config", EnvJWTSecret)
	}

	// Create JWT service internally
	jwtConfig := auth.JWTConfig{
		Secret:               jwtSecret,
		Issuer:               "quill",
		AccessTokenDuration:  config.JWT.AccessTokenDuration,
		RefreshTokenDuration: config.JWT.RefreshTokenDuration,
	}
	jwtService, err := auth.NewJWTService(jwtConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	creds, err := adminCredentials(config)
	if err != nil {
		return nil, err
	}

	router := NewRouter(deps, creds, jwtService)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		server:     server,
		jwtService: jwtService,
		config:     config,
	}, nil
}

// adminCredentials hashes the configured admin password for login checks.
// Only the hash is kept in memory. An empty password gets a generated one,
// logged once so the operator can still sign in.
func adminCredentials(config APIConfig) (*handlers.AdminCredentials, error) {
	password := config.Password
	if password == "" {
		generated, err := models.GeneratePassword(0)
		if err != nil {
			return nil, fmt.Errorf("failed to generate admin password: %w", err)
		}
		password = generated
		logger.Warn("no admin password configured, generated one for this run",
			"username", config.Username,
			"password", generated,
		)
	}

	hash, err := models.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("invalid admin password: %w", err)
	}

	return &handlers.AdminCredentials{
		Username:     config.Username,
		PasswordHash: hash,
	}, nil
}

// Start starts the admin API HTTP server and blocks until the context is
// cancelled or an error occurs.
//
// When the context is cancelled, Start initiates graceful shutdown and returns.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the server fails to start or shutdown encounters an error
func (s *Server) Start(ctx context.Context) error {
	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		logger.Info("admin API listening", "port", s.config.Port)
		logger.Debug("admin API endpoints available",
			"health", fmt.Sprintf("http://localhost:%d/health", s.config.Port),
			"ready", fmt.Sprintf("http://localhost:%d/health/ready", s.config.Port),
			"metrics", fmt.Sprintf("http://localhost:%d/metrics", s.config.Port),
		)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
				// Context was cancelled, error is not needed
			}
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		logger.Info("admin API shutdown signal received")
		// Create new context with timeout for graceful shutdown
		// Don't use the cancelled ctx as it would cause immediate shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("admin API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown of the admin API server.
//
// Stop is safe to call multiple times and safe to call concurrently with
// Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("admin API shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("admin API shutdown error: %w", err)
			logger.Error("admin API shutdown error", "error", err)
		} else {
			logger.Info("admin API stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is listening on.
func (s *Server) Port() int {
	return s.config.Port
}
