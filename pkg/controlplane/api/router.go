package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quillchat/quill/internal/controlplane/api/auth"
	"github.com/quillchat/quill/internal/controlplane/api/handlers"
	apiMiddleware "github.com/quillchat/quill/internal/controlplane/api/middleware"
	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/pkg/metrics"
)

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
//   - GET /health/stores - Detailed backend health
//   - GET /metrics - Prometheus metrics (when the registry is initialized)
//   - POST /api/v1/auth/login - Admin authentication
//   - POST /api/v1/auth/refresh - Token refresh
//   - GET /api/v1/auth/me - Current identity
//   - GET /api/v1/node - Node name and session counts
//   - GET /api/v1/sessions - Connected session list
//   - DELETE /api/v1/sessions/{id} - Kick a session
//   - /api/v1/users/* - Chat account provisioning
//
// Route groups that depend on an absent collaborator (no session registry,
// no account store) are not mounted at all.
func NewRouter(deps Deps, creds *handlers.AdminCredentials, jwtService *auth.JWTService) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// A nil *cache.Client must stay a nil interface, otherwise the
	// handlers' own nil checks never fire.
	var redis handlers.Pinger
	var presence handlers.PresenceReader
	var tokens handlers.TokenSeeder
	if deps.Cache != nil {
		redis = deps.Cache
		presence = deps.Cache
		tokens = deps.Cache
	}

	// Health routes - unauthenticated
	healthHandler := handlers.NewHealthHandler(deps.Store, deps.StoreType, redis)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
		r.Get("/stores", healthHandler.Stores)
	})

	// Prometheus scrape endpoint - unauthenticated, mounted only when the
	// process-wide registry exists.
	if metrics.IsEnabled() {
		r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	authHandler := handlers.NewAuthHandler(creds, jwtService)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes - mostly unauthenticated
		r.Route("/auth", func(r chi.Router) {
			// Public endpoints
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Authenticated endpoint
			r.Group(func(r chi.Router) {
				r.Use(apiMiddleware.JWTAuth(jwtService))
				r.Get("/me", authHandler.Me)
			})
		})

		// Protected routes - require authentication
		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware.JWTAuth(jwtService))

			if deps.Registry != nil {
				nodeHandler := handlers.NewNodeHandler(deps.NodeName, deps.Registry, presence)
				r.Get("/node", nodeHandler.Node)

				sessionsHandler := handlers.NewSessionsHandler(deps.Registry)
				r.Route("/sessions", func(r chi.Router) {
					r.Get("/", sessionsHandler.List)
					r.Delete("/{id}", sessionsHandler.Kick)
				})
			}

			if deps.Store != nil {
				userHandler := handlers.NewUserHandler(deps.Store, tokens)
				r.Route("/users", func(r chi.Router) {
					r.Post("/", userHandler.Create)
					r.Get("/", userHandler.List)
					r.Get("/{uid}", userHandler.Get)
					r.Post("/{uid}/token", userHandler.SeedToken)
				})
			}
		})
	})

	return r
}

// isQuietPath returns true for endpoints polled by orchestrators and
// scrapers, which are logged at DEBUG instead of INFO.
func isQuietPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/") || path == "/metrics"
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
//   - Healthcheck and metrics requests are logged at DEBUG level to reduce noise
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("admin API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		}

		// Log probe requests at DEBUG to avoid polluting logs in k8s
		if isQuietPath(r.URL.Path) {
			logger.Debug("admin API request completed", logArgs...)
		} else {
			logger.Info("admin API request completed", logArgs...)
		}
	})
}
