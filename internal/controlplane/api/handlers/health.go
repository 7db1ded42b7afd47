package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/quillchat/quill/pkg/controlplane/models"
)

// HealthCheckTimeout is the maximum time allowed for health check operations.
// This timeout applies to backend pings to prevent a slow database or redis
// from blocking health probes indefinitely.
const HealthCheckTimeout = 5 * time.Second

// Pinger is the reachability check the health endpoints run against redis.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Are the database and redis reachable?
//   - Backend health: Detailed status with per-backend latency
type HealthHandler struct {
	store     models.Store
	storeType string
	redis     Pinger
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
//
// The store and redis parameters may be nil, in which case readiness and
// backend health checks report unhealthy status.
func NewHealthHandler(store models.Store, storeType string, redis Pinger) *HealthHandler {
	return &HealthHandler{
		store:     store,
		storeType: storeType,
		redis:     redis,
		startTime: time.Now(),
	}
}

// Liveness handles GET /health - simple liveness probe.
//
// Returns 200 OK if the server process is running. This endpoint is designed
// for Kubernetes liveness probes and should always succeed as long as the
// HTTP server is responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime)
	WriteJSON(w, http.StatusOK, healthyResponse(map[string]interface{}{
		"service":    "quill",
		"started_at": h.startTime.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
		"uptime_sec": int64(uptime.Seconds()),
	}))
}

// Readiness handles GET /health/ready - readiness probe.
// Returns 200 OK only when both the database and redis answer a ping.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse("store not initialized"))
		return
	}
	if h.redis == nil {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse("redis not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse("store unreachable: "+err.Error()))
		return
	}
	if err := h.redis.Ping(ctx); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse("redis unreachable: "+err.Error()))
		return
	}

	WriteJSON(w, http.StatusOK, healthyResponse(map[string]interface{}{
		"store": "ok",
		"redis": "ok",
	}))
}

// BackendHealth represents the health status of a single backend.
type BackendHealth struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// BackendsResponse represents the detailed backend health response.
type BackendsResponse struct {
	Store *BackendHealth `json:"store,omitempty"`
	Redis *BackendHealth `json:"redis,omitempty"`
}

// Stores handles GET /health/stores - detailed backend health.
//
// Pings the relational store and redis, reporting per-backend latency.
// Returns 200 OK if all backends are healthy, 503 Service Unavailable if
// any backend is unhealthy.
func (h *HealthHandler) Stores(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse("store not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
	defer cancel()

	response := BackendsResponse{}
	allHealthy := true

	start := time.Now()
	err := h.store.Ping(ctx)
	storeHealth := &BackendHealth{
		Name:    "store",
		Type:    h.storeType,
		Latency: time.Since(start).String(),
	}
	if err != nil {
		storeHealth.Status = "unhealthy"
		storeHealth.Error = err.Error()
		allHealthy = false
	} else {
		storeHealth.Status = "healthy"
	}
	response.Store = storeHealth

	if h.redis != nil {
		start = time.Now()
		err = h.redis.Ping(ctx)
		redisHealth := &BackendHealth{
			Name:    "redis",
			Type:    "redis",
			Latency: time.Since(start).String(),
		}
		if err != nil {
			redisHealth.Status = "unhealthy"
			redisHealth.Error = err.Error()
			allHealthy = false
		} else {
			redisHealth.Status = "healthy"
		}
		response.Redis = redisHealth
	}

	if allHealthy {
		WriteJSON(w, http.StatusOK, healthyResponse(response))
	} else {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponseWithData(response))
	}
}
