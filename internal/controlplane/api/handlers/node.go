package handlers

import (
	"context"
	"net/http"

	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/pkg/chat/session"
)

// PresenceReader is the slice of shared presence state the node endpoint
// reads. The redis cache client satisfies it.
type PresenceReader interface {
	LoginCounts(ctx context.Context) (map[string]int64, error)
}

// NodeHandler reports this node's identity and load.
type NodeHandler struct {
	name     string
	registry *session.Registry
	presence PresenceReader
}

// NewNodeHandler creates a new NodeHandler.
func NewNodeHandler(name string, registry *session.Registry, presence PresenceReader) *NodeHandler {
	return &NodeHandler{
		name:     name,
		registry: registry,
		presence: presence,
	}
}

// NodeResponse is the response body for GET /api/v1/node.
type NodeResponse struct {
	// Name is the node name peers route notifications by.
	Name string `json:"name"`

	// ActiveSessions counts accepted TCP connections, logged in or not.
	ActiveSessions int `json:"active_sessions"`

	// OnlineUsers counts sessions with a completed login.
	OnlineUsers int `json:"online_users"`

	// LoginCounts is the cluster-wide per-node login census from redis.
	LoginCounts map[string]int64 `json:"login_counts,omitempty"`
}

// Node handles GET /api/v1/node.
// Returns the node name plus local and cluster-wide load counters.
func (h *NodeHandler) Node(w http.ResponseWriter, r *http.Request) {
	response := NodeResponse{
		Name:           h.name,
		ActiveSessions: h.registry.Len(),
		OnlineUsers:    h.registry.UserCount(),
	}

	if h.presence != nil {
		counts, err := h.presence.LoginCounts(r.Context())
		if err != nil {
			logger.WarnCtx(r.Context(), "failed to read login counts", "error", err)
		} else {
			response.LoginCounts = counts
		}
	}

	WriteJSONOK(w, response)
}
