package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/pkg/chat/session"
)

// SessionsHandler exposes the live session table for inspection and kicks.
type SessionsHandler struct {
	registry *session.Registry
}

// NewSessionsHandler creates a new SessionsHandler.
func NewSessionsHandler(registry *session.Registry) *SessionsHandler {
	return &SessionsHandler{registry: registry}
}

// SessionResponse describes one live session.
type SessionResponse struct {
	ID         string `json:"id"`
	RemoteAddr string `json:"remote_addr"`

	// UID is zero until the session completes a login.
	UID int64 `json:"uid,omitempty"`
}

// List handles GET /api/v1/sessions.
// Returns every live session on this node.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions := make([]SessionResponse, 0, h.registry.Len())
	h.registry.Range(func(s *session.Session) bool {
		sessions = append(sessions, SessionResponse{
			ID:         s.ID(),
			RemoteAddr: s.RemoteAddr(),
			UID:        s.UID(),
		})
		return true
	})

	WriteJSONOK(w, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// Kick handles DELETE /api/v1/sessions/{id}.
// Closes the session's connection. The serve loop observes the closed
// socket and runs the usual eviction, so presence cleanup follows the
// same path as a client disconnect.
func (h *SessionsHandler) Kick(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		BadRequest(w, "Session id is required")
		return
	}

	s, ok := h.registry.Session(id)
	if !ok {
		NotFound(w, "No session with this id")
		return
	}

	s.Close()
	logger.InfoCtx(r.Context(), "session kicked",
		"session_id", id,
		"uid", s.UID(),
		"client_addr", s.RemoteAddr())

	WriteNoContent(w)
}
