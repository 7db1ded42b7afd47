package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quillchat/quill/pkg/chat/session"
)

type fakePresence struct {
	counts map[string]int64
	err    error
}

func (f *fakePresence) LoginCounts(ctx context.Context) (map[string]int64, error) {
	return f.counts, f.err
}

// newPipeSession creates a session over an in-memory pipe and registers
// cleanup for both ends.
func newPipeSession(t *testing.T) *session.Session {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })

	s := session.New(server, session.Options{})
	t.Cleanup(s.Close)
	return s
}

func TestNode_ReportsCounts(t *testing.T) {
	registry := session.NewRegistry()

	s1 := newPipeSession(t)
	s2 := newPipeSession(t)
	registry.Insert(s1)
	registry.Insert(s2)
	registry.BindUser(42, s2)

	presence := &fakePresence{counts: map[string]int64{
		"quill-a": 2,
		"quill-b": 5,
	}}

	handler := NewNodeHandler("quill-a", registry, presence)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/node", nil)
	w := httptest.NewRecorder()

	handler.Node(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp NodeResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Name != "quill-a" {
		t.Errorf("name = %q, want quill-a", resp.Name)
	}
	if resp.ActiveSessions != 2 {
		t.Errorf("active_sessions = %d, want 2", resp.ActiveSessions)
	}
	if resp.OnlineUsers != 1 {
		t.Errorf("online_users = %d, want 1", resp.OnlineUsers)
	}
	if resp.LoginCounts["quill-b"] != 5 {
		t.Errorf("login_counts[quill-b] = %d, want 5", resp.LoginCounts["quill-b"])
	}
}

func TestNode_PresenceErrorIsNotFatal(t *testing.T) {
	registry := session.NewRegistry()
	presence := &fakePresence{err: context.DeadlineExceeded}

	handler := NewNodeHandler("quill-a", registry, presence)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/node", nil)
	w := httptest.NewRecorder()

	handler.Node(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp NodeResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.LoginCounts != nil {
		t.Errorf("expected login_counts to be omitted, got %v", resp.LoginCounts)
	}
}

func TestNode_NilPresence(t *testing.T) {
	handler := NewNodeHandler("quill-a", session.NewRegistry(), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/node", nil)
	w := httptest.NewRecorder()

	handler.Node(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
