package session

import (
	"sync"
)

// Registry tracks live sessions and the user to session binding used to
// deliver notifications locally. Bindings are last-writer-wins: a fresh
// login displaces the previous session of the same user.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	users    map[int64]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		users:    make(map[int64]*Session),
	}
}

// Insert adds a freshly accepted session. The session carries no user
// binding until its login completes.
func (r *Registry) Insert(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

// Session returns the session with the given id.
func (r *Registry) Session(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// User returns the session currently bound to uid.
func (r *Registry) User(uid int64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.users[uid]
	return s, ok
}

// BindUser binds uid to s, displacing any previous binding. It returns
// the displaced session when one existed and it is not s itself; the
// caller is responsible for kicking it. The uid is also recorded on the
// session so eviction can find the binding later.
func (r *Registry) BindUser(uid int64, s *Session) *Session {
	s.BindUID(uid)

	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.users[uid]
	if prev == s {
		return nil
	}
	r.users[uid] = s
	return prev
}

// Remove evicts s. The user binding is dropped first, and only when it
// still points at s: a session displaced by a newer login must not tear
// down its successor's binding. Remove reports whether s owned the
// binding, in which case presence cleanup on shared state is the
// caller's responsibility.
func (r *Registry) Remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned := false
	if uid := s.UID(); uid != 0 {
		if cur, ok := r.users[uid]; ok && cur == s {
			delete(r.users, uid)
			owned = true
		}
	}
	delete(r.sessions, s.ID())
	return owned
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// UserCount returns the number of users bound to this node.
func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Range calls f on a snapshot of live sessions, stopping when f returns
// false. f may call back into the registry.
func (r *Registry) Range(f func(*Session) bool) {
	r.mu.RLock()
	snapshot := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		snapshot = append(snapshot, s)
	}
	r.mu.RUnlock()

	for _, s := range snapshot {
		if !f(s) {
			return
		}
	}
}
