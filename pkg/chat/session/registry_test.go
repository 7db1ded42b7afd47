package session

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()

	client, server := net.Pipe()
	s := New(server, Options{})
	t.Cleanup(func() {
		s.Close()
		_ = client.Close()
	})
	return s
}

func TestRegistryInsertAndLookup(t *testing.T) {
	r := NewRegistry()
	s := newTestSession(t)

	r.Insert(s)

	got, ok := r.Session(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, r.Len())

	_, ok = r.Session("no-such-id")
	assert.False(t, ok)
	_, ok = r.User(1001)
	assert.False(t, ok)
}

func TestBindUserDisplacesPrevious(t *testing.T) {
	r := NewRegistry()
	first := newTestSession(t)
	second := newTestSession(t)
	r.Insert(first)
	r.Insert(second)

	prev := r.BindUser(1001, first)
	assert.Nil(t, prev)

	prev = r.BindUser(1001, second)
	assert.Same(t, first, prev)

	got, ok := r.User(1001)
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, r.UserCount())
}

func TestBindUserSameSessionIsNoop(t *testing.T) {
	r := NewRegistry()
	s := newTestSession(t)
	r.Insert(s)

	require.Nil(t, r.BindUser(1001, s))
	assert.Nil(t, r.BindUser(1001, s))

	got, ok := r.User(1001)
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestRemoveDisplacedSessionKeepsNewBinding(t *testing.T) {
	r := NewRegistry()
	first := newTestSession(t)
	second := newTestSession(t)
	r.Insert(first)
	r.Insert(second)

	r.BindUser(1001, first)
	r.BindUser(1001, second)

	// The displaced session no longer owns the binding, so evicting it
	// must not disturb the successor.
	owned := r.Remove(first)
	assert.False(t, owned)

	got, ok := r.User(1001)
	require.True(t, ok)
	assert.Same(t, second, got)

	_, ok = r.Session(first.ID())
	assert.False(t, ok)
}

func TestRemoveOwnerDropsBinding(t *testing.T) {
	r := NewRegistry()
	s := newTestSession(t)
	r.Insert(s)
	r.BindUser(1001, s)

	owned := r.Remove(s)
	assert.True(t, owned)

	_, ok := r.User(1001)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, r.UserCount())
}

func TestRemoveUnboundSession(t *testing.T) {
	r := NewRegistry()
	s := newTestSession(t)
	r.Insert(s)

	assert.False(t, r.Remove(s))
	assert.Equal(t, 0, r.Len())
}

func TestRangeVisitsSnapshot(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 3; i++ {
		r.Insert(newTestSession(t))
	}

	seen := 0
	r.Range(func(*Session) bool {
		seen++
		return true
	})
	assert.Equal(t, 3, seen)

	seen = 0
	r.Range(func(*Session) bool {
		seen++
		return false
	})
	assert.Equal(t, 1, seen)
}
