package server

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillchat/quill/pkg/bufpool"
	"github.com/quillchat/quill/pkg/chat/dispatch"
	"github.com/quillchat/quill/pkg/chat/protocol"
	"github.com/quillchat/quill/pkg/chat/session"
)

type capturedFrame struct {
	id      uint16
	payload []byte
}

// captureSink copies payloads out of their pooled buffers and hands the
// buffers back, same as the dispatcher does after handling.
type captureSink struct {
	mu     sync.Mutex
	frames []capturedFrame
}

func (c *captureSink) Push(m *session.Message) bool {
	p := make([]byte, len(m.Payload))
	copy(p, m.Payload)
	bufpool.Put(m.Payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, capturedFrame{id: m.ID, payload: p})
	return true
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *captureSink) frame(i int) capturedFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames[i]
}

type clearCall struct {
	uid  int64
	node string
}

type fakePresence struct {
	mu     sync.Mutex
	counts map[string]int64
	resets []string
	nodes  map[int64]string
	clears []clearCall
}

func newFakePresence() *fakePresence {
	return &fakePresence{
		counts: make(map[string]int64),
		nodes:  make(map[int64]string),
	}
}

func (p *fakePresence) SetLoginCount(_ context.Context, node string, count int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[node] = count
	p.resets = append(p.resets, node)
	return nil
}

func (p *fakePresence) IncrLoginCount(_ context.Context, node string, delta int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[node] += delta
	return p.counts[node], nil
}

func (p *fakePresence) ClearUserNode(_ context.Context, uid int64, node string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clears = append(p.clears, clearCall{uid: uid, node: node})
	if p.nodes[uid] != node {
		return false, nil
	}
	delete(p.nodes, uid)
	return true, nil
}

func (p *fakePresence) bindNode(uid int64, node string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nodes[uid] = node
}

func (p *fakePresence) node(uid int64) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nodes[uid]
}

func (p *fakePresence) count(node string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[node]
}

func (p *fakePresence) clearCalls() []clearCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]clearCall(nil), p.clears...)
}

// findFreePort grabs an ephemeral port by binding to :0 and reading the
// assignment back.
func findFreePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	return ln.Addr().(*net.TCPAddr).Port
}

// startTestServer runs a server on a free loopback port and tears it
// down with the test.
func startTestServer(t *testing.T, config *Config, opts Options) *Server {
	t.Helper()

	if config.Name == "" {
		config.Name = "quill-test"
	}
	if config.Host == "" {
		config.Host = "127.0.0.1"
	}
	if config.Port == 0 {
		config.Port = findFreePort(t)
	}
	if opts.Registry == nil {
		opts.Registry = session.NewRegistry()
	}

	srv, err := New(config, opts)
	require.NoError(t, err)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(context.Background()) }()

	t.Cleanup(func() {
		_ = srv.Stop(nil)
		select {
		case <-serveErr:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop within 5s")
		}
	})

	require.NotEmpty(t, srv.Addr())
	return srv
}

func dialServer(t *testing.T, srv *Server) net.Conn {
	t.Helper()

	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func writeClientFrame(t *testing.T, conn net.Conn, id uint16, payload []byte) {
	t.Helper()

	frame, err := protocol.NewCodec(0).Encode(id, payload)
	require.NoError(t, err)
	_, err = conn.Write(frame)
	require.NoError(t, err)
}

func readClientFrame(t *testing.T, conn net.Conn) (uint16, []byte) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	hdr := make([]byte, protocol.HeaderLen)
	_, err := io.ReadFull(conn, hdr)
	require.NoError(t, err)

	id, length, err := protocol.NewCodec(0).DecodeHeader(hdr)
	require.NoError(t, err)

	body := make([]byte, length)
	_, err = io.ReadFull(conn, body)
	require.NoError(t, err)
	return id, body
}

func TestNewRequiresRegistry(t *testing.T) {
	_, err := New(&Config{Name: "quill-test"}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	config := &Config{Name: "quill-test", IdleTimeout: -time.Second}
	_, err := New(config, Options{Registry: session.NewRegistry()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server config")
}

func TestServeRoutesFramesToSink(t *testing.T) {
	sink := &captureSink{}
	registry := session.NewRegistry()
	srv := startTestServer(t, &Config{}, Options{Registry: registry, Sink: sink})

	conn := dialServer(t, srv)
	writeClientFrame(t, conn, protocol.MsgLogin, []byte(`{"uid":42,"token":"tok"}`))

	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	got := sink.frame(0)
	assert.Equal(t, protocol.MsgLogin, got.id)
	assert.JSONEq(t, `{"uid":42,"token":"tok"}`, string(got.payload))

	assert.Equal(t, int32(1), srv.ActiveConnections())
	assert.Equal(t, 1, registry.Len())
}

func TestServeDispatchRoundTrip(t *testing.T) {
	queue := dispatch.NewQueue(0, nil)
	queue.Register(protocol.MsgTextChat, func(_ context.Context, m *session.Message) protocol.ErrorCode {
		m.Sess.Send(protocol.MsgTextChatRsp, m.Payload)
		return protocol.CodeSuccess
	})
	go queue.Run(context.Background())
	t.Cleanup(queue.Stop)

	srv := startTestServer(t, &Config{}, Options{Registry: session.NewRegistry(), Sink: queue})

	conn := dialServer(t, srv)
	writeClientFrame(t, conn, protocol.MsgTextChat, []byte(`{"fromuid":42,"touid":7}`))

	id, body := readClientFrame(t, conn)
	assert.Equal(t, protocol.MsgTextChatRsp, id)
	assert.JSONEq(t, `{"fromuid":42,"touid":7}`, string(body))
}

func TestServeEnforcesMaxConnections(t *testing.T) {
	sink := &captureSink{}
	srv := startTestServer(t, &Config{MaxConnections: 1}, Options{Registry: session.NewRegistry(), Sink: sink})

	first := dialServer(t, srv)
	require.Eventually(t, func() bool { return srv.ActiveConnections() == 1 }, 2*time.Second, 10*time.Millisecond)

	// The second connection completes its handshake in the kernel
	// backlog but no session is accepted for it while the slot is held.
	second := dialServer(t, srv)
	writeClientFrame(t, second, protocol.MsgTextChat, []byte(`{"fromuid":1}`))

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, sink.count(), "second connection must wait for a slot")

	require.NoError(t, first.Close())

	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, protocol.MsgTextChat, sink.frame(0).id)
}

func TestServeResetsLoginCountOnStartup(t *testing.T) {
	presence := newFakePresence()
	presence.counts["quill-a"] = 7 // stale count from a previous run

	startTestServer(t, &Config{Name: "quill-a"}, Options{Registry: session.NewRegistry(), Presence: presence})

	assert.Equal(t, int64(0), presence.count("quill-a"))
	assert.Equal(t, []string{"quill-a"}, presence.resets)
}

func TestStopDrainsSessionsAndReleasesPresence(t *testing.T) {
	presence := newFakePresence()
	registry := session.NewRegistry()
	srv := startTestServer(t, &Config{Name: "quill-a"}, Options{Registry: registry, Presence: presence})

	conn := dialServer(t, srv)
	require.Eventually(t, func() bool { return registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Register the user the way a dispatched login would.
	var sess *session.Session
	registry.Range(func(s *session.Session) bool { sess = s; return false })
	require.NotNil(t, sess)
	registry.BindUser(42, sess)
	sess.MarkCounted()
	presence.bindNode(42, "quill-a")
	_, err := presence.IncrLoginCount(context.Background(), "quill-a", 1)
	require.NoError(t, err)

	require.NoError(t, srv.Stop(nil))

	assert.Equal(t, 0, registry.Len())
	assert.Equal(t, int32(0), srv.ActiveConnections())
	assert.Empty(t, presence.node(42), "presence entry released on drain")
	assert.Equal(t, int64(0), presence.count("quill-a"), "login count balanced on drain")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestEvictionSparesDisplacedBinding(t *testing.T) {
	presence := newFakePresence()
	registry := session.NewRegistry()
	srv := startTestServer(t, &Config{Name: "quill-a"}, Options{Registry: registry, Presence: presence})

	dialServer(t, srv)
	dialServer(t, srv)
	require.Eventually(t, func() bool { return registry.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	sessions := make([]*session.Session, 0, 2)
	registry.Range(func(s *session.Session) bool {
		sessions = append(sessions, s)
		return true
	})
	require.Len(t, sessions, 2)

	// User 42 logs in on the first session, then again on the second.
	// The displaced session is closed the way the login handler would.
	registry.BindUser(42, sessions[0])
	presence.bindNode(42, "quill-a")
	displaced := registry.BindUser(42, sessions[1])
	require.Same(t, sessions[0], displaced)
	displaced.Close()

	require.Eventually(t, func() bool { return registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	assert.Empty(t, presence.clearCalls(), "displaced session must not clear its successor's presence")
	assert.Equal(t, "quill-a", presence.node(42))
	bound, ok := registry.User(42)
	require.True(t, ok)
	assert.Same(t, sessions[1], bound)
}

func TestServeFailsWhenPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	config := &Config{
		Name: "quill-test",
		Host: "127.0.0.1",
		Port: ln.Addr().(*net.TCPAddr).Port,
	}
	srv, err := New(config, Options{Registry: session.NewRegistry()})
	require.NoError(t, err)

	err = srv.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat listener")
}

func TestContextCancelShutsDown(t *testing.T) {
	registry := session.NewRegistry()
	config := &Config{Name: "quill-test", Host: "127.0.0.1", Port: findFreePort(t)}
	srv, err := New(config, Options{Registry: registry})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ctx) }()
	require.NotEmpty(t, srv.Addr())

	conn := dialServer(t, srv)
	require.Eventually(t, func() bool { return srv.ActiveConnections() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-serveErr:
		assert.NoError(t, err, "drain within the shutdown timeout")
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down on context cancel")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 0, registry.Len())
}

func TestStopIsIdempotent(t *testing.T) {
	srv := startTestServer(t, &Config{}, Options{Registry: session.NewRegistry()})

	require.NoError(t, srv.Stop(nil))
	require.NoError(t, srv.Stop(nil))
}
