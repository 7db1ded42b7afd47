package router

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillchat/quill/pkg/chat/protocol"
	"github.com/quillchat/quill/pkg/chat/rpc"
	"github.com/quillchat/quill/pkg/chat/session"
)

type fakePresence struct {
	node string
	err  error
}

func (f *fakePresence) UserNode(ctx context.Context, uid int64) (string, error) {
	return f.node, f.err
}

type observedCall struct {
	method string
	peer   string
	err    error
}

type fakePeerMetrics struct {
	mu    sync.Mutex
	calls []observedCall
}

func (f *fakePeerMetrics) ObserveCall(method, peer string, duration time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, observedCall{method, peer, err})
}

func (f *fakePeerMetrics) SetPoolInUse(peer string, inUse int) {}
func (f *fakePeerMetrics) RecordPoolClosed(peer string)        {}

func (f *fakePeerMetrics) snapshot() []observedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]observedCall(nil), f.calls...)
}

func newBoundSession(t *testing.T, reg *session.Registry, uid int64) net.Conn {
	t.Helper()
	server, client := net.Pipe()
	s := session.New(server, session.Options{})
	t.Cleanup(func() {
		s.Close()
		_ = client.Close()
	})
	reg.Insert(s)
	require.Nil(t, reg.BindUser(uid, s))
	return client
}

func readFrame(t *testing.T, conn net.Conn) (uint16, []byte) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	hdr := make([]byte, protocol.HeaderLen)
	_, err := io.ReadFull(conn, hdr)
	require.NoError(t, err)
	payload := make([]byte, binary.BigEndian.Uint16(hdr[2:4]))
	_, err = io.ReadFull(conn, payload)
	require.NoError(t, err)
	return binary.BigEndian.Uint16(hdr[0:2]), payload
}

func TestDeliverLocalEnqueuesFrame(t *testing.T) {
	reg := session.NewRegistry()
	conn := newBoundSession(t, reg, 9)

	r := New(Options{
		Node:     "alpha",
		Presence: &fakePresence{node: "alpha"},
		Local:    reg,
		Pools:    rpc.NewPools(),
	})

	r.NotifyTextChat(context.Background(), protocol.TextChatResponse{
		Error:     protocol.CodeSuccess,
		TextArray: []protocol.TextMessage{{MsgID: "m1", Content: "hi"}},
		FromUID:   7,
		ToUID:     9,
	})

	id, payload := readFrame(t, conn)
	assert.Equal(t, protocol.MsgNotifyTextChat, id)

	var notify protocol.TextChatResponse
	require.NoError(t, json.Unmarshal(payload, &notify))
	assert.Equal(t, int64(7), notify.FromUID)
	require.Len(t, notify.TextArray, 1)
	assert.Equal(t, "hi", notify.TextArray[0].Content)
}

func TestOfflineRecipientIsDropped(t *testing.T) {
	r := New(Options{
		Node:     "alpha",
		Presence: &fakePresence{node: ""},
		Local:    session.NewRegistry(),
		Pools:    rpc.NewPools(),
	})

	// Nothing to observe beyond the absence of a panic or block.
	r.NotifyAddFriend(context.Background(), 9, protocol.AddFriendNotify{ApplyUID: 7})
}

func TestPresenceErrorIsDropped(t *testing.T) {
	r := New(Options{
		Node:     "alpha",
		Presence: &fakePresence{err: errors.New("redis down")},
		Local:    session.NewRegistry(),
		Pools:    rpc.NewPools(),
	})

	r.NotifyAuthFriend(context.Background(), protocol.AuthFriendNotify{FromUID: 7, ToUID: 9})
}

func TestLocalSessionGoneIsDropped(t *testing.T) {
	r := New(Options{
		Node:     "alpha",
		Presence: &fakePresence{node: "alpha"},
		Local:    session.NewRegistry(),
		Pools:    rpc.NewPools(),
	})

	r.NotifyTextChat(context.Background(), protocol.TextChatResponse{FromUID: 7, ToUID: 9})
}

func TestNoPoolForPeerIsDropped(t *testing.T) {
	m := &fakePeerMetrics{}
	r := New(Options{
		Node:     "alpha",
		Presence: &fakePresence{node: "gamma"},
		Local:    session.NewRegistry(),
		Pools:    rpc.NewPools(),
		Metrics:  m,
	})

	r.NotifyTextChat(context.Background(), protocol.TextChatResponse{FromUID: 7, ToUID: 9})
	assert.Empty(t, m.snapshot(), "no call should be attempted without a pool")
}

// TestForwardToPeer runs a real peer node (gRPC server plus its own
// registry) and checks that a notification routed to it surfaces on
// the remote session.
func TestForwardToPeer(t *testing.T) {
	remoteReg := session.NewRegistry()
	remoteConn := newBoundSession(t, remoteReg, 9)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := rpc.NewServer(rpc.NewNotifyService(remoteReg))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() {
		served <- srv.Serve(ctx, lis)
	}()

	pools := rpc.NewPools()
	pool, err := rpc.NewPool("beta", lis.Addr().String(), 2, nil)
	require.NoError(t, err)
	pools.Add(pool)
	defer pools.Close()

	m := &fakePeerMetrics{}
	r := New(Options{
		Node:     "alpha",
		Presence: &fakePresence{node: "beta"},
		Local:    session.NewRegistry(),
		Pools:    pools,
		Metrics:  m,
	})

	r.NotifyAddFriend(context.Background(), 9, protocol.AddFriendNotify{
		Error:    protocol.CodeSuccess,
		ApplyUID: 7,
		Name:     "ada",
		Nick:     "Ada",
	})

	id, payload := readFrame(t, remoteConn)
	assert.Equal(t, protocol.MsgNotifyAddFriend, id)

	var notify protocol.AddFriendNotify
	require.NoError(t, json.Unmarshal(payload, &notify))
	assert.Equal(t, int64(7), notify.ApplyUID)
	assert.Equal(t, "ada", notify.Name)

	calls := m.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "NotifyAddFriend", calls[0].method)
	assert.Equal(t, "beta", calls[0].peer)
	assert.NoError(t, calls[0].err)

	cancel()
	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}

func TestForwardFailureIsSwallowed(t *testing.T) {
	pools := rpc.NewPools()
	// Nothing listens on the peer address, so the call fails fast.
	pool, err := rpc.NewPool("beta", "127.0.0.1:1", 1, nil)
	require.NoError(t, err)
	pools.Add(pool)
	defer pools.Close()

	m := &fakePeerMetrics{}
	r := New(Options{
		Node:        "alpha",
		Presence:    &fakePresence{node: "beta"},
		Local:       session.NewRegistry(),
		Pools:       pools,
		Metrics:     m,
		CallTimeout: 2 * time.Second,
	})

	r.NotifyTextChat(context.Background(), protocol.TextChatResponse{FromUID: 7, ToUID: 9})

	calls := m.snapshot()
	require.Len(t, calls, 1)
	assert.Error(t, calls[0].err)

	// The stub went back to the pool despite the failure.
	st, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pool.Release(st)
}
