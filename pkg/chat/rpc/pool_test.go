package rpc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPeerAddr parses but is never dialed: grpc.NewClient connects
// lazily, so pool tests need no listener.
const testPeerAddr = "127.0.0.1:1"

type fakePeerMetrics struct {
	mu         sync.Mutex
	inUse      map[string]int
	poolClosed int
}

func newFakePeerMetrics() *fakePeerMetrics {
	return &fakePeerMetrics{inUse: make(map[string]int)}
}

func (f *fakePeerMetrics) ObserveCall(method, peer string, duration time.Duration, err error) {}

func (f *fakePeerMetrics) SetPoolInUse(peer string, inUse int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inUse[peer] = inUse
}

func (f *fakePeerMetrics) RecordPoolClosed(peer string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.poolClosed++
}

func (f *fakePeerMetrics) snapshot(peer string) (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inUse[peer], f.poolClosed
}

func TestPoolHandsOutDistinctStubs(t *testing.T) {
	p, err := NewPool("beta", testPeerAddr, 3, nil)
	require.NoError(t, err)
	defer p.Close()

	seen := make(map[*Stub]bool)
	for i := 0; i < 3; i++ {
		st, err := p.Acquire(context.Background())
		require.NoError(t, err)
		require.NotNil(t, st.Client)
		seen[st] = true
	}
	assert.Len(t, seen, 3)
}

func TestPoolZeroSizeSelectsDefault(t *testing.T) {
	p, err := NewPool("beta", testPeerAddr, 0, nil)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, DefaultPoolSize, p.size)
}

func TestPoolAcquireBlocksUntilRelease(t *testing.T) {
	m := newFakePeerMetrics()
	p, err := NewPool("beta", testPeerAddr, 1, m)
	require.NoError(t, err)
	defer p.Close()

	st, err := p.Acquire(context.Background())
	require.NoError(t, err)

	type result struct {
		st  *Stub
		err error
	}
	acquired := make(chan result, 1)
	go func() {
		st2, err := p.Acquire(context.Background())
		acquired <- result{st2, err}
	}()

	select {
	case <-acquired:
		t.Fatal("acquire returned while every stub was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	p.Release(st)

	select {
	case got := <-acquired:
		require.NoError(t, got.err)
		assert.Same(t, st, got.st)
		p.Release(got.st)
	case <-time.After(2 * time.Second):
		t.Fatal("acquire did not wake after release")
	}

	inUse, _ := m.snapshot("beta")
	assert.Equal(t, 0, inUse)
}

func TestPoolAcquireFailsFastOnCancelledContext(t *testing.T) {
	p, err := NewPool("beta", testPeerAddr, 1, nil)
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPoolCloseWakesWaiters(t *testing.T) {
	m := newFakePeerMetrics()
	p, err := NewPool("beta", testPeerAddr, 1, m)
	require.NoError(t, err)

	st, err := p.Acquire(context.Background())
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := p.Acquire(context.Background())
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)

	p.Close()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrPoolClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not woken by close")
	}

	// In-flight stubs are discarded on release, and the pool stays
	// closed for later callers.
	p.Release(st)
	_, err = p.Acquire(context.Background())
	require.ErrorIs(t, err, ErrPoolClosed)

	_, closed := m.snapshot("beta")
	assert.Equal(t, 1, closed)
}

func TestPoolCloseIsIdempotent(t *testing.T) {
	p, err := NewPool("beta", testPeerAddr, 2, nil)
	require.NoError(t, err)

	p.Close()
	p.Close()

	_, err = p.Acquire(context.Background())
	require.ErrorIs(t, err, ErrPoolClosed)
}

func TestPoolsLookupByPeerName(t *testing.T) {
	ps := NewPools()

	beta, err := NewPool("beta", testPeerAddr, 1, nil)
	require.NoError(t, err)
	gamma, err := NewPool("gamma", testPeerAddr, 1, nil)
	require.NoError(t, err)

	ps.Add(beta)
	ps.Add(gamma)

	got, ok := ps.Get("beta")
	require.True(t, ok)
	assert.Same(t, beta, got)

	_, ok = ps.Get("delta")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"beta", "gamma"}, ps.Peers())

	ps.Close()
	_, err = beta.Acquire(context.Background())
	require.ErrorIs(t, err, ErrPoolClosed)
	_, err = gamma.Acquire(context.Background())
	require.ErrorIs(t, err, ErrPoolClosed)
	assert.Empty(t, ps.Peers())
}

func TestPoolsAddReplacesAndClosesPrevious(t *testing.T) {
	ps := NewPools()
	defer ps.Close()

	first, err := NewPool("beta", testPeerAddr, 1, nil)
	require.NoError(t, err)
	second, err := NewPool("beta", testPeerAddr, 1, nil)
	require.NoError(t, err)

	ps.Add(first)
	ps.Add(second)

	got, ok := ps.Get("beta")
	require.True(t, ok)
	assert.Same(t, second, got)

	_, err = first.Acquire(context.Background())
	require.ErrorIs(t, err, ErrPoolClosed)
}
