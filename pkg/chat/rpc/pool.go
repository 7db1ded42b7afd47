package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/pkg/metrics"
)

// DefaultPoolSize is the number of client stubs kept per peer node.
const DefaultPoolSize = 5

// ErrPoolClosed is returned by Acquire once the pool has been closed.
// Callers abort the notification instead of retrying.
var ErrPoolClosed = errors.New("rpc: stub pool closed")

// Stub is one pooled client connection to a peer node. A stub is held
// by at most one caller at a time.
type Stub struct {
	conn   *grpc.ClientConn
	Client PeerNotifyClient
}

// Pool hands out stubs for a single peer node. Acquire blocks on a
// condition variable while all stubs are in flight; Release returns a
// stub and wakes one waiter. Close is sticky.
type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	stubs  []*Stub
	closed bool

	peer    string
	size    int
	metrics metrics.PeerMetrics
}

// NewPool opens size client connections to the peer at addr. Size 0
// selects DefaultPoolSize. Connections are lazy, so a peer that is
// down at startup only surfaces errors on the first call.
func NewPool(peer, addr string, size int, m metrics.PeerMetrics) (*Pool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}
	p := &Pool{peer: peer, size: size, metrics: m}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < size; i++ {
		conn, err := grpc.NewClient(addr,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
		)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("dial peer %s at %s: %w", peer, addr, err)
		}
		p.stubs = append(p.stubs, &Stub{conn: conn, Client: NewPeerNotifyClient(conn)})
	}
	logger.Debug("peer stub pool ready", logger.Peer(peer), logger.QueueLen(size))
	return p, nil
}

// Peer returns the peer node name this pool serves.
func (p *Pool) Peer() string {
	return p.peer
}

// Acquire returns a free stub, blocking while all stubs are in flight.
// It unblocks only on Release or Close; ctx is checked on entry so
// callers with an already-expired context fail fast.
func (p *Pool) Acquire(ctx context.Context) (*Stub, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	for len(p.stubs) == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	st := p.stubs[len(p.stubs)-1]
	p.stubs = p.stubs[:len(p.stubs)-1]
	inUse := p.size - len(p.stubs)
	p.mu.Unlock()
	if p.metrics != nil {
		p.metrics.SetPoolInUse(p.peer, inUse)
	}
	return st, nil
}

// Release hands a stub back and wakes one waiter. Stubs released after
// Close are discarded and their connections closed.
func (p *Pool) Release(st *Stub) {
	if st == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = st.conn.Close()
		return
	}
	p.stubs = append(p.stubs, st)
	inUse := p.size - len(p.stubs)
	p.mu.Unlock()
	if p.metrics != nil {
		p.metrics.SetPoolInUse(p.peer, inUse)
	}
	p.cond.Signal()
}

// Close marks the pool closed, wakes every waiter, and closes all
// pooled connections. In-flight stubs are closed as they are released.
// Safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	stubs := p.stubs
	p.stubs = nil
	p.mu.Unlock()

	p.cond.Broadcast()
	for _, st := range stubs {
		_ = st.conn.Close()
	}
	if p.metrics != nil {
		p.metrics.RecordPoolClosed(p.peer)
	}
	logger.Debug("peer stub pool closed", logger.Peer(p.peer))
}

// Pools indexes stub pools by peer node name. The set is built at
// startup and read concurrently by the router afterwards.
type Pools struct {
	mu    sync.RWMutex
	pools map[string]*Pool
}

// NewPools returns an empty pool set.
func NewPools() *Pools {
	return &Pools{pools: make(map[string]*Pool)}
}

// Add registers the pool under its peer name, replacing and closing
// any previous pool for that peer.
func (ps *Pools) Add(p *Pool) {
	ps.mu.Lock()
	prev := ps.pools[p.peer]
	ps.pools[p.peer] = p
	ps.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
}

// Get returns the pool for the named peer.
func (ps *Pools) Get(peer string) (*Pool, bool) {
	ps.mu.RLock()
	p, ok := ps.pools[peer]
	ps.mu.RUnlock()
	return p, ok
}

// Peers lists the registered peer names.
func (ps *Pools) Peers() []string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	names := make([]string, 0, len(ps.pools))
	for name := range ps.pools {
		names = append(names, name)
	}
	return names
}

// Close closes every pool. Called once during shutdown, before the
// dispatcher drains, so in-flight handlers fail fast instead of
// blocking on Acquire.
func (ps *Pools) Close() {
	ps.mu.Lock()
	pools := make([]*Pool, 0, len(ps.pools))
	for _, p := range ps.pools {
		pools = append(pools, p)
	}
	ps.pools = make(map[string]*Pool)
	ps.mu.Unlock()
	for _, p := range pools {
		p.Close()
	}
}
