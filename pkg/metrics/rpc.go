package metrics

import (
	"time"
)

// PeerMetrics provides observability for cross-node notification RPCs:
// per-method call latency and outcome, plus stub pool utilization.
//
// This interface is optional. Pass nil to disable collection; all
// callers must tolerate a nil value.
//
// Example usage:
//
//	start := time.Now()
//	err := client.NotifyTextChat(ctx, req)
//	peerMetrics.ObserveCall("NotifyTextChat", peer, time.Since(start), err)
type PeerMetrics interface {
	// ObserveCall records one RPC to a peer node with its duration and
	// outcome.
	ObserveCall(method string, peer string, duration time.Duration, err error)

	// SetPoolInUse updates the gauge of stubs checked out of the pool
	// for the given peer.
	SetPoolInUse(peer string, inUse int)

	// RecordPoolClosed counts an acquire attempt against a closed pool.
	RecordPoolClosed(peer string)
}
