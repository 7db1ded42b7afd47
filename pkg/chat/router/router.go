// Package router decides where a notification goes: onto a local
// session's send queue, across the wire to the peer node holding the
// recipient, or nowhere when the recipient is offline.
//
// Delivery is best effort by contract. Offline recipients, sessions
// that vanished between lookup and enqueue, and peer RPC failures are
// logged and dropped; nothing on this path ever reaches the sender's
// reply.
package router

import (
	"context"
	"time"

	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/internal/telemetry"
	"github.com/quillchat/quill/pkg/chat/protocol"
	"github.com/quillchat/quill/pkg/chat/rpc"
	"github.com/quillchat/quill/pkg/chat/session"
	"github.com/quillchat/quill/pkg/metrics"
)

// DefaultCallTimeout bounds a single peer RPC so a black-holed peer
// cannot stall the dispatch consumer.
const DefaultCallTimeout = 5 * time.Second

// Presence resolves which node a user is logged in on. An empty node
// name with a nil error means the user is offline.
type Presence interface {
	UserNode(ctx context.Context, uid int64) (string, error)
}

// Sessions looks up the local session bound to a user.
type Sessions interface {
	User(uid int64) (*session.Session, bool)
}

// Options configures a Router.
type Options struct {
	// Node is this node's name, matched against presence entries.
	Node string
	// Presence resolves user locations, normally the Redis cache.
	Presence Presence
	// Local holds this node's bound sessions.
	Local Sessions
	// Pools provides client stubs for every configured peer.
	Pools *rpc.Pools
	// Metrics may be nil.
	Metrics metrics.PeerMetrics
	// CallTimeout bounds each peer RPC. Zero selects
	// DefaultCallTimeout.
	CallTimeout time.Duration
}

// Router fans notifications out to local sessions or peer nodes.
type Router struct {
	node        string
	presence    Presence
	local       Sessions
	pools       *rpc.Pools
	metrics     metrics.PeerMetrics
	callTimeout time.Duration
}

// New builds a Router from opts.
func New(opts Options) *Router {
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Router{
		node:        opts.Node,
		presence:    opts.Presence,
		local:       opts.Local,
		pools:       opts.Pools,
		metrics:     opts.Metrics,
		callTimeout: timeout,
	}
}

// NotifyAddFriend delivers a friend-apply notice to touid, wherever
// that user is logged in.
func (r *Router) NotifyAddFriend(ctx context.Context, touid int64, n protocol.AddFriendNotify) {
	r.deliver(ctx, touid, protocol.MsgNotifyAddFriend, n, "NotifyAddFriend",
		func(ctx context.Context, c rpc.PeerNotifyClient) error {
			_, err := c.NotifyAddFriend(ctx, &rpc.AddFriendNotifyRequest{AddFriendNotify: n, ToUID: touid})
			return err
		})
}

// NotifyAuthFriend delivers a friend-authorization notice to the
// requester named in n.
func (r *Router) NotifyAuthFriend(ctx context.Context, n protocol.AuthFriendNotify) {
	r.deliver(ctx, n.ToUID, protocol.MsgNotifyAuthFriend, n, "NotifyAuthFriend",
		func(ctx context.Context, c rpc.PeerNotifyClient) error {
			_, err := c.NotifyAuthFriend(ctx, &rpc.AuthFriendNotifyRequest{AuthFriendNotify: n})
			return err
		})
}

// NotifyTextChat delivers a chat message notice to the recipient named
// in n.
func (r *Router) NotifyTextChat(ctx context.Context, n protocol.TextChatResponse) {
	r.deliver(ctx, n.ToUID, protocol.MsgNotifyTextChat, n, "NotifyTextChatMsg",
		func(ctx context.Context, c rpc.PeerNotifyClient) error {
			_, err := c.NotifyTextChatMsg(ctx, &rpc.TextChatNotifyRequest{TextChatResponse: n})
			return err
		})
}

func (r *Router) deliver(ctx context.Context, touid int64, msgID uint16, payload any, method string, call func(context.Context, rpc.PeerNotifyClient) error) {
	node, err := r.presence.UserNode(ctx, touid)
	if err != nil {
		logger.WarnCtx(ctx, "presence lookup failed, dropping notification",
			logger.ToUID(touid),
			logger.MsgID(msgID),
			logger.Err(err),
		)
		return
	}
	if node == "" {
		logger.DebugCtx(ctx, "recipient offline, dropping notification",
			logger.ToUID(touid),
			logger.MsgID(msgID),
		)
		return
	}

	if node == r.node {
		sess, ok := r.local.User(touid)
		if !ok {
			// Logged out between the presence lookup and now.
			logger.DebugCtx(ctx, "recipient session gone, dropping notification",
				logger.ToUID(touid),
				logger.MsgID(msgID),
			)
			return
		}
		sess.SendJSON(msgID, payload)
		logger.DebugCtx(ctx, "notification delivered locally",
			logger.ToUID(touid),
			logger.MsgID(msgID),
			logger.SessionID(sess.ID()),
		)
		return
	}

	r.forward(ctx, node, touid, msgID, method, call)
}

func (r *Router) forward(parent context.Context, node string, touid int64, msgID uint16, method string, call func(context.Context, rpc.PeerNotifyClient) error) {
	pool, ok := r.pools.Get(node)
	if !ok {
		logger.WarnCtx(parent, "no stub pool for peer, dropping notification",
			logger.Peer(node),
			logger.ToUID(touid),
			logger.MsgID(msgID),
		)
		return
	}

	st, err := pool.Acquire(parent)
	if err != nil {
		logger.DebugCtx(parent, "stub unavailable, dropping notification",
			logger.Peer(node),
			logger.ToUID(touid),
			logger.Err(err),
		)
		return
	}
	defer pool.Release(st)

	ctx, cancel := context.WithTimeout(parent, r.callTimeout)
	defer cancel()

	ctx, span := telemetry.StartPeerSpan(ctx, method, node, telemetry.ToUID(touid))
	defer span.End()

	start := time.Now()
	err = call(ctx, st.Client)
	elapsed := time.Since(start)
	if r.metrics != nil {
		r.metrics.ObserveCall(method, node, elapsed, err)
	}
	if err != nil {
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(parent, "peer notification failed",
			logger.Peer(node),
			logger.Method(method),
			logger.ToUID(touid),
			logger.MsgID(msgID),
			logger.Err(err),
		)
		return
	}
	logger.DebugCtx(parent, "notification forwarded to peer",
		logger.Peer(node),
		logger.Method(method),
		logger.ToUID(touid),
		logger.MsgID(msgID),
		logger.DurationMs(float64(elapsed.Microseconds())/1000),
	)
}
