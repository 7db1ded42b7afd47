package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for chat operations.
// These follow OpenTelemetry semantic conventions where applicable.
// Protocol keys use the "chat." prefix, subsystem-specific keys their own.
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"

	// ========================================================================
	// Chat protocol attributes
	// ========================================================================
	AttrMsg         = "chat.msg"          // Message name (LOGIN, TEXT_CHAT, ...)
	AttrMsgID       = "chat.msg_id"       // Numeric wire id
	AttrCode        = "chat.code"         // Error code carried in the reply
	AttrSessionID   = "chat.session_id"   // Node-local session id
	AttrPayloadSize = "chat.payload_size" // Frame payload bytes

	// ========================================================================
	// User attributes
	// ========================================================================
	AttrUID      = "user.uid"
	AttrToUID    = "user.to_uid" // Notification recipient
	AttrUsername = "user.name"

	// ========================================================================
	// Peer RPC attributes
	// ========================================================================
	AttrPeerNode  = "peer.node"
	AttrPeerAddr  = "peer.address"
	AttrRPCMethod = "rpc.method"

	// ========================================================================
	// Cache attributes
	// ========================================================================
	AttrCacheHit  = "cache.hit"
	AttrCacheKey  = "cache.key"
	AttrCacheKind = "cache.kind"

	// ========================================================================
	// Storage backend attributes
	// ========================================================================
	AttrStoreName = "store.name"
	AttrStoreType = "store.type"
)

// Span names for operations.
// Format: chat.<MESSAGE> for protocol spans
// Format: <component>.<operation> for internal operations
const (
	// ========================================================================
	// Chat protocol spans
	// ========================================================================

	// Root span for chat frame processing
	SpanChatRequest = "chat.request"

	SpanChatLogin      = "chat.LOGIN"
	SpanChatSearchUser = "chat.SEARCH_USER"
	SpanChatAddFriend  = "chat.ADD_FRIEND"
	SpanChatAuthFriend = "chat.AUTH_FRIEND"
	SpanChatTextChat   = "chat.TEXT_CHAT"

	// ========================================================================
	// Peer notification spans
	// ========================================================================
	SpanPeerNotifyAddFriend  = "peer.NotifyAddFriend"
	SpanPeerNotifyAuthFriend = "peer.NotifyAuthFriend"
	SpanPeerNotifyTextChat   = "peer.NotifyTextChatMsg"

	// ========================================================================
	// Internal operations
	// ========================================================================
	SpanCacheLookup = "cache.lookup"
	SpanCacheWrite  = "cache.write"
	SpanStoreQuery  = "store.query"
	SpanStoreExec   = "store.exec"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for full client address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// Msg returns an attribute for message name
func Msg(name string) attribute.KeyValue {
	return attribute.String(AttrMsg, name)
}

// MsgID returns an attribute for numeric message id
func MsgID(id uint16) attribute.KeyValue {
	return attribute.Int(AttrMsgID, int(id))
}

// Code returns an attribute for the error code a handler replied with
func Code(code int) attribute.KeyValue {
	return attribute.Int(AttrCode, code)
}

// SessionID returns an attribute for node-local session id
func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// PayloadSize returns an attribute for frame payload size in bytes
func PayloadSize(n int) attribute.KeyValue {
	return attribute.Int(AttrPayloadSize, n)
}

// UID returns an attribute for user id
func UID(uid int64) attribute.KeyValue {
	return attribute.Int64(AttrUID, uid)
}

// ToUID returns an attribute for a notification recipient
func ToUID(uid int64) attribute.KeyValue {
	return attribute.Int64(AttrToUID, uid)
}

// Username returns an attribute for username
func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

// PeerNode returns an attribute for peer node name
func PeerNode(node string) attribute.KeyValue {
	return attribute.String(AttrPeerNode, node)
}

// PeerAddr returns an attribute for peer node address
func PeerAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrPeerAddr, addr)
}

// RPCMethod returns an attribute for RPC method name
func RPCMethod(method string) attribute.KeyValue {
	return attribute.String(AttrRPCMethod, method)
}

// CacheHit returns an attribute for cache hit indicator
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// CacheKey returns an attribute for cache key
func CacheKey(key string) attribute.KeyValue {
	return attribute.String(AttrCacheKey, key)
}

// CacheKind returns an attribute for cached entry kind
func CacheKind(kind string) attribute.KeyValue {
	return attribute.String(AttrCacheKind, kind)
}

// StoreName returns an attribute for store name
func StoreName(name string) attribute.KeyValue {
	return attribute.String(AttrStoreName, name)
}

// StoreType returns an attribute for store type
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// StartChatSpan starts a span for one inbound chat frame.
// This is a convenience function that sets common attributes.
func StartChatSpan(ctx context.Context, msg string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Msg(msg),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "chat."+msg, trace.WithAttributes(allAttrs...))
}

// StartPeerSpan starts a span for a peer notification RPC.
func StartPeerSpan(ctx context.Context, method, node string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		RPCMethod(method),
		PeerNode(node),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "peer."+method, trace.WithAttributes(allAttrs...))
}

// StartCacheSpan starts a span for a cache operation.
func StartCacheSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "cache."+operation, trace.WithAttributes(attrs...))
}

// StartStoreSpan starts a span for a relational store operation.
func StartStoreSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "store."+operation, trace.WithAttributes(attrs...))
}
