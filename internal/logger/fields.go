package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so the node's
// logs aggregate and query cleanly.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Session & Wire Protocol
	// ========================================================================
	KeySessionID  = "session_id"  // Session identifier (UUID assigned at accept)
	KeyMsgID      = "msg_id"      // Frame message id
	KeyPayloadLen = "payload_len" // Frame payload length in bytes
	KeyQueueLen   = "queue_len"   // Send or dispatch queue depth

	// ========================================================================
	// Identity & Presence
	// ========================================================================
	KeyUID      = "uid"       // User id bound to the session
	KeyFromUID  = "from_uid"  // Originating user of a notification
	KeyToUID    = "to_uid"    // Target user of a notification
	KeyUsername = "username"  // User name (search, admin API)
	KeyNode     = "node"      // Chat node name (presence value)
	KeyClientIP = "client_ip" // Client IP address

	// ========================================================================
	// Cross-node RPC
	// ========================================================================
	KeyPeer   = "peer"   // Peer node name
	KeyMethod = "method" // RPC method name

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"      // Error message
	KeyErrorCode  = "error_code" // Numeric error code carried in a reply
	KeyCacheHit   = "cache_hit"  // Profile cache hit indicator
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// SessionID returns a slog.Attr for a session identifier
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// MsgID returns a slog.Attr for a frame message id
func MsgID(id uint16) slog.Attr {
	return slog.Int(KeyMsgID, int(id))
}

// PayloadLen returns a slog.Attr for a frame payload length
func PayloadLen(n int) slog.Attr {
	return slog.Int(KeyPayloadLen, n)
}

// QueueLen returns a slog.Attr for a queue depth
func QueueLen(n int) slog.Attr {
	return slog.Int(KeyQueueLen, n)
}

// UID returns a slog.Attr for a user id
func UID(uid int64) slog.Attr {
	return slog.Int64(KeyUID, uid)
}

// FromUID returns a slog.Attr for the originating user of a notification
func FromUID(uid int64) slog.Attr {
	return slog.Int64(KeyFromUID, uid)
}

// ToUID returns a slog.Attr for the target user of a notification
func ToUID(uid int64) slog.Attr {
	return slog.Int64(KeyToUID, uid)
}

// Username returns a slog.Attr for a user name
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// Node returns a slog.Attr for a chat node name
func Node(name string) slog.Attr {
	return slog.String(KeyNode, name)
}

// ClientIP returns a slog.Attr for a client address
func ClientIP(ip string) slog.Attr {
	return slog.String(KeyClientIP, ip)
}

// Peer returns a slog.Attr for a peer node name
func Peer(name string) slog.Attr {
	return slog.String(KeyPeer, name)
}

// Method returns a slog.Attr for an RPC method name
func Method(name string) slog.Attr {
	return slog.String(KeyMethod, name)
}

// DurationMs returns a slog.Attr for a duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error message
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric reply error code
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// CacheHit returns a slog.Attr for a cache hit indicator
func CacheHit(hit bool) slog.Attr {
	return slog.Bool(KeyCacheHit, hit)
}
