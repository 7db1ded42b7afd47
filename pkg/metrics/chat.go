package metrics

import (
	"time"
)

// ChatMetrics provides observability for the chat session plane:
// connection lifecycle, frame traffic, dispatch queue health and handler
// latency.
//
// This interface is optional. Pass nil to disable collection; all
// callers must tolerate a nil value.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	chatMetrics := prometheus.NewChatMetrics()
//	srv := server.New(cfg, chatMetrics)
//
//	// Without metrics (zero overhead)
//	srv := server.New(cfg, nil)
type ChatMetrics interface {
	// RecordConnectionAccepted increments the accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed counts connections closed forcibly after
	// the shutdown timeout expired.
	RecordConnectionForceClosed()

	// SetActiveSessions updates the current session count gauge.
	SetActiveSessions(count int32)

	// SetOnlineUsers updates the gauge of users bound to this node.
	SetOnlineUsers(count int)

	// RecordMessageReceived counts an inbound frame by message name.
	RecordMessageReceived(msg string)

	// RecordMessageSent counts an outbound frame by message name.
	RecordMessageSent(msg string)

	// RecordSendDropped counts an outbound frame dropped before the wire.
	// Reasons: "queue_full", "closed".
	RecordSendDropped(reason string)

	// RecordHandlerDuration records a completed handler invocation with
	// its message name and resulting error code ("0" for success).
	RecordHandlerDuration(msg string, duration time.Duration, errorCode string)

	// SetDispatchQueueDepth updates the dispatch backlog gauge.
	SetDispatchQueueDepth(depth int)

	// RecordDispatchDropped counts an inbound frame the dispatcher threw
	// away. Reasons: "overflow", "unknown_msg", "stopped".
	RecordDispatchDropped(reason string)
}
