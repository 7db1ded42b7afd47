// Package prometheus contains the Prometheus-backed implementations of
// the metrics interfaces. Constructors return nil when the registry has
// not been initialized, which callers treat as metrics disabled.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/quillchat/quill/pkg/metrics"
)

// chatMetrics is the Prometheus implementation of metrics.ChatMetrics.
type chatMetrics struct {
	connectionsAccepted    prometheus.Counter
	connectionsClosed      prometheus.Counter
	connectionsForceClosed prometheus.Counter
	activeSessions         prometheus.Gauge
	onlineUsers            prometheus.Gauge
	messagesReceived       *prometheus.CounterVec
	messagesSent           *prometheus.CounterVec
	sendDropped            *prometheus.CounterVec
	handlerDuration        *prometheus.HistogramVec
	dispatchQueueDepth     prometheus.Gauge
	dispatchDropped        *prometheus.CounterVec
}

// NewChatMetrics creates a new Prometheus-backed ChatMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewChatMetrics() metrics.ChatMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &chatMetrics{
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "quill_connections_accepted_total",
				Help: "Total number of accepted chat connections",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "quill_connections_closed_total",
				Help: "Total number of closed chat connections",
			},
		),
		connectionsForceClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "quill_connections_force_closed_total",
				Help: "Total number of connections force-closed after the shutdown timeout",
			},
		),
		activeSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "quill_sessions_active",
				Help: "Current number of live chat sessions",
			},
		),
		onlineUsers: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "quill_users_online",
				Help: "Current number of users bound to this node",
			},
		),
		messagesReceived: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_messages_received_total",
				Help: "Total inbound frames by message name",
			},
			[]string{"msg"},
		),
		messagesSent: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_messages_sent_total",
				Help: "Total outbound frames by message name",
			},
			[]string{"msg"},
		),
		sendDropped: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_send_dropped_total",
				Help: "Outbound frames dropped before the wire by reason",
			},
			[]string{"reason"}, // "queue_full", "closed"
		),
		handlerDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "quill_handler_duration_milliseconds",
				Help: "Handler latency in milliseconds by message name and error code",
				Buckets: []float64{
					0.1, // in-memory only
					0.5,
					1,
					5, // Redis round trip
					10,
					50, // database fallback
					100,
					500,
					1000,
				},
			},
			[]string{"msg", "error_code"},
		),
		dispatchQueueDepth: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "quill_dispatch_queue_depth",
				Help: "Current number of frames waiting in the dispatch queue",
			},
		),
		dispatchDropped: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_dispatch_dropped_total",
				Help: "Inbound frames discarded by the dispatcher by reason",
			},
			[]string{"reason"}, // "overflow", "unknown_msg", "stopped"
		),
	}
}

func (m *chatMetrics) RecordConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsAccepted.Inc()
}

func (m *chatMetrics) RecordConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsClosed.Inc()
}

func (m *chatMetrics) RecordConnectionForceClosed() {
	if m == nil {
		return
	}
	m.connectionsForceClosed.Inc()
}

func (m *chatMetrics) SetActiveSessions(count int32) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(count))
}

func (m *chatMetrics) SetOnlineUsers(count int) {
	if m == nil {
		return
	}
	m.onlineUsers.Set(float64(count))
}

func (m *chatMetrics) RecordMessageReceived(msg string) {
	if m == nil {
		return
	}
	m.messagesReceived.WithLabelValues(msg).Inc()
}

func (m *chatMetrics) RecordMessageSent(msg string) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(msg).Inc()
}

func (m *chatMetrics) RecordSendDropped(reason string) {
	if m == nil {
		return
	}
	m.sendDropped.WithLabelValues(reason).Inc()
}

func (m *chatMetrics) RecordHandlerDuration(msg string, duration time.Duration, errorCode string) {
	if m == nil {
		return
	}
	m.handlerDuration.WithLabelValues(msg, errorCode).Observe(duration.Seconds() * 1000)
}

func (m *chatMetrics) SetDispatchQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.dispatchQueueDepth.Set(float64(depth))
}

func (m *chatMetrics) RecordDispatchDropped(reason string) {
	if m == nil {
		return
	}
	m.dispatchDropped.WithLabelValues(reason).Inc()
}
