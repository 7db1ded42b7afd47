package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/quillchat/quill/pkg/metrics"
)

// peerMetrics is the Prometheus implementation of metrics.PeerMetrics.
type peerMetrics struct {
	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	poolInUse    *prometheus.GaugeVec
	poolClosed   *prometheus.CounterVec
}

// NewPeerMetrics creates a new Prometheus-backed PeerMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewPeerMetrics() metrics.PeerMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &peerMetrics{
		calls: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_peer_calls_total",
				Help: "Cross-node notification RPCs by method, peer and outcome",
			},
			[]string{"method", "peer", "status"}, // status: "ok", "error"
		),
		callDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "quill_peer_call_duration_milliseconds",
				Help: "Cross-node RPC latency in milliseconds",
				Buckets: []float64{
					0.5,
					1,
					5,
					10,
					50,
					100,
					500,
					1000,
					5000,
				},
			},
			[]string{"method"},
		),
		poolInUse: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quill_peer_pool_in_use",
				Help: "RPC stubs currently checked out per peer",
			},
			[]string{"peer"},
		),
		poolClosed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_peer_pool_closed_total",
				Help: "Acquire attempts rejected because the stub pool was closed",
			},
			[]string{"peer"},
		),
	}
}

func (m *peerMetrics) ObserveCall(method string, peer string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	m.calls.WithLabelValues(method, peer, status).Inc()
	m.callDuration.WithLabelValues(method).Observe(duration.Seconds() * 1000)
}

func (m *peerMetrics) SetPoolInUse(peer string, inUse int) {
	if m == nil {
		return
	}
	m.poolInUse.WithLabelValues(peer).Set(float64(inUse))
}

func (m *peerMetrics) RecordPoolClosed(peer string) {
	if m == nil {
		return
	}
	m.poolClosed.WithLabelValues(peer).Inc()
}
