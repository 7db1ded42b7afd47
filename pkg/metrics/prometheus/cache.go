package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/quillchat/quill/pkg/metrics"
)

// cacheMetrics is the Prometheus implementation of metrics.CacheMetrics.
type cacheMetrics struct {
	lookups         *prometheus.CounterVec
	writeBacks      *prometheus.CounterVec
	errors          *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
}

// NewCacheMetrics creates a new Prometheus-backed CacheMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewCacheMetrics() metrics.CacheMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &cacheMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_cache_lookups_total",
				Help: "Cache lookups by key kind and outcome",
			},
			[]string{"kind", "status"}, // status: "hit", "miss"
		),
		writeBacks: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_cache_write_backs_total",
				Help: "Values written back to Redis after a database fallback",
			},
			[]string{"kind"},
		),
		errors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_cache_errors_total",
				Help: "Redis command failures by operation",
			},
			[]string{"op"},
		),
		commandDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "quill_cache_command_duration_milliseconds",
				Help: "Redis command latency in milliseconds",
				Buckets: []float64{
					0.1,
					0.5,
					1,
					2,
					5,
					10,
					50,
					100,
				},
			},
			[]string{"op"},
		),
	}
}

func (m *cacheMetrics) RecordHit(kind string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(kind, "hit").Inc()
}

func (m *cacheMetrics) RecordMiss(kind string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(kind, "miss").Inc()
}

func (m *cacheMetrics) RecordWriteBack(kind string) {
	if m == nil {
		return
	}
	m.writeBacks.WithLabelValues(kind).Inc()
}

func (m *cacheMetrics) RecordError(op string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(op).Inc()
}

func (m *cacheMetrics) ObserveCommand(op string, duration time.Duration) {
	if m == nil {
		return
	}
	m.commandDuration.WithLabelValues(op).Observe(duration.Seconds() * 1000)
}
