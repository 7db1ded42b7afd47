package metrics

import (
	"time"
)

// CacheMetrics provides observability for the Redis layer: lookup
// outcomes per key kind, write-backs after a database fallback, and
// Redis command latency.
//
// This interface is optional. Pass nil to disable collection; all
// callers must tolerate a nil value.
type CacheMetrics interface {
	// RecordHit counts a lookup served from Redis.
	// Kinds: "profile", "name", "token", "presence".
	RecordHit(kind string)

	// RecordMiss counts a lookup that fell through to the database.
	RecordMiss(kind string)

	// RecordWriteBack counts a profile written back to Redis after a
	// database fallback.
	RecordWriteBack(kind string)

	// RecordError counts a Redis command failure by operation name.
	// Failures degrade to misses; they never fail the request.
	RecordError(op string)

	// ObserveCommand records the latency of one Redis command.
	ObserveCommand(op string, duration time.Duration)
}
