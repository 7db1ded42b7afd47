// Package dispatch serializes inbound frames through a single consumer.
//
// Every session read loop pushes into one shared queue; one goroutine
// pops frames and runs the registered handler for each message id.
// Handler code therefore never races with itself, which keeps the
// business logic free of locks. The queue is bounded: under overload
// new frames are dropped with a warning rather than stalling the read
// loops that feed it.
package dispatch

import (
	"context"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/internal/telemetry"
	"github.com/quillchat/quill/pkg/bufpool"
	"github.com/quillchat/quill/pkg/chat/protocol"
	"github.com/quillchat/quill/pkg/chat/session"
	"github.com/quillchat/quill/pkg/metrics"
)

// DefaultMaxQueue bounds the dispatch backlog. Roughly ten frames for
// every session a loaded node carries.
const DefaultMaxQueue = 10000

// HandlerFunc processes one inbound frame and returns the error code it
// replied with. Handlers send their reply through m.Sess and must never
// close the session: protocol errors are answered, not punished.
type HandlerFunc func(ctx context.Context, m *session.Message) protocol.ErrorCode

// Queue is the single-consumer dispatch queue. Push may be called from
// any goroutine; Run must be called from exactly one.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []*session.Message
	stopped bool
	max     int

	handlers map[uint16]HandlerFunc
	metrics  metrics.ChatMetrics
}

// NewQueue creates a queue holding at most max frames. A max of zero or
// less selects DefaultMaxQueue.
func NewQueue(max int, m metrics.ChatMetrics) *Queue {
	if max <= 0 {
		max = DefaultMaxQueue
	}
	q := &Queue{
		max:      max,
		handlers: make(map[uint16]HandlerFunc),
		metrics:  m,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Register binds a handler to a message id. Registration happens during
// startup, before Run; later calls would race the consumer.
func (q *Queue) Register(id uint16, h HandlerFunc) {
	q.handlers[id] = h
}

// Push enqueues an inbound frame and reports whether the queue took
// ownership of it. Frames pushed after Stop, or while the queue is
// full, are refused and the caller keeps the payload buffer.
func (q *Queue) Push(m *session.Message) bool {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		if q.metrics != nil {
			q.metrics.RecordDispatchDropped("stopped")
		}
		logger.Debug("dispatch stopped, dropping frame",
			logger.MsgID(m.ID), logger.SessionID(m.Sess.ID()))
		return false
	}
	if len(q.items) >= q.max {
		q.mu.Unlock()
		if q.metrics != nil {
			q.metrics.RecordDispatchDropped("overflow")
		}
		logger.Warn("dispatch queue full, dropping frame",
			logger.MsgID(m.ID), logger.SessionID(m.Sess.ID()), logger.QueueLen(q.max))
		return false
	}

	q.items = append(q.items, m)
	depth := len(q.items)
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.SetDispatchQueueDepth(depth)
	}
	// Only the empty-to-non-empty transition can find the consumer
	// asleep, so only that transition needs to signal.
	if depth == 1 {
		q.cond.Signal()
	}
	return true
}

// Run consumes the queue until Stop is called. Stop does not abandon
// accepted work: whatever is queued at that point is still dispatched
// before Run returns. ctx flows into handlers for their store and cache
// calls.
func (q *Queue) Run(ctx context.Context) {
	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.stopped {
			q.cond.Wait()
		}
		if q.stopped {
			rest := q.items
			q.items = nil
			q.mu.Unlock()

			for _, m := range rest {
				q.dispatch(ctx, m)
			}
			if q.metrics != nil {
				q.metrics.SetDispatchQueueDepth(0)
			}
			logger.Debug("dispatch queue drained", logger.QueueLen(len(rest)))
			return
		}

		m := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		depth := len(q.items)
		q.mu.Unlock()

		if q.metrics != nil {
			q.metrics.SetDispatchQueueDepth(depth)
		}
		q.dispatch(ctx, m)
	}
}

// Stop makes the queue refuse new frames and wakes the consumer so it
// can drain and return. Safe to call multiple times.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Len returns the current backlog.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// dispatch runs the handler for one frame and returns its payload
// buffer to the pool. Unknown message ids are dropped without closing
// the session that sent them.
func (q *Queue) dispatch(ctx context.Context, m *session.Message) {
	defer bufpool.Put(m.Payload)

	h, ok := q.handlers[m.ID]
	if !ok {
		if q.metrics != nil {
			q.metrics.RecordDispatchDropped("unknown_msg")
		}
		logger.Warn("no handler for message",
			logger.MsgID(m.ID), logger.SessionID(m.Sess.ID()))
		return
	}

	lc := logger.NewLogContext(m.Sess.ID(), m.Sess.RemoteAddr()).WithMsg(m.ID)
	if uid := m.Sess.UID(); uid != 0 {
		lc = lc.WithUser(uid)
	}
	hctx := logger.WithContext(ctx, lc)

	hctx, span := telemetry.StartChatSpan(hctx, protocol.MsgName(m.ID),
		telemetry.MsgID(m.ID),
		telemetry.SessionID(m.Sess.ID()),
		telemetry.ClientAddr(m.Sess.RemoteAddr()),
		telemetry.PayloadSize(len(m.Payload)))
	defer span.End()
	if uid := m.Sess.UID(); uid != 0 {
		span.SetAttributes(telemetry.UID(uid))
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			if q.metrics != nil {
				q.metrics.RecordHandlerDuration(protocol.MsgName(m.ID), time.Since(start), "panic")
			}
			logger.ErrorCtx(hctx, "panic in message handler",
				"error", r, "stack", string(debug.Stack()))
		}
	}()

	code := h(hctx, m)

	span.SetAttributes(telemetry.Code(int(code)))
	elapsed := time.Since(start)
	if q.metrics != nil {
		q.metrics.RecordHandlerDuration(protocol.MsgName(m.ID), elapsed, strconv.Itoa(int(code)))
	}
	logger.DebugCtx(hctx, "message handled",
		logger.ErrorCode(int(code)), logger.DurationMs(elapsed.Seconds()*1000))
}
