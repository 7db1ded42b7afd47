// Package session implements the per-connection chat session: a framed
// read loop feeding the dispatch sink, and an ordered, bounded, lossy
// outbound queue drained by a single writer goroutine.
//
// A session is created by the server for every accepted connection. The
// server runs Serve on its own goroutine and performs registry eviction
// when Serve returns. Notifications reach the session from arbitrary
// goroutines through Send, which never blocks: when the outbound queue
// is full or the session is closed, frames are dropped.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/pkg/bufpool"
	"github.com/quillchat/quill/pkg/chat/protocol"
	"github.com/quillchat/quill/pkg/metrics"
)

// DefaultSendQueueSize bounds the per-session outbound queue. A slow
// consumer loses notifications instead of stalling the goroutines that
// produce them.
const DefaultSendQueueSize = 1000

// Message is one inbound frame bound to the session that read it.
// Payload is a pooled buffer; whoever consumes or drops the message
// must return it via bufpool.Put.
type Message struct {
	Sess    *Session
	ID      uint16
	Payload []byte
}

// Sink receives inbound frames from session read loops. Push reports
// whether it took ownership of the message and its payload buffer.
type Sink interface {
	Push(m *Message) bool
}

// Options configures a session. The zero value is usable for tests:
// default codec, default queue size, no sink, no timeouts, no metrics.
type Options struct {
	Codec         *protocol.Codec
	Sink          Sink
	Metrics       metrics.ChatMetrics
	SendQueueSize int
	IdleTimeout   time.Duration // 0 disables the per-read deadline
	WriteTimeout  time.Duration // 0 disables the per-write deadline
}

// Session is one client connection. All methods are safe for concurrent
// use.
type Session struct {
	id   string
	conn net.Conn

	codec   *protocol.Codec
	sink    Sink
	metrics metrics.ChatMetrics

	idleTimeout  time.Duration
	writeTimeout time.Duration

	sendq      chan []byte
	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
	closed     atomic.Bool

	// uid is the user bound to this session after a successful login;
	// 0 means unbound.
	uid atomic.Int64

	// counted marks that this session contributed to the node's login
	// count. The flag moves true exactly once and back exactly once, so
	// the count never drifts when logins race eviction.
	counted atomic.Bool
}

// New wraps an accepted connection in a session and starts its writer
// goroutine. The caller must eventually call Close, directly or by
// letting Serve return.
func New(conn net.Conn, opts Options) *Session {
	codec := opts.Codec
	if codec == nil {
		codec = protocol.NewCodec(0)
	}
	queueSize := opts.SendQueueSize
	if queueSize <= 0 {
		queueSize = DefaultSendQueueSize
	}

	s := &Session{
		id:           uuid.NewString(),
		conn:         conn,
		codec:        codec,
		sink:         opts.Sink,
		metrics:      opts.Metrics,
		idleTimeout:  opts.IdleTimeout,
		writeTimeout: opts.WriteTimeout,
		sendq:        make(chan []byte, queueSize),
		done:         make(chan struct{}),
		writerDone:   make(chan struct{}),
	}

	go s.writeLoop()
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// RemoteAddr returns the client address for logging.
func (s *Session) RemoteAddr() string {
	if addr := s.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// UID returns the bound user id, or 0 when no login has completed.
func (s *Session) UID() int64 {
	return s.uid.Load()
}

// BindUID records the user this session authenticated as.
func (s *Session) BindUID(uid int64) {
	s.uid.Store(uid)
}

// MarkCounted records that this session incremented the node's login
// count. It reports false when the session already holds the mark.
func (s *Session) MarkCounted() bool {
	return s.counted.CompareAndSwap(false, true)
}

// TakeCounted consumes the login count contribution. The caller must
// decrement the count exactly when it returns true.
func (s *Session) TakeCounted() bool {
	return s.counted.CompareAndSwap(true, false)
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// Close terminates the session: the connection is closed, the read and
// writer loops unwind, and queued outbound frames are discarded. Safe
// to call from any goroutine, repeatedly.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		if err := s.conn.Close(); err != nil {
			logger.Debug("session connection close", logger.SessionID(s.id), logger.Err(err))
		}
	})
}

// SetReadDeadline interrupts a blocked read. The server uses it during
// shutdown so sessions notice the stop signal without waiting for
// client traffic.
func (s *Session) SetReadDeadline(t time.Time) error {
	return s.conn.SetReadDeadline(t)
}

// Serve runs the read loop until the client hangs up, the connection
// fails, a protocol violation occurs, or the session is closed. It
// always returns with the session closed; the caller performs registry
// eviction afterwards.
func (s *Session) Serve(ctx context.Context) {
	defer s.Close()
	defer s.recoverPanic()

	clientAddr := s.RemoteAddr()
	var hdr [protocol.HeaderLen]byte

	for {
		select {
		case <-ctx.Done():
			logger.Debug("session stopped by context", logger.SessionID(s.id), logger.ClientIP(clientAddr))
			return
		case <-s.done:
			return
		default:
		}

		if s.idleTimeout > 0 {
			if err := s.conn.SetReadDeadline(time.Now().Add(s.idleTimeout)); err != nil {
				logger.Debug("session set read deadline", logger.SessionID(s.id), logger.Err(err))
				return
			}
		}

		if _, err := io.ReadFull(s.conn, hdr[:]); err != nil {
			s.logReadEnd(clientAddr, err)
			return
		}

		id, length, err := s.codec.DecodeHeader(hdr[:])
		if err != nil {
			// Framing is unrecoverable: the stream position is lost.
			logger.Warn("invalid frame header, closing session",
				logger.SessionID(s.id), logger.ClientIP(clientAddr), logger.Err(err))
			return
		}

		payload := bufpool.GetUint16(length)
		if _, err := io.ReadFull(s.conn, payload); err != nil {
			bufpool.Put(payload)
			s.logReadEnd(clientAddr, err)
			return
		}

		if s.metrics != nil {
			s.metrics.RecordMessageReceived(protocol.MsgName(id))
		}
		logger.Debug("frame received",
			logger.SessionID(s.id), logger.MsgID(id), logger.PayloadLen(int(length)))

		msg := &Message{Sess: s, ID: id, Payload: payload}
		if s.sink == nil || !s.sink.Push(msg) {
			bufpool.Put(payload)
		}
	}
}

// Send encodes and queues one frame for delivery. Frames are written in
// queue order with a single in-flight write. When the queue is full or
// the session is closed the frame is dropped; Send never blocks.
func (s *Session) Send(id uint16, payload []byte) {
	frame, err := s.codec.Encode(id, payload)
	if err != nil {
		logger.Error("frame encode failed",
			logger.SessionID(s.id), logger.MsgID(id), logger.Err(err))
		return
	}

	if s.closed.Load() {
		if s.metrics != nil {
			s.metrics.RecordSendDropped("closed")
		}
		logger.Debug("send on closed session", logger.SessionID(s.id), logger.MsgID(id))
		return
	}

	select {
	case s.sendq <- frame:
		if s.metrics != nil {
			s.metrics.RecordMessageSent(protocol.MsgName(id))
		}
	default:
		if s.metrics != nil {
			s.metrics.RecordSendDropped("queue_full")
		}
		logger.Warn("send queue full, dropping frame",
			logger.SessionID(s.id), logger.MsgID(id), logger.QueueLen(len(s.sendq)))
	}
}

// SendJSON marshals v and sends it as the payload of id.
func (s *Session) SendJSON(id uint16, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("reply marshal failed",
			logger.SessionID(s.id), logger.MsgID(id), logger.Err(err))
		return
	}
	s.Send(id, data)
}

// writeLoop drains the send queue onto the wire, one frame at a time.
// A write failure closes the session; queued frames are abandoned.
func (s *Session) writeLoop() {
	defer close(s.writerDone)

	for {
		select {
		case <-s.done:
			return
		case frame := <-s.sendq:
			if err := s.writeFrame(frame); err != nil {
				logger.Debug("session write failed",
					logger.SessionID(s.id), logger.Err(err))
				s.Close()
				return
			}
		}
	}
}

func (s *Session) writeFrame(frame []byte) error {
	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := s.conn.Write(frame)
	return err
}

// logReadEnd classifies why the read loop ended. Client disconnects and
// timeouts are routine and logged at debug level.
func (s *Session) logReadEnd(clientAddr string, err error) {
	switch {
	case errors.Is(err, io.EOF):
		logger.Debug("session closed by client",
			logger.SessionID(s.id), logger.ClientIP(clientAddr))
	case isTimeout(err):
		logger.Debug("session idle timeout",
			logger.SessionID(s.id), logger.ClientIP(clientAddr))
	case s.closed.Load():
		logger.Debug("session read interrupted by close", logger.SessionID(s.id))
	default:
		logger.Debug("session read failed",
			logger.SessionID(s.id), logger.ClientIP(clientAddr), logger.Err(err))
	}
}

func (s *Session) recoverPanic() {
	if r := recover(); r != nil {
		logger.Error("panic in session read loop",
			logger.SessionID(s.id), "error", r, "stack", string(debug.Stack()))
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
