// Package server accepts chat connections and runs their session
// lifecycles: accept, insert into the registry, serve the read loop,
// evict on exit. Frames read by sessions flow into the dispatch queue;
// the server itself never interprets payloads.
//
// Shutdown is graceful with a hard deadline. The listener closes first,
// blocked reads are interrupted so serve loops observe the stop signal,
// then the server waits for sessions to drain before force-closing
// whatever remains.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/pkg/chat/protocol"
	"github.com/quillchat/quill/pkg/chat/session"
	"github.com/quillchat/quill/pkg/metrics"
)

// evictTimeout bounds the Redis cleanup for one departing session. The
// serve context may already be cancelled during shutdown, so eviction
// runs on its own deadline: a draining node still has to clear its
// presence entries.
const evictTimeout = 5 * time.Second

// statsInterval is how often the server refreshes the online-user gauge
// and logs session counts. Bind events happen on the dispatch goroutine
// where the server cannot observe them, so the gauge is sampled.
const statsInterval = 30 * time.Second

// Presence is the slice of the cache the server needs: the node's entry
// in the login-count hash and the per-user node binding cleared when a
// session ends.
type Presence interface {
	SetLoginCount(ctx context.Context, node string, count int64) error
	IncrLoginCount(ctx context.Context, node string, delta int64) (int64, error)
	ClearUserNode(ctx context.Context, uid int64, node string) (bool, error)
}

// Options wires the server's collaborators.
type Options struct {
	// Registry tracks live sessions. The accept loop inserts, the serve
	// loop evicts. Required.
	Registry *session.Registry

	// Sink receives every inbound frame, normally the dispatch queue.
	Sink session.Sink

	// Presence maintains this node's login-count entry and clears user
	// bindings on eviction. May be nil in tests.
	Presence Presence

	// Metrics may be nil to disable collection.
	Metrics metrics.ChatMetrics
}

// Server owns the TCP listener and the connection lifecycle.
type Server struct {
	config Config

	codec    *protocol.Codec
	registry *session.Registry
	sink     session.Sink
	presence Presence
	metrics  metrics.ChatMetrics

	// listener is closed during shutdown to stop accepting.
	listener      net.Listener
	listenerMu    sync.RWMutex
	listenerReady chan struct{}

	// activeConns tracks serve goroutines for the graceful drain.
	activeConns sync.WaitGroup
	connCount   atomic.Int32

	// connSemaphore bounds concurrent connections when MaxConnections
	// is set; nil means unlimited.
	connSemaphore chan struct{}

	shutdown     chan struct{}
	shutdownOnce sync.Once

	// serveCtx is cancelled during shutdown so session read loops stop
	// at the next frame boundary.
	serveCtx    context.Context
	stopServing context.CancelFunc
}

// New builds a server from config and opts. Zero config fields receive
// defaults; an invalid config or missing registry is an error.
func New(config *Config, opts Options) (*Server, error) {
	if config == nil {
		config = &Config{}
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	if opts.Registry == nil {
		return nil, errors.New("server requires a session registry")
	}

	var connSemaphore chan struct{}
	if config.MaxConnections > 0 {
		connSemaphore = make(chan struct{}, config.MaxConnections)
	}

	serveCtx, stopServing := context.WithCancel(context.Background())

	return &Server{
		config:        *config,
		codec:         protocol.NewCodec(uint16(config.MaxPayload.Uint64())),
		registry:      opts.Registry,
		sink:          opts.Sink,
		presence:      opts.Presence,
		metrics:       opts.Metrics,
		listenerReady: make(chan struct{}),
		connSemaphore: connSemaphore,
		shutdown:      make(chan struct{}),
		serveCtx:      serveCtx,
		stopServing:   stopServing,
	}, nil
}

// Name returns the node name used in presence entries.
func (s *Server) Name() string {
	return s.config.Name
}

// ActiveConnections returns the number of live sessions.
func (s *Server) ActiveConnections() int32 {
	return s.connCount.Load()
}

// Addr returns the listen address. It blocks until Serve has bound the
// socket, so tests can dial without polling.
func (s *Server) Addr() string {
	<-s.listenerReady

	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve binds the listener and accepts connections until ctx is
// cancelled or Stop is called, then drains live sessions. It returns
// nil on a clean drain and an error when the drain timed out and
// sessions were force-closed.
func (s *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("chat listener on %s: %w", addr, err)
	}

	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()

	s.resetLoginCount(ctx)
	close(s.listenerReady)

	logger.Info("chat server listening",
		"address", listener.Addr().String(),
		logger.Node(s.config.Name),
	)
	logger.Debug("chat server limits",
		"max_connections", s.config.MaxConnections,
		"max_payload", s.config.MaxPayload.String(),
		"send_queue", s.config.MaxSendQueue,
		"idle_timeout", s.config.IdleTimeout,
	)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("chat server shutdown signal received", logger.Err(ctx.Err()))
			s.initiateShutdown()
		case <-s.shutdown:
		}
	}()

	go s.logStats()

	for {
		// Acquire a connection slot before accepting so the kernel
		// backlog, not the session table, absorbs overload.
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return s.gracefulShutdown()
			}
		}

		conn, err := listener.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}
			select {
			case <-s.shutdown:
				// Expected: the listener was closed to stop accepting.
				return s.gracefulShutdown()
			default:
				logger.Debug("accept failed", logger.Err(err))
				continue
			}
		}

		s.activeConns.Add(1)
		current := s.connCount.Add(1)

		sess := session.New(conn, session.Options{
			Codec:         s.codec,
			Sink:          s.sink,
			Metrics:       s.metrics,
			SendQueueSize: s.config.MaxSendQueue,
			IdleTimeout:   s.config.IdleTimeout,
		})
		s.registry.Insert(sess)

		if s.metrics != nil {
			s.metrics.RecordConnectionAccepted()
			s.metrics.SetActiveSessions(current)
		}
		logger.Debug("connection accepted",
			logger.SessionID(sess.ID()),
			logger.ClientIP(sess.RemoteAddr()),
			"active", current,
		)

		go s.serveSession(sess)
	}
}

// serveSession runs one session's read loop and tears down its
// registrations when the loop ends, for whatever reason it ends.
func (s *Server) serveSession(sess *session.Session) {
	defer func() {
		current := s.connCount.Add(-1)
		if s.connSemaphore != nil {
			<-s.connSemaphore
		}
		if s.metrics != nil {
			s.metrics.RecordConnectionClosed()
			s.metrics.SetActiveSessions(current)
		}
		s.activeConns.Done()
	}()

	sess.Serve(s.serveCtx)
	s.evict(sess)
}

// evict removes the session from the registry and releases its presence
// footprint. Only the session that still owns its user binding clears
// the node entry: a session displaced by a newer login must not wipe
// the entry its successor just wrote.
func (s *Server) evict(sess *session.Session) {
	owned := s.registry.Remove(sess)
	if s.metrics != nil {
		s.metrics.SetOnlineUsers(s.registry.UserCount())
	}

	uid := sess.UID()
	if uid == 0 {
		logger.Debug("session closed before login", logger.SessionID(sess.ID()))
		return
	}

	logger.Info("user session ended",
		logger.UID(uid),
		logger.SessionID(sess.ID()),
		logger.Node(s.config.Name),
	)

	if s.presence == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), evictTimeout)
	defer cancel()

	if owned {
		if _, err := s.presence.ClearUserNode(ctx, uid, s.config.Name); err != nil {
			logger.Warn("presence cleanup failed", logger.UID(uid), logger.Err(err))
		}
	}
	if sess.TakeCounted() {
		if _, err := s.presence.IncrLoginCount(ctx, s.config.Name, -1); err != nil {
			logger.Warn("login count decrement failed", logger.Node(s.config.Name), logger.Err(err))
		}
	}
}

// resetLoginCount zeroes this node's entry in the shared login-count
// hash. A stale count surviving a crash would skew allocation until
// enough sessions cycled to correct it.
func (s *Server) resetLoginCount(ctx context.Context) {
	if s.presence == nil {
		return
	}
	if err := s.presence.SetLoginCount(ctx, s.config.Name, 0); err != nil {
		logger.Warn("login count reset failed", logger.Node(s.config.Name), logger.Err(err))
	}
}

// logStats periodically logs session counts and refreshes the gauges
// that cannot be maintained event-by-event.
func (s *Server) logStats() {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			sessions := s.connCount.Load()
			users := s.registry.UserCount()
			if s.metrics != nil {
				s.metrics.SetActiveSessions(sessions)
				s.metrics.SetOnlineUsers(users)
			}
			logger.Debug("chat server stats",
				"active_sessions", sessions,
				"online_users", users,
			)
		}
	}
}
