package server

import (
	"context"
	"fmt"
	"time"

	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/pkg/chat/session"
)

// initiateShutdown begins graceful shutdown. Safe to call multiple
// times and from multiple goroutines.
//
// Sequence:
//  1. Close the shutdown channel (stops the accept loop).
//  2. Close the listener (no new connections).
//  3. Interrupt blocked session reads so serve loops notice quickly.
//  4. Cancel the serve context (read loops stop at the frame boundary).
func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("chat server shutdown initiated")

		close(s.shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("chat listener close", logger.Err(err))
			}
		}
		s.listenerMu.Unlock()

		s.interruptReads()
		s.stopServing()
	})
}

// interruptReads puts a short deadline on every live session so blocked
// reads return and the serve loops observe the stop signal instead of
// waiting out the idle timeout.
func (s *Server) interruptReads() {
	deadline := time.Now().Add(100 * time.Millisecond)

	s.registry.Range(func(sess *session.Session) bool {
		if err := sess.SetReadDeadline(deadline); err != nil {
			logger.Debug("set shutdown deadline",
				logger.SessionID(sess.ID()), logger.Err(err))
		}
		return true
	})
}

// gracefulShutdown waits for live sessions to drain, force-closing
// whatever remains when ShutdownTimeout expires. Each drained session
// runs its normal eviction, so presence entries and login counts are
// released before the process exits.
func (s *Server) gracefulShutdown() error {
	active := s.connCount.Load()
	logger.Info("chat server draining sessions",
		"active", active,
		"timeout", s.config.ShutdownTimeout,
	)

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("chat server drained, all sessions closed")
		return nil

	case <-time.After(s.config.ShutdownTimeout):
		remaining := s.connCount.Load()
		logger.Warn("chat server drain timeout, forcing closure",
			"active", remaining,
			"timeout", s.config.ShutdownTimeout,
		)
		s.forceCloseSessions()
		return fmt.Errorf("chat shutdown timeout: %d sessions force-closed", remaining)
	}
}

// forceCloseSessions closes every session still in the registry. Close
// unblocks any in-flight read or write, so serve goroutines exit and
// run their eviction on the way out.
func (s *Server) forceCloseSessions() {
	closed := 0
	s.registry.Range(func(sess *session.Session) bool {
		sess.Close()
		closed++
		if s.metrics != nil {
			s.metrics.RecordConnectionForceClosed()
		}
		return true
	})

	if closed > 0 {
		logger.Info("force-closed sessions", "count", closed)
	}
}

// Stop initiates graceful shutdown and waits for live sessions to
// drain. With a nil ctx the configured ShutdownTimeout applies;
// otherwise Stop returns when ctx is done, leaving remaining sessions
// to the force-close in Serve's own shutdown path.
//
// Safe to call multiple times and concurrently with Serve.
func (s *Server) Stop(ctx context.Context) error {
	s.initiateShutdown()

	if ctx == nil {
		return s.gracefulShutdown()
	}

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("chat server drained, all sessions closed")
		return nil
	case <-ctx.Done():
		remaining := s.connCount.Load()
		logger.Warn("chat server stop cancelled",
			"active", remaining, logger.Err(ctx.Err()))
		return ctx.Err()
	}
}
