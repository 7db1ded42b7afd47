package rpc

import (
	"context"
	"net"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/quillchat/quill/internal/logger"
)

// Server hosts the PeerNotify service on the node's RPC port.
type Server struct {
	grpc *grpc.Server
}

// NewServer builds a gRPC server with the notify service registered.
// Handlers run behind a recovery interceptor so a delivery panic never
// takes the transport down.
func NewServer(svc PeerNotifyServer) *Server {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(recoveryUnary, loggingUnary),
	)
	RegisterPeerNotifyServer(s, svc)
	return &Server{grpc: s}
}

// Serve accepts peer calls on lis until the context is cancelled or
// the listener fails. Cancellation drains in-flight calls through
// GracefulStop and returns nil.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	logger.Info("peer rpc server listening", logger.ClientIP(lis.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpc.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.grpc.GracefulStop()
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// GracefulStop stops accepting new calls and blocks until in-flight
// calls complete.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

func recoveryUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "panic in peer rpc handler",
				logger.Method(info.FullMethod),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = status.Errorf(codes.Internal, "panic in %s", info.FullMethod)
		}
	}()
	return handler(ctx, req)
}

func loggingUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	logger.DebugCtx(ctx, "peer rpc handled",
		logger.Method(info.FullMethod),
		logger.DurationMs(float64(time.Since(start).Microseconds())/1000),
		logger.Err(err),
	)
	return resp, err
}
