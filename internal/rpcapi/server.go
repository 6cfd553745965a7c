package rpcapi

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/novafn/novafn/internal/logging"
	"google.golang.org/grpc"
)

// Server wraps a grpc.Server configured with the hand-rolled FunctionService
// descriptor, with a New/Start/Stop lifecycle.
type Server struct {
	registry Registry
	invoker  Invoker
	log      *logging.Logger
	server   *grpc.Server
}

// New constructs a Server.
func New(registry Registry, invoker Invoker, log *logging.Logger) *Server {
	return &Server{registry: registry, invoker: invoker, log: log}
}

// Start listens on addr and serves FunctionService until Stop is called.
// It returns once the listener is bound; serving happens on a goroutine.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.server = grpc.NewServer(
		grpc.ChainUnaryInterceptor(loggingInterceptor(s.log)),
	)
	s.server.RegisterService(serviceDescPtr(ServiceDesc(s.registry, s.invoker, s.log)), nil)

	s.log.Info("rpc server started", "addr", addr)
	go func() {
		if err := s.server.Serve(lis); err != nil {
			s.log.Error("rpc server stopped", "error", err)
		}
	}()
	return nil
}

// Stop gracefully stops the gRPC server.
func (s *Server) Stop() {
	if s.server != nil {
		s.server.GracefulStop()
	}
}

func serviceDescPtr(desc grpc.ServiceDesc) *grpc.ServiceDesc { return &desc }

// loggingInterceptor logs every RPC's method, duration and outcome.
func loggingInterceptor(log *logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		duration := time.Since(start)

		if err != nil {
			log.Error("rpc request failed", "method", info.FullMethod, "duration", duration, "error", err)
		} else {
			log.Info("rpc request completed", "method", info.FullMethod, "duration", duration)
		}
		return resp, err
	}
}
