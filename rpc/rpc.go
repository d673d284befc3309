package rpc

import (
	"context"
	"errors"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/wfunc/relicroom/apperr"
	"github.com/wfunc/relicroom/logger"
)

// ServiceName is the health service name reported alongside the
// server-wide "" entry.
const ServiceName = "relicroom.Coordinator"

// Server manages the gRPC listener. It serves the standard health service
// so orchestrators can probe the coordinator.
type Server struct {
	listener   net.Listener
	address    string
	grpcServer *grpc.Server
	health     *health.Server
}

// NewServer listens on addr and registers the health service.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(UnaryErrors))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	s := &Server{
		listener:   listener,
		address:    listener.Addr().String(),
		grpcServer: grpcServer,
		health:     healthServer,
	}
	s.SetServing(false)
	return s, nil
}

// Addr is the bound listener address.
func (s *Server) Addr() string {
	return s.address
}

// GRPC exposes the underlying server so more services can be registered
// before Start.
func (s *Server) GRPC() *grpc.Server {
	return s.grpcServer
}

// SetServing flips the reported health of the coordinator.
func (s *Server) SetServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Start serves until Stop. It blocks.
func (s *Server) Start() error {
	logger.Log.Infof("gRPC server listening on %s", s.address)
	err := s.grpcServer.Serve(s.listener)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Stop reports NOT_SERVING and drains in-flight calls for up to grace.
func (s *Server) Stop(grace time.Duration) {
	logger.Log.Info("Stopping gRPC server.")
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		s.grpcServer.Stop()
	}
}

// UnaryErrors logs failed calls and converts plain errors into gRPC
// statuses; unknown errors become Internal.
func UnaryErrors(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err == nil {
		return resp, nil
	}
	logger.Log.Debugw("rpc failed", "method", info.FullMethod, "took", time.Since(start), "error", err)
	if _, ok := status.FromError(err); ok {
		return nil, err
	}
	return nil, apperr.Status(err).Err()
}
