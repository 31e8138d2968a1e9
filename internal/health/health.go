// Package health serves the standard gRPC health protocol for the store.
// A probe runs on a ticker and flips every registered service between
// SERVING and NOT_SERVING.
package health

import (
	"context"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/campuspass/server/internal/logging"
)

// ServiceName is the health service name reported alongside the overall
// ("") status.
const ServiceName = "campuspass.PassageStore"

type Probe func(ctx context.Context) error

type Server struct {
	grpc     *grpc.Server
	health   *grpchealth.Server
	probe    Probe
	interval time.Duration
	logger   *slog.Logger
	serving  atomic.Bool
}

func NewServer(probe Probe, interval time.Duration, logger *slog.Logger) *Server {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Discard()
	}

	hs := grpchealth.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	s := &Server{
		grpc:     gs,
		health:   hs,
		probe:    probe,
		interval: interval,
		logger:   logger,
	}
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Refresh runs the probe once and publishes the result.
func (s *Server) Refresh(ctx context.Context) {
	if err := s.probe(ctx); err != nil {
		if s.serving.Swap(false) {
			s.logger.WarnContext(ctx, "store health degraded", logging.Err(err))
		}
		s.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	if !s.serving.Swap(true) {
		s.logger.InfoContext(ctx, "store healthy")
	}
	s.set(healthpb.HealthCheckResponse_SERVING)
}

// Run refreshes until ctx is done, then marks everything NOT_SERVING.
func (s *Server) Run(ctx context.Context) {
	s.Refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

func (s *Server) set(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
