// Package healthcheck exposes database reachability over the standard gRPC
// health protocol.
package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// ServiceName is the named service reported alongside the overall status.
const ServiceName = "cohub"

const (
	defaultInterval = 15 * time.Second
	pingTimeout     = 2 * time.Second
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves grpc.health.v1.Health, flipping between SERVING and
// NOT_SERVING as the pinger succeeds or fails.
type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	pinger   Pinger
	interval time.Duration
	logger   *slog.Logger
}

// NewServer creates a health server. A non-positive interval uses 15s.
func NewServer(pinger Pinger, interval time.Duration, logger *slog.Logger) *Server {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	gs := grpc.NewServer(grpc.KeepaliveParams(keepalive.ServerParameters{
		Time:    2 * time.Minute,
		Timeout: 10 * time.Second,
	}))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{
		grpc:     gs,
		health:   hs,
		pinger:   pinger,
		interval: interval,
		logger:   logger,
	}
}

// Serve blocks until ctx is cancelled or the listener fails.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.update(ctx)
	go s.monitor(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpc.Serve(lis)
	}()
	s.logger.Info("gRPC health server listening", "addr", lis.Addr().String())

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpc.GracefulStop()
		if err := <-errCh; err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	}
}

func (s *Server) monitor(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.update(ctx)
		}
	}
}

func (s *Server) update(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := s.pinger.Ping(pingCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("Health ping failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
