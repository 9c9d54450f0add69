package httpapi

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"posturewatch.org/internal/obs"
)

const serviceName = "posturewatch-api"

// GRPCServer exposes the standard gRPC health service backed by the readiness probe.
type GRPCServer struct {
	grpc_health_v1.UnimplementedHealthServer

	readiness readinessChecker
	version   string
}

// NewGRPCServer creates the gRPC service wrapper.
func NewGRPCServer(r readinessChecker, version string) *GRPCServer {
	return &GRPCServer{
		readiness: r,
		version:   version,
	}
}

// Check evaluates readiness and reports SERVING or NOT_SERVING.
func (s *GRPCServer) Check(ctx context.Context, _ *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	if err := s.readiness.Check(ctx); err != nil {
		obs.SetReady(false)
		return &grpc_health_v1.HealthCheckResponse{
			Status: grpc_health_v1.HealthCheckResponse_NOT_SERVING,
		}, nil
	}
	obs.SetReady(true)
	return &grpc_health_v1.HealthCheckResponse{
		Status: grpc_health_v1.HealthCheckResponse_SERVING,
	}, nil
}

// Watch streams the health status on a fixed interval until the client goes away.
func (s *GRPCServer) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		resp, err := s.Check(stream.Context(), req)
		if err != nil {
			return status.Errorf(codes.Internal, "health check: %v", err)
		}
		if err := stream.Send(resp); err != nil {
			return err
		}
		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		case <-ticker.C:
		}
	}
}
