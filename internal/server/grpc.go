package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"storefront/backend/internal/server/interceptors"
	"storefront/backend/internal/telemetry"
)

// healthCheckMethods are not emitted as telemetry; orchestrators call them constantly.
var healthCheckMethods = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
}

// NewGRPCServer returns the gRPC server carrying the standard health service backed by health.
// Calls are traced through otelgrpc and emitted as grpc_request telemetry. Reflection is registered
// so grpcurl and health checkers can discover the service.
func NewGRPCServer(emitter telemetry.EventEmitter, health *grpchealth.Server) *grpc.Server {
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors.TelemetryUnary(emitter, healthCheckMethods)),
	)
	healthpb.RegisterHealthServer(s, health)
	reflection.Register(s)
	return s
}
