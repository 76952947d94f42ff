package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/labs-tracker/internal/common"
)

// NewGRPCServer builds a server with the extraction, health and reflection
// services registered. The returned health server reports SERVING.
func NewGRPCServer(svc ExtractionServer, maxRecvBytes int, logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(requestLogger(logger))}
	if maxRecvBytes > 0 {
		// leave room for the protobuf envelope
		opts = append(opts, grpc.MaxRecvMsgSize(maxRecvBytes+4096))
	}
	s := grpc.NewServer(opts...)
	RegisterExtractionServer(s, svc)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	// Reflection for grpcurl
	reflection.Register(s)
	return s, hs
}

// requestLogger tags each call with a request id and logs its outcome.
func requestLogger(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		id := metadataValue(ctx, RequestIDMetadata)
		if id == "" {
			id = uuid.NewString()
		}
		ctx = common.WithRequestID(ctx, id)

		resp, err := handler(ctx, req)
		logger.Info("grpc.request",
			"method", info.FullMethod,
			"request_id", id,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds())
		return resp, err
	}
}
