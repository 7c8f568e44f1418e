package interceptor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"fleetrent-backend/internal/logger"
	"fleetrent-backend/internal/metrics"
)

// Observability tags the call with a request id, counts it by status code
// and logs failures.
func Observability() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		id := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("x-request-id"); len(v) > 0 {
				id = v[0]
			}
		}
		if id == "" {
			id = uuid.NewString()
		}
		ctx = logger.WithRequestID(ctx, id)

		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		metrics.GRPCRequestsTotal.WithLabelValues(info.FullMethod, code.String()).Inc()
		if err != nil {
			logger.WarnContext(ctx, "gRPC call failed", "method", info.FullMethod, "code", code.String(), "duration", time.Since(start), "error", err)
		} else {
			logger.DebugContext(ctx, "gRPC call", "method", info.FullMethod, "duration", time.Since(start))
		}
		return resp, err
	}
}
