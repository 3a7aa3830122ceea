package observability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"video-digest-service/internal/observability/logging"
	"video-digest-service/internal/observability/metrics"
)

// The digest gRPC surface serves health checks and reflection, so calls are
// probes from orchestrators and grpcurl. Each one is counted in
// video_digest_grpc_calls_total by method and status code.

// UnaryServerInterceptor records health Check and reflection calls.
func UnaryServerInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	logger := logging.WithComponent("grpc")
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		observeCall(m, logger.Debug(), info.FullMethod, start, err)
		return resp, err
	}
}

// StreamServerInterceptor records health Watch streams, which stay open
// until the client leaves or the server stops.
func StreamServerInterceptor(m *metrics.Metrics) grpc.StreamServerInterceptor {
	logger := logging.WithComponent("grpc")
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		observeCall(m, logger.Info(), info.FullMethod, start, err)
		return err
	}
}

func observeCall(m *metrics.Metrics, ev *zerolog.Event, method string, start time.Time, err error) {
	elapsed := time.Since(start)
	code := status.Code(err).String()
	m.RecordGRPCCall(method, code, elapsed.Seconds())

	ev.Str("method", method).
		Str("code", code).
		Dur("duration", elapsed).
		Msg("gRPC probe served")
}
