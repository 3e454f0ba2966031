package middleware

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/brewops/brewops-server/internal/logger"
)

// Logging is a unary interceptor that logs gRPC requests and results.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// HandleGRPC logs method name, duration and status for each unary request.
// Errors without a gRPC status are returned as codes.Internal. Health probes
// are logged at debug level.
func (l *Logging) HandleGRPC(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	statusCode := codes.OK
	if err != nil {
		st, ok := status.FromError(err)
		if !ok {
			st = status.New(codes.Internal, err.Error())
			err = st.Err()
		}
		statusCode = st.Code()
	}

	attrs := []any{
		"method", info.FullMethod,
		"duration_ms", time.Since(start).Milliseconds(),
		"status", statusCode.String(),
	}

	switch {
	case err != nil:
		l.logger.Error("gRPC request failed", append(attrs, "error", err.Error())...)
	case isHealthProbe(info.FullMethod):
		l.logger.Debug("gRPC request completed", attrs...)
	default:
		l.logger.Info("gRPC request completed", attrs...)
	}

	return resp, err
}

func isHealthProbe(method string) bool {
	return method == "/grpc.health.v1.Health/Check"
}
