package server

import (
	"context"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// callerUserIDKey is the metadata key the audit clients put the caller id under.
const callerUserIDKey = "x-user-id"

// LoggingInterceptor creates a gRPC unary interceptor for request/response logging.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("client_addr", clientAddr(ctx)),
		}
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get(callerUserIDKey); len(v) > 0 {
				fields = append(fields, zap.String("user_id", v[0]))
			}
		}

		logger.Debug("gRPC request started", fields...)

		resp, err := handler(ctx, req)
		fields = append(fields, zap.Duration("duration", time.Since(start)))

		if err != nil {
			st, _ := status.FromError(err)
			fields = append(fields,
				zap.String("status_code", st.Code().String()),
				zap.String("status_message", st.Message()))
			switch st.Code() {
			case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
				logger.Error("gRPC request failed", fields...)
			default:
				logger.Warn("gRPC request rejected", fields...)
			}
		} else {
			logger.Info("gRPC request completed", append(fields, zap.String("status_code", codes.OK.String()))...)
		}

		return resp, err
	}
}

// RecoveryInterceptor converts a panic in a handler into codes.Internal.
func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("gRPC handler panic",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

func clientAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "unknown"
}
