package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const defaultPort = 50051

type Option func(*settings)

type settings struct {
	host       string
	port       int
	logger     *zap.Logger
	reflection bool
	logging    bool
	recovery   bool
}

// WithPort sets the listening port. 0 asks the kernel for a free one.
func WithPort(port int) Option {
	return func(s *settings) { s.port = port }
}

// WithHost binds to a single interface instead of all of them.
func WithHost(host string) Option {
	return func(s *settings) { s.host = host }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithReflection registers the reflection service. Only services backed by a
// registered proto file descriptor, such as health, can be described through
// it; services with hand-written descriptors are listed by name only.
func WithReflection(enabled bool) Option {
	return func(s *settings) { s.reflection = enabled }
}

func WithLogging(enabled bool) Option {
	return func(s *settings) { s.logging = enabled }
}

// WithRecovery turns handler panics into codes.Internal.
func WithRecovery(enabled bool) Option {
	return func(s *settings) { s.recovery = enabled }
}

// Server hosts the audit gRPC services together with the standard health service.
type Server struct {
	grpcServer   *grpc.Server
	lis          net.Listener
	logger       *zap.Logger
	healthServer *health.Server
}

func New(opts ...Option) (*Server, error) {
	cfg := settings{port: defaultPort, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.port < 0 || cfg.port > 65535 {
		return nil, fmt.Errorf("invalid port %d: must be between 0 and 65535", cfg.port)
	}

	addr := net.JoinHostPort(cfg.host, strconv.Itoa(cfg.port))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	var chain []grpc.UnaryServerInterceptor
	// recovery sits outermost so the logging interceptor sees the converted error
	if cfg.recovery {
		chain = append(chain, RecoveryInterceptor(cfg.logger))
	}
	if cfg.logging {
		chain = append(chain, LoggingInterceptor(cfg.logger))
	}

	var serverOpts []grpc.ServerOption
	if len(chain) > 0 {
		serverOpts = append(serverOpts, grpc.ChainUnaryInterceptor(chain...))
	}
	gs := grpc.NewServer(serverOpts...)

	if cfg.reflection {
		reflection.Register(gs)
	}

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return &Server{
		grpcServer:   gs,
		lis:          lis,
		logger:       cfg.logger.Named("grpc-server"),
		healthServer: hs,
	}, nil
}

// RegisterServiceWithHealth registers a service and reports it as serving.
func (s *Server) RegisterServiceWithHealth(serviceName string, register func(*grpc.Server)) {
	register(s.grpcServer)
	if serviceName == "" {
		return
	}
	s.healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	s.logger.Info("service registered", zap.String("service", serviceName))
}

// MarkServing flips the health status of a registered service.
func (s *Server) MarkServing(serviceName string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.healthServer.SetServingStatus(serviceName, status)
	s.logger.Info("service health changed",
		zap.String("service", serviceName),
		zap.Stringer("status", status))
}

// Start serves in the background and returns immediately.
func (s *Server) Start() {
	addr := s.lis.Addr().String()
	go func() {
		if err := s.grpcServer.Serve(s.lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.logger.Error("gRPC server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	s.logger.Info("gRPC server listening", zap.String("addr", addr))
}

// Shutdown marks every service as not serving, drains in-flight calls and
// falls back to a hard stop when ctx expires first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.healthServer.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("gRPC server stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("gRPC drain timed out, forcing stop")
		s.grpcServer.Stop()
		return ctx.Err()
	}
}

// Stop is Shutdown bounded by timeout.
func (s *Server) Stop(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		s.logger.Warn("gRPC shutdown incomplete", zap.Error(err))
	}
}

func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}
