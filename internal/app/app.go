package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	pb "github.com/godilite/service-audit/api/v1"
	"github.com/godilite/service-audit/internal/config"
	"github.com/godilite/service-audit/internal/events"
	handler "github.com/godilite/service-audit/internal/grpc"
	"github.com/godilite/service-audit/internal/httpapi"
	"github.com/godilite/service-audit/internal/repository"
	"github.com/godilite/service-audit/internal/service"
	"github.com/godilite/service-audit/pkg/cache"
	dbbuilder "github.com/godilite/service-audit/pkg/database"
	grpcsrv "github.com/godilite/service-audit/pkg/grpc/server"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const auditServiceName = "audit.v1.AuditScoring"

type App struct {
	logger          *zap.Logger
	dbPool          *sql.DB
	cache           *cache.Cache
	publisher       events.Publisher
	grpcServer      *grpcsrv.Server
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	dbPool, err := dbbuilder.New(ctx,
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DBPath),
		dbbuilder.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	logger.Info("Database pool initialized", zap.String("driver", cfg.DBDriver))

	a := &App{
		logger:          logger,
		dbPool:          dbPool,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	if err := a.build(ctx, cfg); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, cfg *config.Config) error {
	repo := repository.NewAuditRepository(a.dbPool, cfg.DBDriver)
	if err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}

	if cfg.SeedFile != "" {
		n, err := SeedUsersFromFile(ctx, repo, cfg.SeedFile)
		if err != nil {
			return fmt.Errorf("seeding users failed: %w", err)
		}
		a.logger.Info("User directory seeded", zap.String("file", cfg.SeedFile), zap.Int("created", n))
	}

	// A typed nil *cache.Cache would defeat the handlers' nil check.
	var cacher handler.Cacher
	if cfg.RedisAddr != "" {
		cacheClient, err := cache.New(ctx,
			cache.WithAddress(cfg.RedisAddr),
			cache.WithPassword(cfg.RedisPassword),
			cache.WithDB(cfg.RedisDB),
			cache.WithKeyPrefix(cfg.RedisKeyPrefix),
		)
		if err != nil {
			return fmt.Errorf("cache init failed: %w", err)
		}
		a.cache = cacheClient
		cacher = cacheClient
		a.logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
	} else {
		a.logger.Info("Cache disabled, analytics served from the database")
	}

	publisher, err := newPublisher(cfg, a.logger)
	if err != nil {
		return err
	}
	a.publisher = publisher

	var serviceOpts []service.Option
	if cacher != nil {
		serviceOpts = append(serviceOpts, service.WithChangeNotifier(handler.NewCacheVersions(cacher, a.logger)))
	}
	auditService := service.NewAuditService(repo, publisher, a.logger, serviceOpts...)

	grpcHandlers := handler.NewGRPCHandlers(auditService, cacher, a.logger, cfg.CacheTTL)

	if cfg.GRPCReflectionEnabled {
		a.logger.Warn("gRPC reflection enabled: audit.v1.AuditScoring speaks the json codec and is listed without a descriptor")
	}
	grpcServer, err := grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(a.logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(true),
		grpcsrv.WithRecovery(true),
	)
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}
	grpcServer.RegisterServiceWithHealth(auditServiceName, func(s *grpc.Server) {
		pb.RegisterAuditScoringServer(s, grpcHandlers)
	})
	a.grpcServer = grpcServer

	api := httpapi.NewServer(auditService, a.logger, cfg.HTTPCORSOrigins)
	a.httpServer = &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(cfg.HTTPPort)),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(a.logger.Named("http")),
	}
	return nil
}

// newPublisher fans alerts out to every configured sink.
func newPublisher(cfg *config.Config, logger *zap.Logger) (events.Publisher, error) {
	var sinks events.Fanout
	if len(cfg.KafkaBrokers) > 0 {
		sinks = append(sinks, events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAlertTopic))
		logger.Info("Kafka alerts enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaAlertTopic))
	}
	if cfg.DiscordBotToken != "" && cfg.DiscordAlertChannel != "" {
		d, err := events.NewDiscordPublisher(cfg.DiscordBotToken, cfg.DiscordAlertChannel)
		if err != nil {
			_ = sinks.Close()
			return nil, fmt.Errorf("discord publisher init failed: %w", err)
		}
		sinks = append(sinks, d)
		logger.Info("Discord alerts enabled", zap.String("channel", cfg.DiscordAlertChannel))
	}
	switch len(sinks) {
	case 0:
		return events.Nop{}, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

// Run starts the application and blocks until a shutdown signal is received.
func (a *App) Run() error {
	a.logger.Info("application starting")

	a.grpcServer.Start()

	httpErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
	case err := <-httpErr:
		runErr = fmt.Errorf("http server: %w", err)
		a.logger.Error("HTTP server failed", zap.Error(err))
	}

	a.logger.Info("application shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("http shutdown error", zap.Error(err))
	}
	if err := a.grpcServer.Shutdown(ctx); err != nil {
		a.logger.Warn("grpc shutdown forced", zap.Error(err))
	}
	a.closeResources()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		a.logger.Warn("shutdown completed but deadline exceeded")
	} else {
		a.logger.Info("graceful shutdown completed successfully")
	}

	_ = a.logger.Sync()
	return runErr
}

func (a *App) closeResources() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error("publisher shutdown error", zap.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("cache shutdown error", zap.Error(err))
		}
	}
	if err := a.dbPool.Close(); err != nil {
		a.logger.Error("database shutdown error", zap.Error(err))
	}
}
