package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

type Options struct {
	Driver          string
	DataSource      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
	RetryAttempts   int
	RetryDelay      time.Duration
	Logger          *zap.Logger
}

type Option func(*Options)

func WithDriver(driver string) Option {
	return func(o *Options) { o.Driver = driver }
}

func WithDataSource(dsn string) Option {
	return func(o *Options) { o.DataSource = dsn }
}

func WithMaxOpenConns(count int) Option {
	return func(o *Options) { o.MaxOpenConns = count }
}

func WithMaxIdleConns(count int) Option {
	return func(o *Options) { o.MaxIdleConns = count }
}

func WithConnMaxLifetime(duration time.Duration) Option {
	return func(o *Options) { o.ConnMaxLifetime = duration }
}

func WithConnMaxIdleTime(duration time.Duration) Option {
	return func(o *Options) { o.ConnMaxIdleTime = duration }
}

// WithConnectTimeout bounds each ping and, for MySQL, the dial.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) { o.ConnectTimeout = d }
}

func WithRetry(attempts int, delay time.Duration) Option {
	return func(o *Options) {
		o.RetryAttempts = attempts
		o.RetryDelay = delay
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// New creates a database connection pool using the provided options. SQLite and
// MySQL are supported; the caller blank-imports the SQLite driver.
func New(ctx context.Context, opts ...Option) (*sql.DB, error) {
	options := &Options{
		Driver:          DriverSQLite,
		DataSource:      ":memory:",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnectTimeout:  5 * time.Second,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.Driver == "" {
		return nil, fmt.Errorf("database driver cannot be empty")
	}
	if options.DataSource == "" {
		return nil, fmt.Errorf("database data source cannot be empty")
	}
	if options.RetryAttempts < 1 {
		options.RetryAttempts = 1
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn, err := prepare(options)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	for i := 0; i < options.RetryAttempts; i++ {
		db, err = sql.Open(options.Driver, dsn)
		if err == nil {
			db.SetMaxOpenConns(options.MaxOpenConns)
			db.SetMaxIdleConns(options.MaxIdleConns)
			db.SetConnMaxLifetime(options.ConnMaxLifetime)
			db.SetConnMaxIdleTime(options.ConnMaxIdleTime)

			pingCtx, cancel := context.WithTimeout(ctx, options.ConnectTimeout)
			err = db.PingContext(pingCtx)
			cancel()
			if err == nil {
				return db, nil
			}
			db.Close()
		}

		logger.Warn("database connection attempt failed",
			zap.String("driver", options.Driver),
			zap.Int("attempt", i+1),
			zap.Error(err))

		// linear backoff
		if i < options.RetryAttempts-1 {
			select {
			case <-time.After(time.Duration(i+1) * options.RetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", options.RetryAttempts, err)
}

// prepare adjusts the data source for the driver.
func prepare(o *Options) (string, error) {
	switch o.Driver {
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(o.DataSource)
		if err != nil {
			return "", fmt.Errorf("invalid mysql dsn: %w", err)
		}
		if cfg.Timeout == 0 {
			cfg.Timeout = o.ConnectTimeout
		}
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		if _, ok := cfg.Params["charset"]; !ok {
			cfg.Params["charset"] = "utf8mb4"
		}
		return cfg.FormatDSN(), nil
	case DriverSQLite:
		// every connection to an in-memory database opens a new, empty one
		if strings.Contains(o.DataSource, ":memory:") || strings.Contains(o.DataSource, "mode=memory") {
			o.MaxOpenConns = 1
			o.MaxIdleConns = 1
			o.ConnMaxLifetime = 0
			o.ConnMaxIdleTime = 0
		}
		return o.DataSource, nil
	}
	return o.DataSource, nil
}
