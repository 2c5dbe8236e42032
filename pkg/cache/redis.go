package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON values in Redis under an optional key prefix. A miss is
// reported as redis.Nil.
type Cache struct {
	client *redis.Client
	prefix string
}

type Options struct {
	Address     string
	Password    string
	DB          int
	KeyPrefix   string
	DialTimeout time.Duration
}

type Option func(*Options)

func WithAddress(addr string) Option {
	return func(o *Options) {
		o.Address = addr
	}
}

func WithPassword(pass string) Option {
	return func(o *Options) {
		o.Password = pass
	}
}

func WithDB(db int) Option {
	return func(o *Options) {
		o.DB = db
	}
}

// WithKeyPrefix namespaces every key, e.g. "audit:".
func WithKeyPrefix(prefix string) Option {
	return func(o *Options) {
		o.KeyPrefix = prefix
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.DialTimeout = d
	}
}

// New connects and pings Redis.
func New(ctx context.Context, opts ...Option) (*Cache, error) {
	options := &Options{
		Address:     "localhost:6379",
		DialTimeout: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(options)
	}

	client := redis.NewClient(&redis.Options{
		Addr:        options.Address,
		Password:    options.Password,
		DB:          options.DB,
		DialTimeout: options.DialTimeout,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", options.Address, err)
	}

	return &Cache{client: client, prefix: options.KeyPrefix}, nil
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(val, dest)
}

func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(key), data, expiration).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
