package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOption configures a Redis store.
type RedisOption func(*redisConfig)

type redisConfig struct {
	addr     string
	password string
	db       int
	prefix   string
	poolSize int
	timeout  time.Duration
}

// WithAddr sets the host:port of the server.
func WithAddr(addr string) RedisOption { return func(c *redisConfig) { c.addr = addr } }

// WithPassword sets the server password.
func WithPassword(password string) RedisOption { return func(c *redisConfig) { c.password = password } }

// WithDB selects the database number.
func WithDB(db int) RedisOption { return func(c *redisConfig) { c.db = db } }

// WithPrefix sets the prefix of every key.
func WithPrefix(prefix string) RedisOption { return func(c *redisConfig) { c.prefix = prefix } }

// WithPoolSize sets the connection pool size.
func WithPoolSize(n int) RedisOption { return func(c *redisConfig) { c.poolSize = n } }

// WithDialTimeout bounds the connection and the initial ping.
func WithDialTimeout(d time.Duration) RedisOption { return func(c *redisConfig) { c.timeout = d } }

// Redis is a Store backed by a Redis server.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to a Redis server and pings it.
func NewRedis(ctx context.Context, opts ...RedisOption) (*Redis, error) {
	cfg := &redisConfig{
		addr:     "localhost:6379",
		prefix:   "folio:",
		poolSize: 4,
		timeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.addr,
		Password:    cfg.password,
		DB:          cfg.db,
		PoolSize:    cfg.poolSize,
		DialTimeout: cfg.timeout,
	})

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.addr, err)
	}
	return &Redis{client: client, prefix: cfg.prefix}, nil
}

// Close closes the connection pool.
func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return data, err
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}
