package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"slidecart/pkg/config"
)

const keyNamespace = "slidecart"

// Redis is an optional Store backend for multi-instance deployments. Keys are
// tracked in a per-store index set so Clear can drop them without SCAN.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to redis and returns a Store scoped to the given name.
func NewRedis(ctx context.Context, cfg config.RedisConfig, name string) (*Redis, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client, prefix: keyNamespace + ":" + name}, nil
}

// NewRedisWithClient wraps an existing connection, sharing it across stores.
func NewRedisWithClient(client *redis.Client, name string) *Redis {
	return &Redis{client: client, prefix: keyNamespace + ":" + name}
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

func (r *Redis) key(k string) string {
	return r.prefix + ":" + k
}

func (r *Redis) indexKey() string {
	return r.prefix + ":keys"
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	if err := r.client.SAdd(ctx, r.indexKey(), r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis index: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	keys, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("redis clear index: %w", err)
	}
	keys = append(keys, r.indexKey())
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
// Ping verifies connectivity for readiness checks.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
