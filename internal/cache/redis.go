package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vytor/fairplay/internal/logger"
)

const keyPrefix = "fairplay:analysis:"

var _ Cache = (*Redis)(nil)

// Redis is a cache shared between processes.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects to url (redis://host:port/db) and checks the server
// answers.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.FromContext(ctx).WithPrefix("cache").Info("using redis cache at %s", opt.Addr)
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := r.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.rdb.Set(ctx, keyPrefix+key, value, r.ttl).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
