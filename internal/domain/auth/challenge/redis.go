package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	platformerrors "blog-server-go/internal/platform/errors"
)

type redisStore struct {
	client *redis.Client
	cfg    Config
	prefix string
}

// NewRedis connects to redis and verifies the connection with PING.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisFromClient(client, cfg), nil
}

// NewRedisFromClient wraps an existing client. The store owns it from then on.
func NewRedisFromClient(client *redis.Client, cfg Config) Store {
	prefix := "captcha:"
	if cfg.Redis != nil && cfg.Redis.Prefix != "" {
		prefix = cfg.Redis.Prefix
	}
	return &redisStore{client: client, cfg: cfg, prefix: prefix}
}

func (s *redisStore) key(k string) string {
	return s.prefix + k
}

func (s *redisStore) Issue(ctx context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("challenge key required")
	}
	if err := s.client.Set(ctx, s.key(key), value, s.cfg.ttl(ttl)).Err(); err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "challenge.issue", "failed to store challenge", err)
	}
	return nil
}

func (s *redisStore) Verify(ctx context.Context, key, supplied string) error {
	const op = "challenge.verify"
	expected, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return expired(op)
	}
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, op, "failed to read challenge", err)
	}

	if !matches(expected, supplied) {
		if s.cfg.ConsumeOnMismatch {
			if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
				return platformerrors.Wrap(platformerrors.KindStorage, op, "failed to discard challenge", err)
			}
		}
		return mismatch(op)
	}

	deleted, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, op, "failed to consume challenge", err)
	}
	if deleted != 1 {
		return expired(op)
	}
	return nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
