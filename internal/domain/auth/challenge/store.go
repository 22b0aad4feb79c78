package challenge

import (
	"context"
	"strings"
	"time"

	"blog-server-go/internal/domain/auth/model"
)

// Store holds single-use challenge values keyed by a caller-supplied key.
type Store interface {
	// Issue stores value under key for ttl, replacing any previous entry.
	// A non-positive ttl uses the store default.
	Issue(ctx context.Context, key, value string, ttl time.Duration) error

	// Verify consumes the entry when supplied matches it case-insensitively.
	// Absent or expired entries yield model.ErrChallengeExpired, a wrong value
	// yields model.ErrChallengeMismatch. Only the caller that actually deleted
	// the entry succeeds.
	Verify(ctx context.Context, key, supplied string) error

	Close(ctx context.Context) error
}

// Config describes the store selection parameters.
type Config struct {
	Driver string
	TTL    time.Duration
	// ConsumeOnMismatch deletes the entry after a wrong answer so it cannot be guessed repeatedly.
	ConsumeOnMismatch bool
	Redis             *RedisConfig
	Memory            *MemoryConfig
}

// MemoryConfig holds in-memory tuning knobs.
type MemoryConfig struct {
	GCInterval time.Duration
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

const defaultTTL = time.Minute

func (c Config) ttl(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	if c.TTL > 0 {
		return c.TTL
	}
	return defaultTTL
}

func matches(expected, supplied string) bool {
	return strings.EqualFold(strings.TrimSpace(expected), strings.TrimSpace(supplied))
}

func expired(op string) error {
	return model.ErrChallengeExpired.WithOp(op)
}

func mismatch(op string) error {
	return model.ErrChallengeMismatch.WithOp(op)
}
