package store

import (
	"context"
	"time"
)

// Store is the key-value backend the session engine runs on. It covers the
// small surface the engine actually needs: hash records, sets, atomic
// multi-key expiration and a feed of expired key names. The concrete
// technology (Redis in production, memory in tests) stays behind it.
type Store interface {
	// Hash records
	HSetAll(ctx context.Context, key string, fields map[string]string) error
	HSet(ctx context.Context, key, field, value string) error
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error)

	// Sets
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SInter(ctx context.Context, keys ...string) ([]string, error)

	// Atomic primitives
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error

	// ExpireAtAll sets the same absolute expiry on every key in one atomic
	// operation. Keys that do not exist are skipped.
	ExpireAtAll(ctx context.Context, at time.Time, keys ...string) error

	// ExpireTime reports the absolute expiry of a key, or zero time if the
	// key has no expiry or does not exist.
	ExpireTime(ctx context.Context, key string) (time.Time, error)

	// SubscribeExpired returns a feed of expired key names. The returned
	// stop function releases the subscription. Implementations use a
	// dedicated connection where subscribing occupies one.
	SubscribeExpired(ctx context.Context) (<-chan string, func(), error)

	Close() error
}
