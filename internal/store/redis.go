package store

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the engine with Redis. All session state lives in hashes
// and sets with per-key expiry; multi-key expiration goes through a Lua
// script so every key of a session lands on the same absolute deadline.
type RedisStore struct {
	client *redis.Client
}

// expireAtScript renews every given key to one absolute millisecond
// deadline. Running as a script makes the multi-key expire atomic: a
// session's record can never end up on a different clock than its
// participants' selections.
var expireAtScript = redis.NewScript(`
for i = 1, #KEYS do
    redis.call("PEXPIREAT", KEYS[i], ARGV[1])
end
return #KEYS
`)

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Printf("Connected to Redis at %s", redisURL)
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) HSetAll(ctx context.Context, key string, fields map[string]string) error {
	return s.client.HSet(ctx, key, fields).Err()
}

func (s *RedisStore) HSet(ctx context.Context, key, field, value string) error {
	return s.client.HSet(ctx, key, field, value).Err()
}

func (s *RedisStore) HGet(ctx context.Context, key, field string) (string, bool, error) {
	val, err := s.client.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.client.HGetAll(ctx, key).Result()
}

func (s *RedisStore) HDel(ctx context.Context, key string, fields ...string) error {
	return s.client.HDel(ctx, key, fields...).Err()
}

func (s *RedisStore) HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error) {
	return s.client.HIncrBy(ctx, key, field, incr).Result()
}

func (s *RedisStore) SAdd(ctx context.Context, key string, members ...string) error {
	vals := make([]interface{}, len(members))
	for i, m := range members {
		vals[i] = m
	}
	return s.client.SAdd(ctx, key, vals...).Err()
}

func (s *RedisStore) SRem(ctx context.Context, key string, members ...string) error {
	vals := make([]interface{}, len(members))
	for i, m := range members {
		vals[i] = m
	}
	return s.client.SRem(ctx, key, vals...).Err()
}

func (s *RedisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	return s.client.SMembers(ctx, key).Result()
}

func (s *RedisStore) SCard(ctx context.Context, key string) (int64, error) {
	return s.client.SCard(ctx, key).Result()
}

func (s *RedisStore) SIsMember(ctx context.Context, key, member string) (bool, error) {
	return s.client.SIsMember(ctx, key, member).Result()
}

func (s *RedisStore) SInter(ctx context.Context, keys ...string) ([]string, error) {
	return s.client.SInter(ctx, keys...).Result()
}

func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	return n > 0, err
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisStore) ExpireAtAll(ctx context.Context, at time.Time, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return expireAtScript.Run(ctx, s.client, keys, at.UnixMilli()).Err()
}

func (s *RedisStore) ExpireTime(ctx context.Context, key string) (time.Time, error) {
	d, err := s.client.PExpireTime(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	if d < 0 {
		// -1 no expiry, -2 no such key
		return time.Time{}, nil
	}
	return time.UnixMilli(int64(d / time.Millisecond)), nil
}

// SubscribeExpired listens for expired-key events. PSubscribe takes over a
// connection of its own, so ordinary reads and writes are unaffected.
// Enabling keyspace notifications can fail on deployments that disallow
// CONFIG SET; keys still expire then, we just cannot observe it, so that is
// logged as a warning rather than treated as fatal.
func (s *RedisStore) SubscribeExpired(ctx context.Context) (<-chan string, func(), error) {
	if err := s.client.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err(); err != nil {
		log.Printf("Warning: could not enable keyspace notifications: %v", err)
	}

	pubsub := s.client.PSubscribe(ctx, "__keyevent@*__:expired")
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	out := make(chan string, 64)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			out <- msg.Payload
		}
	}()

	return out, func() { pubsub.Close() }, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
