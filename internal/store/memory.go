package store

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-memory Store. It backs local development
// without a Redis and the engine's tests; expiry is applied lazily on access
// and eagerly by PurgeExpired.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	subs    []chan string
}

type memEntry struct {
	hash     map[string]string
	set      map[string]struct{}
	str      string
	expireAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memEntry),
	}
}

// get returns the live entry for key, evicting it first if its deadline has
// passed. Callers must hold mu.
func (s *MemoryStore) get(key string) *memEntry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if !e.expireAt.IsZero() && !e.expireAt.After(time.Now()) {
		delete(s.entries, key)
		s.notify(key)
		return nil
	}
	return e
}

func (s *MemoryStore) ensure(key string) *memEntry {
	if e := s.get(key); e != nil {
		return e
	}
	e := &memEntry{}
	s.entries[key] = e
	return e
}

func (s *MemoryStore) notify(key string) {
	for _, ch := range s.subs {
		select {
		case ch <- key:
		default:
		}
	}
}

func (s *MemoryStore) HSetAll(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(key)
	if e.hash == nil {
		e.hash = make(map[string]string)
	}
	for f, v := range fields {
		e.hash[f] = v
	}
	return nil
}

func (s *MemoryStore) HSet(ctx context.Context, key, field, value string) error {
	return s.HSetAll(ctx, key, map[string]string{field: value})
}

func (s *MemoryStore) HGet(_ context.Context, key, field string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.get(key)
	if e == nil || e.hash == nil {
		return "", false, nil
	}
	v, ok := e.hash[field]
	return v, ok, nil
}

func (s *MemoryStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string)
	if e := s.get(key); e != nil {
		for f, v := range e.hash {
			out[f] = v
		}
	}
	return out, nil
}

func (s *MemoryStore) HDel(_ context.Context, key string, fields ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.get(key); e != nil && e.hash != nil {
		for _, f := range fields {
			delete(e.hash, f)
		}
	}
	return nil
}

func (s *MemoryStore) HIncrBy(_ context.Context, key, field string, incr int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(key)
	if e.hash == nil {
		e.hash = make(map[string]string)
	}
	n := parseInt(e.hash[field]) + incr
	e.hash[field] = formatInt(n)
	return n, nil
}

func (s *MemoryStore) SAdd(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(key)
	if e.set == nil {
		e.set = make(map[string]struct{})
	}
	for _, m := range members {
		e.set[m] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) SRem(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.get(key); e != nil && e.set != nil {
		for _, m := range members {
			delete(e.set, m)
		}
	}
	return nil
}

func (s *MemoryStore) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	if e := s.get(key); e != nil {
		for m := range e.set {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) SCard(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.get(key); e != nil {
		return int64(len(e.set)), nil
	}
	return 0, nil
}

func (s *MemoryStore) SIsMember(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.get(key); e != nil && e.set != nil {
		_, ok := e.set[member]
		return ok, nil
	}
	return false, nil
}

func (s *MemoryStore) SInter(_ context.Context, keys ...string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(keys) == 0 {
		return nil, nil
	}
	first := s.get(keys[0])
	if first == nil {
		return nil, nil
	}

	var out []string
	for m := range first.set {
		in := true
		for _, key := range keys[1:] {
			e := s.get(key)
			if e == nil {
				return nil, nil
			}
			if _, ok := e.set[m]; !ok {
				in = false
				break
			}
		}
		if in {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.get(key) != nil {
		return false, nil
	}
	e := &memEntry{str: value}
	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	}
	s.entries[key] = e
	return true, nil
}

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.get(key) != nil, nil
}

func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

func (s *MemoryStore) ExpireAtAll(_ context.Context, at time.Time, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		if e := s.get(key); e != nil {
			e.expireAt = at
		}
	}
	return nil
}

func (s *MemoryStore) ExpireTime(_ context.Context, key string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.get(key); e != nil {
		return e.expireAt, nil
	}
	return time.Time{}, nil
}

func (s *MemoryStore) SubscribeExpired(_ context.Context) (<-chan string, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan string, 64)
	s.subs = append(s.subs, ch)

	stop := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, stop, nil
}

// PurgeExpired evicts every entry whose deadline has passed and notifies
// subscribers, mirroring Redis's active expiry cycle.
func (s *MemoryStore) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	count := 0
	for key, e := range s.entries {
		if !e.expireAt.IsZero() && !e.expireAt.After(now) {
			delete(s.entries, key)
			s.notify(key)
			count++
		}
	}
	return count
}

func (s *MemoryStore) Close() error {
	return nil
}

func parseInt(v string) int64 {
	n, _ := strconv.ParseInt(v, 10, 64)
	return n
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
