package expiry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quickpick/api/internal/store"
)

func TestRefreshAlignsEveryOwnedKey(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	coord := NewCoordinator(st)

	code := "ABC123"
	participants := []string{"p1", "p2"}

	// Seed the full footprint of a live session.
	require.NoError(t, st.HSetAll(ctx, store.SessionKey(code), map[string]string{"state": "selecting"}))
	require.NoError(t, st.SAdd(ctx, store.MembersKey(code), participants...))
	require.NoError(t, st.HSetAll(ctx, store.OptionsKey(code), map[string]string{"pizza": "Pizza Palace"}))
	require.NoError(t, st.SAdd(ctx, store.ResultsKey(code), "pizza"))
	require.NoError(t, st.HSetAll(ctx, store.PresenceKey(code), map[string]string{"p1": "1"}))
	for _, id := range participants {
		require.NoError(t, st.HSetAll(ctx, store.ParticipantKey(code, id), map[string]string{"name": id}))
		require.NoError(t, st.SAdd(ctx, store.SelectionsKey(code, id), "pizza"))
	}
	won, err := st.SetNX(ctx, store.HostClaimKey(code), "p1", time.Hour)
	require.NoError(t, err)
	require.True(t, won)

	expireAt, err := coord.Refresh(ctx, code, participants)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(TTLWindow), expireAt, time.Second)

	for _, key := range store.SessionOwnedKeys(code, participants) {
		got, err := st.ExpireTime(ctx, key)
		require.NoError(t, err)
		require.Equal(t, expireAt, got, "key %s diverged from the session clock", key)
	}
}

func TestListenerFiltersSessionRecordKeys(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	var mu sync.Mutex
	var fired []string
	listener := NewListener(st, func(code, reason string) {
		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, ReasonInactivity, reason)
		fired = append(fired, code)
	})
	require.NoError(t, listener.Start(ctx))

	// Expire a session record, one of its sub-keys and an unrelated key;
	// only the record should reach the callback.
	for _, key := range []string{"session:ABC123", "session:ABC123:members", "other:thing"} {
		require.NoError(t, st.HSetAll(ctx, key, map[string]string{"x": "1"}))
	}
	require.NoError(t, st.ExpireAtAll(ctx, time.Now().Add(-time.Second), "session:ABC123", "session:ABC123:members", "other:thing"))
	require.Equal(t, 3, st.PurgeExpired())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	require.Equal(t, []string{"ABC123"}, fired)
	mu.Unlock()

	listener.Stop()
}

func TestListenerStartIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	listener := NewListener(st, func(string, string) {})
	require.NoError(t, listener.Start(ctx))
	require.NoError(t, listener.Start(ctx))
	listener.Stop()
	// A second stop is safe too.
	listener.Stop()
}
