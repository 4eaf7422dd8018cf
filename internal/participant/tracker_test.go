package participant

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quickpick/api/internal/apperr"
	"github.com/quickpick/api/internal/store"
)

const code = "ABC123"

func countField(t *testing.T, st *store.MemoryStore) int64 {
	t.Helper()
	val, _, err := st.HGet(context.Background(), store.SessionKey(code), "participantCount")
	require.NoError(t, err)
	n, _ := strconv.ParseInt(val, 10, 64)
	return n
}

func TestAddTracksCountWithMembership(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	tr := NewTracker(st)

	for i := 0; i < 3; i++ {
		_, err := tr.Add(ctx, code, fmt.Sprintf("p%d", i), fmt.Sprintf("Player %d", i))
		require.NoError(t, err)

		members, err := tr.Count(ctx, code)
		require.NoError(t, err)
		require.Equal(t, int64(i+1), members)
		require.Equal(t, members, countField(t, st))
	}

	removed, err := tr.Remove(ctx, code, "p1")
	require.NoError(t, err)
	require.True(t, removed)

	members, err := tr.Count(ctx, code)
	require.NoError(t, err)
	require.Equal(t, int64(2), members)
	require.Equal(t, members, countField(t, st))
}

func TestRepeatedAddRejectedAndCountUnchanged(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	tr := NewTracker(st)

	_, err := tr.Add(ctx, code, "p0", "Alice")
	require.NoError(t, err)

	_, err = tr.Add(ctx, code, "p0", "Alice")
	require.Error(t, err)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	members, err := tr.Count(ctx, code)
	require.NoError(t, err)
	require.Equal(t, int64(1), members)
	require.Equal(t, members, countField(t, st))
}

func TestMemberRejoiningFullSessionGetsConflictNotFull(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(store.NewMemoryStore())

	for i := 0; i < MaxPerSession; i++ {
		_, err := tr.Add(ctx, code, fmt.Sprintf("p%d", i), "Player")
		require.NoError(t, err)
	}

	_, err := tr.Add(ctx, code, "p0", "Player")
	require.Error(t, err)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestFifthJoinRejected(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(store.NewMemoryStore())

	for i := 0; i < MaxPerSession; i++ {
		_, err := tr.Add(ctx, code, fmt.Sprintf("p%d", i), "Player")
		require.NoError(t, err)
	}

	_, err := tr.Add(ctx, code, "p5", "Latecomer")
	require.Error(t, err)
	require.Equal(t, apperr.KindFull, apperr.KindOf(err))
}

func TestFirstJoinerIsHost(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(store.NewMemoryStore())

	first, err := tr.Add(ctx, code, "p0", "Alice")
	require.NoError(t, err)
	require.True(t, first.IsHost)

	second, err := tr.Add(ctx, code, "p1", "Bob")
	require.NoError(t, err)
	require.False(t, second.IsHost)

	// Host status survives the host going offline.
	require.NoError(t, tr.MarkOffline(ctx, code, "p0"))
	got, err := tr.Get(ctx, code, "p0")
	require.NoError(t, err)
	require.True(t, got.IsHost)

	hosts := 0
	parts, err := tr.List(ctx, code)
	require.NoError(t, err)
	for _, p := range parts {
		if p.IsHost {
			hosts++
		}
	}
	require.Equal(t, 1, hosts)
}

func TestRemoveUnknownParticipantIsNoop(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(store.NewMemoryStore())

	removed, err := tr.Remove(ctx, code, "ghost")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestIsInSession(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(store.NewMemoryStore())

	_, err := tr.Add(ctx, code, "p0", "Alice")
	require.NoError(t, err)

	in, err := tr.IsInSession(ctx, code, "p0")
	require.NoError(t, err)
	require.True(t, in)

	in, err = tr.IsInSession(ctx, code, "stranger")
	require.NoError(t, err)
	require.False(t, in)
}

func TestPresenceIsAdvisory(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(store.NewMemoryStore())

	_, err := tr.Add(ctx, code, "p0", "Alice")
	require.NoError(t, err)

	online, err := tr.IsOnline(ctx, code, "p0")
	require.NoError(t, err)
	require.True(t, online)

	require.NoError(t, tr.MarkOffline(ctx, code, "p0"))
	online, err = tr.IsOnline(ctx, code, "p0")
	require.NoError(t, err)
	require.False(t, online)

	// Presence calls for participants that never existed are no-ops.
	require.NoError(t, tr.MarkOnline(ctx, code, "ghost"))
	require.NoError(t, tr.MarkOffline(ctx, code, "ghost"))

	online, err = tr.IsOnline(ctx, code, "never-seen")
	require.NoError(t, err)
	require.False(t, online)
}

func TestStatusesBatch(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(store.NewMemoryStore())

	_, err := tr.Add(ctx, code, "p0", "Alice")
	require.NoError(t, err)
	_, err = tr.Add(ctx, code, "p1", "Bob")
	require.NoError(t, err)
	require.NoError(t, tr.MarkOffline(ctx, code, "p1"))

	statuses, err := tr.Statuses(ctx, code, []string{"p0", "p1", "ghost"})
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"p0": true, "p1": false, "ghost": false}, statuses)
}
