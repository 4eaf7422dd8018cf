package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quickpick/api/internal/apperr"
	"github.com/quickpick/api/internal/store"
)

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(store.NewMemoryStore())

	sess, err := reg.Create(ctx, "Alice", &GeoParams{Lat: 40.7, Lng: -74.0, Radius: 1500})
	require.NoError(t, err)
	require.True(t, ValidCode(sess.Code))
	require.Equal(t, StateWaiting, sess.State)
	require.Equal(t, 0, sess.ParticipantCount)

	got, err := reg.Get(ctx, sess.Code)
	require.NoError(t, err)
	require.Equal(t, sess.Code, got.Code)
	require.Equal(t, StateWaiting, got.State)
	require.Equal(t, "Alice", got.HostName)
	require.NotNil(t, got.Geo)
	require.Equal(t, 40.7, got.Geo.Lat)
	require.Equal(t, 1500, got.Geo.Radius)
}

func TestGetUnknownSession(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(store.NewMemoryStore())

	_, err := reg.Get(ctx, "ZZZZZZ")
	require.Error(t, err)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		allowed bool
	}{
		{"waiting to selecting", StateWaiting, StateSelecting, true},
		{"selecting to complete", StateSelecting, StateComplete, true},
		{"complete back to selecting", StateComplete, StateSelecting, true},
		{"waiting to expired", StateWaiting, StateExpired, true},
		{"selecting to expired", StateSelecting, StateExpired, true},
		{"complete to expired", StateComplete, StateExpired, true},
		{"waiting straight to complete", StateWaiting, StateComplete, false},
		{"selecting back to waiting", StateSelecting, StateWaiting, false},
		{"expired is terminal", StateExpired, StateSelecting, false},
		{"complete to waiting", StateComplete, StateWaiting, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTransitionUnreachableFailsLoudly(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(store.NewMemoryStore())

	sess, err := reg.Create(ctx, "Alice", nil)
	require.NoError(t, err)

	err = reg.Transition(ctx, sess.Code, StateComplete)
	require.Error(t, err)
	require.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	// The record is untouched after a rejected transition.
	got, err := reg.Get(ctx, sess.Code)
	require.NoError(t, err)
	require.Equal(t, StateWaiting, got.State)
}

func TestTransitionCycle(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(store.NewMemoryStore())

	sess, err := reg.Create(ctx, "Alice", nil)
	require.NoError(t, err)

	require.NoError(t, reg.Transition(ctx, sess.Code, StateSelecting))
	require.NoError(t, reg.Transition(ctx, sess.Code, StateComplete))
	require.NoError(t, reg.Transition(ctx, sess.Code, StateSelecting))
	require.NoError(t, reg.Transition(ctx, sess.Code, StateComplete))
	require.NoError(t, reg.Transition(ctx, sess.Code, StateExpired))

	err = reg.Transition(ctx, sess.Code, StateSelecting)
	require.Error(t, err)
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reg := NewRegistry(st)

	sess, err := reg.Create(ctx, "Alice", nil)
	require.NoError(t, err)
	code := sess.Code

	// Seed the keys a live session would own.
	require.NoError(t, st.SAdd(ctx, store.MembersKey(code), "p1"))
	require.NoError(t, st.HSetAll(ctx, store.ParticipantKey(code, "p1"), map[string]string{"name": "Bob"}))
	require.NoError(t, st.SAdd(ctx, store.SelectionsKey(code, "p1"), "pizza"))
	require.NoError(t, st.SAdd(ctx, store.ResultsKey(code), "pizza"))

	require.NoError(t, reg.Delete(ctx, code, []string{"p1"}))

	for _, key := range store.SessionOwnedKeys(code, []string{"p1"}) {
		exists, err := st.Exists(ctx, key)
		require.NoError(t, err)
		require.False(t, exists, "key %s should be gone", key)
	}
}

func TestGeneratedCodesMatchPattern(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := generateCode()
		require.True(t, ValidCode(code), "generated code %q", code)
	}
}
