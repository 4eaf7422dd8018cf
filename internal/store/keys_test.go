package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionCodeFromExpiredKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		wantCode string
		wantOK   bool
	}{
		{
			name:     "bare session record",
			key:      "session:ABC123",
			wantCode: "ABC123",
			wantOK:   true,
		},
		{
			name:   "members sub-key is filtered",
			key:    "session:ABC123:members",
			wantOK: false,
		},
		{
			name:   "host sub-key is filtered",
			key:    "session:ABC123:host",
			wantOK: false,
		},
		{
			name:   "participant key is filtered",
			key:    "participant:ABC123:p1",
			wantOK: false,
		},
		{
			name:   "selections key is filtered",
			key:    "selections:ABC123:p1",
			wantOK: false,
		},
		{
			name:   "unrelated key",
			key:    "rate:client:search",
			wantOK: false,
		},
		{
			name:   "empty suffix",
			key:    "session:",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := SessionCodeFromExpiredKey(tt.key)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.wantCode, code)
		})
	}
}

func TestIsOwnedKey(t *testing.T) {
	for _, key := range SessionOwnedKeys("ABC123", []string{"p1"}) {
		require.True(t, IsOwnedKey(key), key)
	}
	require.False(t, IsOwnedKey("rate:client:search"))
	require.False(t, IsOwnedKey("queue:jobs:pending"))
	require.False(t, IsOwnedKey(""))
}

func TestSessionOwnedKeysCoverParticipants(t *testing.T) {
	keys := SessionOwnedKeys("ABC123", []string{"p1", "p2"})
	require.Contains(t, keys, "session:ABC123")
	require.Contains(t, keys, "session:ABC123:members")
	require.Contains(t, keys, "session:ABC123:results")
	require.Contains(t, keys, "participant:ABC123:p1")
	require.Contains(t, keys, "selections:ABC123:p1")
	require.Contains(t, keys, "participant:ABC123:p2")
	require.Contains(t, keys, "selections:ABC123:p2")
}
