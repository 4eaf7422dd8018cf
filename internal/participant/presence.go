package participant

import (
	"context"

	"github.com/quickpick/api/internal/apperr"
	"github.com/quickpick/api/internal/store"
)

// Presence is advisory telemetry for the UI, never a source of truth:
// membership, host status and submissions all survive a participant going
// offline. Every operation tolerates participants that no longer exist.

func (t *Tracker) MarkOnline(ctx context.Context, code, id string) error {
	if err := t.store.HSet(ctx, store.PresenceKey(code), id, "1"); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (t *Tracker) MarkOffline(ctx context.Context, code, id string) error {
	if err := t.store.HSet(ctx, store.PresenceKey(code), id, "0"); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// IsOnline reports false for unknown participants; absence means offline.
func (t *Tracker) IsOnline(ctx context.Context, code, id string) (bool, error) {
	val, ok, err := t.store.HGet(ctx, store.PresenceKey(code), id)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return ok && val == "1", nil
}

func (t *Tracker) ListOnline(ctx context.Context, code string) ([]string, error) {
	statuses, err := t.store.HGetAll(ctx, store.PresenceKey(code))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	var online []string
	for id, val := range statuses {
		if val == "1" {
			online = append(online, id)
		}
	}
	return online, nil
}

// Statuses resolves online state for a batch of participant ids. Ids with no
// presence entry come back offline.
func (t *Tracker) Statuses(ctx context.Context, code string, ids []string) (map[string]bool, error) {
	statuses, err := t.store.HGetAll(ctx, store.PresenceKey(code))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = statuses[id] == "1"
	}
	return out, nil
}
