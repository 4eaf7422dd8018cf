// Package expiry keeps every key a session owns on one absolute expiry
// clock and propagates expiry events from the store.
package expiry

import (
	"context"
	"time"

	"github.com/quickpick/api/internal/apperr"
	"github.com/quickpick/api/internal/store"
)

// TTLWindow is how long a session survives without activity. Every
// externally visible action renews the full window.
const TTLWindow = 30 * time.Minute

type Coordinator struct {
	store store.Store
	ttl   time.Duration
}

func NewCoordinator(st store.Store) *Coordinator {
	return &Coordinator{store: st, ttl: TTLWindow}
}

func (c *Coordinator) CalculateExpireAt() time.Time {
	return time.Now().Add(c.ttl)
}

// Refresh moves the session record, membership set, results, catalog,
// presence and every participant's metadata and selection keys to the same
// absolute deadline in one atomic store operation. A partial refresh would
// let a participant's submitted set expire under a live session and leave
// the round stuck behind a phantom non-submitter, so atomicity here is a
// correctness requirement, not an optimization.
func (c *Coordinator) Refresh(ctx context.Context, code string, participantIDs []string) (time.Time, error) {
	expireAt := c.CalculateExpireAt()
	keys := store.SessionOwnedKeys(code, participantIDs)
	if err := c.store.ExpireAtAll(ctx, expireAt, keys...); err != nil {
		return time.Time{}, apperr.Internal(err)
	}
	return expireAt, nil
}
