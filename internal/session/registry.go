// Package session owns the canonical session record and its state machine.
package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/quickpick/api/internal/apperr"
	"github.com/quickpick/api/internal/store"
)

type Registry struct {
	store store.Store
}

func NewRegistry(st store.Store) *Registry {
	return &Registry{store: st}
}

// Create allocates a fresh code and writes the initial record. The host is
// not registered as a participant here; membership is established on their
// first realtime join like everyone else's, so participantCount starts at
// zero and only ever moves together with the membership set.
func (r *Registry) Create(ctx context.Context, hostName string, geo *GeoParams) (*Session, error) {
	var code string
	for attempt := 0; ; attempt++ {
		if attempt == maxCodeAttempts {
			return nil, apperr.Conflict("code_generation_exhausted", "could not allocate a session code")
		}
		code = generateCode()
		exists, err := r.store.Exists(ctx, store.SessionKey(code))
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if !exists {
			break
		}
	}

	now := time.Now()
	sess := &Session{
		Code:         code,
		State:        StateWaiting,
		CreatedAt:    now,
		LastActivity: now,
		HostName:     hostName,
		Geo:          geo,
	}
	if err := r.store.HSetAll(ctx, store.SessionKey(code), sess.toFields()); err != nil {
		return nil, apperr.Internal(err)
	}
	return sess, nil
}

func (r *Registry) Get(ctx context.Context, code string) (*Session, error) {
	fields, err := r.store.HGetAll(ctx, store.SessionKey(code))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(fields) == 0 {
		return nil, apperr.NotFound("session_not_found", "session not found or expired")
	}
	return fromFields(code, fields), nil
}

// Transition moves the session to a state reachable from its current one.
// An unreachable transition is a programming error in the caller, not a
// user-recoverable condition, and comes back as Internal.
func (r *Registry) Transition(ctx context.Context, code string, to State) error {
	cur, err := r.Get(ctx, code)
	if err != nil {
		return err
	}
	if !CanTransition(cur.State, to) {
		return apperr.Internal(fmt.Errorf("state transition %s -> %s is not allowed", cur.State, to))
	}
	if err := r.store.HSet(ctx, store.SessionKey(code), "state", string(to)); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Touch records activity. Callers pair this with an expiry refresh.
func (r *Registry) Touch(ctx context.Context, code string) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := r.store.HSet(ctx, store.SessionKey(code), "lastActivity", now); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Delete removes the record and everything it owns in one multi-key delete,
// so a session can never leave orphaned participant or selection keys
// behind.
func (r *Registry) Delete(ctx context.Context, code string, participantIDs []string) error {
	if err := r.store.Del(ctx, store.SessionOwnedKeys(code, participantIDs)...); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
