// Package participant tracks session membership, host designation and
// best-effort presence.
package participant

import (
	"context"
	"time"

	"github.com/quickpick/api/internal/apperr"
	"github.com/quickpick/api/internal/store"
)

// hostClaimTTL matches the session TTL window; every expiry refresh
// re-aligns the claim key with the rest of the session's keys.
const hostClaimTTL = 30 * time.Minute

type Tracker struct {
	store store.Store
}

func NewTracker(st store.Store) *Tracker {
	return &Tracker{store: st}
}

// Add registers a participant. Host goes to whoever wins the set-if-absent
// claim on the session's host key, so two simultaneous first joiners cannot
// both become host even across processes. A repeated Add under the same id is
// rejected; the count increment must fire exactly once per member. Callers
// serialize Add per session, which keeps the cap check and the count
// increment consistent with the membership set.
func (t *Tracker) Add(ctx context.Context, code, id, name string) (*Participant, error) {
	member, err := t.store.SIsMember(ctx, store.MembersKey(code), id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if member {
		return nil, apperr.Conflict("already_joined", "already a member of this session")
	}

	count, err := t.store.SCard(ctx, store.MembersKey(code))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if count >= MaxPerSession {
		return nil, apperr.Full("session_full", "session already has the maximum number of participants")
	}

	isHost, err := t.store.SetNX(ctx, store.HostClaimKey(code), id, hostClaimTTL)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	p := &Participant{
		ID:          id,
		SessionCode: code,
		Name:        name,
		JoinedAt:    time.Now(),
		IsHost:      isHost,
	}

	if err := t.store.SAdd(ctx, store.MembersKey(code), id); err != nil {
		return nil, apperr.Internal(err)
	}
	if err := t.store.HSetAll(ctx, store.ParticipantKey(code, id), p.toFields()); err != nil {
		return nil, apperr.Internal(err)
	}
	if _, err := t.store.HIncrBy(ctx, store.SessionKey(code), "participantCount", 1); err != nil {
		return nil, apperr.Internal(err)
	}
	if err := t.MarkOnline(ctx, code, id); err != nil {
		return nil, err
	}
	return p, nil
}

// Remove handles an intentional leave: the participant's record and
// selection set go away and the count drops. Disconnects never come through
// here; they only flip presence.
func (t *Tracker) Remove(ctx context.Context, code, id string) (bool, error) {
	member, err := t.store.SIsMember(ctx, store.MembersKey(code), id)
	if err != nil {
		return false, apperr.Internal(err)
	}
	if !member {
		return false, nil
	}

	if err := t.store.SRem(ctx, store.MembersKey(code), id); err != nil {
		return false, apperr.Internal(err)
	}
	if err := t.store.Del(ctx, store.ParticipantKey(code, id), store.SelectionsKey(code, id)); err != nil {
		return false, apperr.Internal(err)
	}
	if _, err := t.store.HIncrBy(ctx, store.SessionKey(code), "participantCount", -1); err != nil {
		return false, apperr.Internal(err)
	}
	if err := t.store.HDel(ctx, store.PresenceKey(code), id); err != nil {
		return false, apperr.Internal(err)
	}
	return true, nil
}

func (t *Tracker) Get(ctx context.Context, code, id string) (*Participant, error) {
	fields, err := t.store.HGetAll(ctx, store.ParticipantKey(code, id))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(fields) == 0 {
		return nil, apperr.NotFound("participant_not_found", "participant not found")
	}
	return fromFields(code, id, fields), nil
}

// IsInSession is the authorization gate for submit/restart/leave requests.
func (t *Tracker) IsInSession(ctx context.Context, code, id string) (bool, error) {
	member, err := t.store.SIsMember(ctx, store.MembersKey(code), id)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return member, nil
}

func (t *Tracker) Members(ctx context.Context, code string) ([]string, error) {
	ids, err := t.store.SMembers(ctx, store.MembersKey(code))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return ids, nil
}

func (t *Tracker) Count(ctx context.Context, code string) (int64, error) {
	count, err := t.store.SCard(ctx, store.MembersKey(code))
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return count, nil
}

// List returns the full participant records for everyone in the session.
func (t *Tracker) List(ctx context.Context, code string) ([]*Participant, error) {
	ids, err := t.Members(ctx, code)
	if err != nil {
		return nil, err
	}
	out := make([]*Participant, 0, len(ids))
	for _, id := range ids {
		p, err := t.Get(ctx, code, id)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
