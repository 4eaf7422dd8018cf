// Package coordinator is the engine's front door. Each operation validates
// its inputs, applies the change under the session's mutex and emits the
// resulting events in the contract order: acknowledgment to the actor
// first, then the room broadcast, then (for a completing submission) the
// results.
package coordinator

import (
	"context"
	"log"

	"github.com/quickpick/api/internal/apperr"
	"github.com/quickpick/api/internal/event"
	"github.com/quickpick/api/internal/expiry"
	"github.com/quickpick/api/internal/participant"
	"github.com/quickpick/api/internal/selection"
	"github.com/quickpick/api/internal/session"
	"github.com/quickpick/api/internal/store"
)

type Coordinator struct {
	sessions   *session.Registry
	members    *participant.Tracker
	selections *selection.Store
	expiry     *expiry.Coordinator
	emitter    event.Emitter
	locks      *keyedMutex
}

func New(st store.Store, emitter event.Emitter) *Coordinator {
	return &Coordinator{
		sessions:   session.NewRegistry(st),
		members:    participant.NewTracker(st),
		selections: selection.NewStore(st),
		expiry:     expiry.NewCoordinator(st),
		emitter:    emitter,
		locks:      newKeyedMutex(),
	}
}

// Snapshot is the read view of a session handed to the transport.
type Snapshot struct {
	Session        *session.Session           `json:"session"`
	Participants   []*participant.Participant `json:"participants"`
	Online         map[string]bool            `json:"online"`
	SubmittedCount int                        `json:"submittedCount"`
}

// CreateSession allocates a session in the waiting state. The host becomes
// a participant only on their first realtime join.
func (c *Coordinator) CreateSession(ctx context.Context, hostName string, geo *session.GeoParams) (*session.Session, error) {
	if err := validateName(hostName); err != nil {
		return nil, err
	}
	sess, err := c.sessions.Create(ctx, hostName, geo)
	if err != nil {
		return nil, err
	}
	if _, err := c.expiry.Refresh(ctx, sess.Code, nil); err != nil {
		return nil, err
	}
	return sess, nil
}

func (c *Coordinator) GetSession(ctx context.Context, code string) (*Snapshot, error) {
	if err := validateCode(code); err != nil {
		return nil, err
	}
	sess, err := c.sessions.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	parts, err := c.members.List(ctx, code)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(parts))
	for i, p := range parts {
		ids[i] = p.ID
	}
	online, err := c.members.Statuses(ctx, code, ids)
	if err != nil {
		return nil, err
	}
	submitted, err := c.selections.SubmittedCount(ctx, code, ids)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Session: sess, Participants: parts, Online: online, SubmittedCount: submitted}, nil
}

// SetOptions installs the candidate catalog the participants will pick
// from. The transport supplies it; place search itself lives outside the
// engine.
func (c *Coordinator) SetOptions(ctx context.Context, code string, options []selection.Option) error {
	if err := validateCode(code); err != nil {
		return err
	}
	if len(options) == 0 {
		return apperr.Validation("empty_options", "at least one option is required")
	}
	if len(options) > maxCatalogSize {
		return apperr.Validation("options_too_large", "too many options")
	}

	unlock := c.locks.Lock(code)
	defer unlock()

	if _, err := c.sessions.Get(ctx, code); err != nil {
		return err
	}
	if err := c.selections.SetOptions(ctx, code, options); err != nil {
		return err
	}
	return c.touchAndRefresh(ctx, code)
}

// JoinSession registers the connection as a participant and binds it to the
// room. The join acknowledgment goes to the joiner before the rest of the
// room hears participant:joined.
func (c *Coordinator) JoinSession(ctx context.Context, code, connID, name string) (*participant.Participant, error) {
	if err := validateCode(code); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(code)
	defer unlock()

	sess, err := c.sessions.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if sess.State == session.StateExpired {
		return nil, apperr.NotFound("session_not_found", "session not found or expired")
	}

	p, err := c.members.Add(ctx, code, connID, name)
	if err != nil {
		return nil, err
	}
	if err := c.touchAndRefresh(ctx, code); err != nil {
		return nil, err
	}

	snapshot, err := c.GetSession(ctx, code)
	if err != nil {
		return nil, err
	}
	options, err := c.selections.Options(ctx, code)
	if err != nil {
		return nil, err
	}

	c.emitter.Bind(connID, code)
	c.emitter.ToConnection(connID, event.JoinAck{
		Session:      snapshot.Session,
		Self:         p,
		Participants: snapshot.Participants,
		Options:      options,
	})
	c.emitter.ToRoomExcept(code, connID, event.ParticipantJoined{
		ID:               p.ID,
		Name:             p.Name,
		IsHost:           p.IsHost,
		ParticipantCount: snapshot.Session.ParticipantCount,
	})
	return p, nil
}

// SubmitSelections records a participant's write-once picks. The ack and
// the count-only broadcast always go out first; if this was the last
// outstanding submission the round completes exactly once, and the results
// broadcast follows only after the overlap is computed and persisted.
func (c *Coordinator) SubmitSelections(ctx context.Context, code, connID string, optionIDs []string) (completed bool, err error) {
	if err := validateCode(code); err != nil {
		return false, err
	}
	if err := validateSelectionIDs(optionIDs); err != nil {
		return false, err
	}

	unlock := c.locks.Lock(code)
	defer unlock()

	sess, err := c.sessions.Get(ctx, code)
	if err != nil {
		return false, err
	}
	if err := c.authorize(ctx, code, connID); err != nil {
		return false, err
	}
	if sess.State == session.StateComplete {
		return false, apperr.Conflict("round_complete", "the round is already complete")
	}
	if sess.State == session.StateWaiting {
		if err := c.sessions.Transition(ctx, code, session.StateSelecting); err != nil {
			return false, err
		}
	}

	if err := c.selections.Submit(ctx, code, connID, optionIDs); err != nil {
		return false, err
	}
	if err := c.touchAndRefresh(ctx, code); err != nil {
		return false, err
	}

	memberIDs, err := c.members.Members(ctx, code)
	if err != nil {
		return false, err
	}
	submitted, err := c.selections.SubmittedCount(ctx, code, memberIDs)
	if err != nil {
		return false, err
	}

	c.emitter.ToConnection(connID, event.SubmitAck{
		SubmittedCount:   submitted,
		ParticipantCount: len(memberIDs),
	})
	c.emitter.ToRoomExcept(code, connID, event.ParticipantSubmitted{
		SubmittedCount:   submitted,
		ParticipantCount: len(memberIDs),
	})

	if submitted != len(memberIDs) {
		return false, nil
	}

	// Last outstanding submission: complete the round. This runs under
	// the session mutex, so of N near-simultaneous final submissions
	// exactly one observes the counts as equal.
	names := make(map[string]string, len(memberIDs))
	parts, err := c.members.List(ctx, code)
	if err != nil {
		return false, err
	}
	for _, p := range parts {
		names[p.ID] = p.Name
	}
	results, err := c.selections.CalculateOverlap(ctx, code, names)
	if err != nil {
		return false, err
	}
	if err := c.selections.SaveResults(ctx, code, results.OverlappingIDs); err != nil {
		return false, err
	}
	if err := c.sessions.Transition(ctx, code, session.StateComplete); err != nil {
		return false, err
	}

	c.emitter.ToRoom(code, event.SessionComplete{Results: results})
	return true, nil
}

// RestartSession clears every member's submission and any stored results,
// keeping membership and host assignment intact. The restarted broadcast
// goes to the whole room, initiator included.
func (c *Coordinator) RestartSession(ctx context.Context, code, connID string) error {
	if err := validateCode(code); err != nil {
		return err
	}

	unlock := c.locks.Lock(code)
	defer unlock()

	sess, err := c.sessions.Get(ctx, code)
	if err != nil {
		return err
	}
	if err := c.authorize(ctx, code, connID); err != nil {
		return err
	}

	memberIDs, err := c.members.Members(ctx, code)
	if err != nil {
		return err
	}
	if err := c.selections.Clear(ctx, code, memberIDs); err != nil {
		return err
	}
	if sess.State == session.StateComplete {
		if err := c.sessions.Transition(ctx, code, session.StateSelecting); err != nil {
			return err
		}
	}
	if err := c.touchAndRefresh(ctx, code); err != nil {
		return err
	}

	initiator, err := c.members.Get(ctx, code, connID)
	if err != nil {
		return err
	}

	c.emitter.ToConnection(connID, event.RestartAck{})
	c.emitter.ToRoom(code, event.SessionRestarted{RestartedBy: initiator.Name})
	return nil
}

// LeaveSession is an intentional departure: the participant's record and
// selections are deleted and the count drops.
func (c *Coordinator) LeaveSession(ctx context.Context, code, connID string) error {
	if err := validateCode(code); err != nil {
		return err
	}

	unlock := c.locks.Lock(code)
	defer unlock()

	if err := c.authorize(ctx, code, connID); err != nil {
		return err
	}

	p, err := c.members.Get(ctx, code, connID)
	if err != nil {
		return err
	}
	if _, err := c.members.Remove(ctx, code, connID); err != nil {
		return err
	}
	if err := c.touchAndRefresh(ctx, code); err != nil {
		return err
	}

	count, err := c.members.Count(ctx, code)
	if err != nil {
		return err
	}

	c.emitter.Unbind(connID)
	c.emitter.ToConnection(connID, event.LeaveAck{})
	c.emitter.ToRoom(code, event.ParticipantLeft{
		ID:               p.ID,
		Name:             p.Name,
		ParticipantCount: int(count),
	})
	return nil
}

// HandleDisconnect reacts to a connectivity loss. Membership, host status
// and submissions all survive; only presence flips. There is no caller to
// report failures to, so anything that goes wrong is logged and swallowed.
func (c *Coordinator) HandleDisconnect(ctx context.Context, code, connID string) {
	unlock := c.locks.Lock(code)
	defer unlock()

	c.emitter.Unbind(connID)

	p, err := c.members.Get(ctx, code, connID)
	if err != nil {
		if !apperr.IsKind(err, apperr.KindNotFound) {
			log.Printf("Warning: disconnect cleanup for %s in %s: %v", connID, code, err)
		}
		return
	}
	if err := c.members.MarkOffline(ctx, code, connID); err != nil {
		log.Printf("Warning: marking %s offline in %s: %v", connID, code, err)
	}

	count, err := c.members.Count(ctx, code)
	if err != nil {
		log.Printf("Warning: reading member count for %s: %v", code, err)
		return
	}

	c.emitter.ToRoom(code, event.ParticipantLeft{
		ID:               p.ID,
		Name:             p.Name,
		Disconnected:     true,
		ParticipantCount: int(count),
	})
}

// DeleteSession removes the session and everything it owns, then tells the
// room it is gone.
func (c *Coordinator) DeleteSession(ctx context.Context, code string) error {
	if err := validateCode(code); err != nil {
		return err
	}

	unlock := c.locks.Lock(code)
	defer unlock()

	if _, err := c.sessions.Get(ctx, code); err != nil {
		return err
	}
	memberIDs, err := c.members.Members(ctx, code)
	if err != nil {
		return err
	}
	if err := c.sessions.Delete(ctx, code, memberIDs); err != nil {
		return err
	}

	c.emitter.ToRoom(code, event.SessionExpired{Code: code, Reason: "deleted"})
	return nil
}

// HandleExpired is the listener's callback: the store already purged the
// keys, so all that is left is telling the room.
func (c *Coordinator) HandleExpired(code, reason string) {
	c.emitter.ToRoom(code, event.SessionExpired{Code: code, Reason: reason})
}

// GetResults re-reads the persisted outcome of a completed round.
func (c *Coordinator) GetResults(ctx context.Context, code string) ([]selection.Option, error) {
	if err := validateCode(code); err != nil {
		return nil, err
	}
	if _, err := c.sessions.Get(ctx, code); err != nil {
		return nil, err
	}
	return c.selections.Results(ctx, code)
}

// authorize rejects any request from a connection that is not currently a
// member, including one that held a different identity in this session
// before.
func (c *Coordinator) authorize(ctx context.Context, code, connID string) error {
	member, err := c.members.IsInSession(ctx, code, connID)
	if err != nil {
		return err
	}
	if !member {
		return apperr.Unauthorized("not_in_session", "you are not a member of this session")
	}
	return nil
}

func (c *Coordinator) touchAndRefresh(ctx context.Context, code string) error {
	if err := c.sessions.Touch(ctx, code); err != nil {
		return err
	}
	memberIDs, err := c.members.Members(ctx, code)
	if err != nil {
		return err
	}
	if _, err := c.expiry.Refresh(ctx, code, memberIDs); err != nil {
		return err
	}
	return nil
}
