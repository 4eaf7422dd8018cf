// Package event defines the closed set of state-change notifications the
// engine emits and the audiences they go to. Payloads are fixed-field
// structs, never loose maps, so the transport can rely on every event's
// shape.
package event

import (
	"github.com/quickpick/api/internal/participant"
	"github.com/quickpick/api/internal/selection"
	"github.com/quickpick/api/internal/session"
)

// Emitter is implemented by the realtime transport. The engine decides the
// audience and ordering; the transport only delivers. Room bookkeeping is
// driven from the engine so a connection is only ever in a room it joined
// through the front door.
type Emitter interface {
	// Bind puts a connection in a session's room; Unbind removes it.
	Bind(connID, code string)
	Unbind(connID string)

	// ToConnection delivers to a single connection (acknowledgments).
	ToConnection(connID string, ev Event)
	// ToRoomExcept delivers to every connection in the session's room
	// except one (broadcasts about an actor, not to them).
	ToRoomExcept(code, exceptConnID string, ev Event)
	// ToRoom delivers to every connection in the session's room.
	ToRoom(code string, ev Event)
}

type Event interface {
	EventName() string
}

// JoinAck is the direct acknowledgment to a joining connection. It is
// always delivered before the room hears about the join, so joiners never
// observe their own arrival as a broadcast first.
type JoinAck struct {
	Session      *session.Session           `json:"session"`
	Self         *participant.Participant   `json:"self"`
	Participants []*participant.Participant `json:"participants"`
	Options      []selection.Option         `json:"options"`
}

func (JoinAck) EventName() string { return "session:joined" }

// SubmitAck is the direct acknowledgment to a submitter, counts only.
type SubmitAck struct {
	SubmittedCount   int `json:"submittedCount"`
	ParticipantCount int `json:"participantCount"`
}

func (SubmitAck) EventName() string { return "selections:accepted" }

// RestartAck is the direct acknowledgment to the restart initiator, sent
// before the shared session:restarted broadcast.
type RestartAck struct{}

func (RestartAck) EventName() string { return "session:restart:accepted" }

// LeaveAck is the direct acknowledgment to a leaving connection.
type LeaveAck struct{}

func (LeaveAck) EventName() string { return "session:left" }

// ParticipantJoined tells the rest of the room about a new member.
type ParticipantJoined struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	IsHost           bool   `json:"isHost"`
	ParticipantCount int    `json:"participantCount"`
}

func (ParticipantJoined) EventName() string { return "participant:joined" }

// ParticipantSubmitted carries counts only. Selection content stays private
// until the round completes.
type ParticipantSubmitted struct {
	SubmittedCount   int `json:"submittedCount"`
	ParticipantCount int `json:"participantCount"`
}

func (ParticipantSubmitted) EventName() string { return "participant:submitted" }

// SessionComplete carries the computed agreement to the whole room,
// submitter included.
type SessionComplete struct {
	Results *selection.OverlapResult `json:"results"`
}

func (SessionComplete) EventName() string { return "session:complete" }

// SessionRestarted goes to every member including the initiator; a restart
// is a shared reset, not a private fact.
type SessionRestarted struct {
	RestartedBy string `json:"restartedBy"`
}

func (SessionRestarted) EventName() string { return "session:restarted" }

// ParticipantLeft covers both intentional leaves and disconnects. On a
// disconnect the count is unchanged because membership survives.
type ParticipantLeft struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Disconnected     bool   `json:"disconnected"`
	ParticipantCount int    `json:"participantCount"`
}

func (ParticipantLeft) EventName() string { return "participant:left" }

// SessionExpired announces a session purged by the TTL lapsing or an
// administrative delete.
type SessionExpired struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

func (SessionExpired) EventName() string { return "session:expired" }
