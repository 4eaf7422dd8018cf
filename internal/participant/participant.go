package participant

import (
	"strconv"
	"time"
)

// MaxPerSession caps group size. The product is built around small
// ephemeral groups; a 5th join is rejected, never queued.
const MaxPerSession = 4

// Participant is one connection-scoped member of a session. Identity is per
// connection, not per person: the same human reconnecting arrives as a new
// participant.
type Participant struct {
	ID           string    `json:"id"`
	SessionCode  string    `json:"-"`
	Name         string    `json:"name"`
	JoinedAt     time.Time `json:"joinedAt"`
	HasSubmitted bool      `json:"hasSubmitted"`
	IsHost       bool      `json:"isHost"`
}

func (p *Participant) toFields() map[string]string {
	return map[string]string{
		"name":         p.Name,
		"joinedAt":     strconv.FormatInt(p.JoinedAt.UnixMilli(), 10),
		"hasSubmitted": boolField(p.HasSubmitted),
		"isHost":       boolField(p.IsHost),
	}
}

func fromFields(code, id string, fields map[string]string) *Participant {
	joinedAt, _ := strconv.ParseInt(fields["joinedAt"], 10, 64)
	return &Participant{
		ID:           id,
		SessionCode:  code,
		Name:         fields["name"],
		JoinedAt:     time.UnixMilli(joinedAt),
		HasSubmitted: fields["hasSubmitted"] == "1",
		IsHost:       fields["isHost"] == "1",
	}
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
