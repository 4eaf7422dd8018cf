package session

import (
	"strconv"
	"time"
)

type State string

const (
	StateWaiting   State = "waiting"
	StateSelecting State = "selecting"
	StateComplete  State = "complete"
	StateExpired   State = "expired"
)

// transitions lists the states reachable from each state. Expiry is
// reachable from everywhere; it is terminal.
var transitions = map[State][]State{
	StateWaiting:   {StateSelecting, StateExpired},
	StateSelecting: {StateComplete, StateExpired},
	StateComplete:  {StateSelecting, StateExpired},
	StateExpired:   {},
}

// CanTransition reports whether to is reachable from from.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// GeoParams are the optional place-search parameters attached to a session
// at creation. The engine only stores them; the search itself happens
// outside.
type GeoParams struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Radius int     `json:"radius"`
}

// Session is the canonical session record.
type Session struct {
	Code             string     `json:"code"`
	State            State      `json:"state"`
	ParticipantCount int        `json:"participantCount"`
	CreatedAt        time.Time  `json:"createdAt"`
	LastActivity     time.Time  `json:"lastActivity"`
	HostName         string     `json:"hostName,omitempty"`
	Geo              *GeoParams `json:"geo,omitempty"`
}

func (s *Session) toFields() map[string]string {
	fields := map[string]string{
		"state":            string(s.State),
		"participantCount": strconv.Itoa(s.ParticipantCount),
		"createdAt":        strconv.FormatInt(s.CreatedAt.UnixMilli(), 10),
		"lastActivity":     strconv.FormatInt(s.LastActivity.UnixMilli(), 10),
		"hostName":         s.HostName,
	}
	if s.Geo != nil {
		fields["lat"] = strconv.FormatFloat(s.Geo.Lat, 'f', -1, 64)
		fields["lng"] = strconv.FormatFloat(s.Geo.Lng, 'f', -1, 64)
		fields["radius"] = strconv.Itoa(s.Geo.Radius)
	}
	return fields
}

func fromFields(code string, fields map[string]string) *Session {
	count, _ := strconv.Atoi(fields["participantCount"])
	createdAt, _ := strconv.ParseInt(fields["createdAt"], 10, 64)
	lastActivity, _ := strconv.ParseInt(fields["lastActivity"], 10, 64)

	s := &Session{
		Code:             code,
		State:            State(fields["state"]),
		ParticipantCount: count,
		CreatedAt:        time.UnixMilli(createdAt),
		LastActivity:     time.UnixMilli(lastActivity),
		HostName:         fields["hostName"],
	}
	if _, ok := fields["lat"]; ok {
		lat, _ := strconv.ParseFloat(fields["lat"], 64)
		lng, _ := strconv.ParseFloat(fields["lng"], 64)
		radius, _ := strconv.Atoi(fields["radius"])
		s.Geo = &GeoParams{Lat: lat, Lng: lng, Radius: radius}
	}
	return s
}
