package store

import "strings"

// Key layout for all state owned by a session. Every key carries the session
// code so the expiry coordinator can renew or purge a session's whole
// footprint as one unit.
//
//	session:{code}                  hash: the session record
//	session:{code}:members          set: participant ids
//	session:{code}:host             string: id of the participant who claimed host
//	session:{code}:options          hash: option id -> display name (the candidate catalog)
//	session:{code}:results          set: overlapping option ids of the completed round
//	session:{code}:presence         hash: participant id -> "1" online / "0" offline
//	participant:{code}:{id}         hash: participant metadata
//	selections:{code}:{id}          set: the participant's submitted option ids

func SessionKey(code string) string     { return "session:" + code }
func MembersKey(code string) string     { return "session:" + code + ":members" }
func HostClaimKey(code string) string   { return "session:" + code + ":host" }
func OptionsKey(code string) string     { return "session:" + code + ":options" }
func ResultsKey(code string) string     { return "session:" + code + ":results" }
func PresenceKey(code string) string    { return "session:" + code + ":presence" }
func ParticipantKey(code, id string) string { return "participant:" + code + ":" + id }
func SelectionsKey(code, id string) string  { return "selections:" + code + ":" + id }

// SessionOwnedKeys lists every key logically owned by a session, given its
// current participant ids. Cascade deletes and TTL refreshes both run over
// this list so no owned key can outlive the session record.
func SessionOwnedKeys(code string, participantIDs []string) []string {
	keys := []string{
		SessionKey(code),
		MembersKey(code),
		HostClaimKey(code),
		OptionsKey(code),
		ResultsKey(code),
		PresenceKey(code),
	}
	for _, id := range participantIDs {
		keys = append(keys, ParticipantKey(code, id), SelectionsKey(code, id))
	}
	return keys
}

// SessionCodeFromExpiredKey extracts the session code from an expired key
// name, but only for the bare session record. Sub-keys (members, selections,
// ...) return false so a single session expiry is observed once, not once
// per owned key.
func SessionCodeFromExpiredKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, "session:")
	if !ok {
		return "", false
	}
	if rest == "" || strings.Contains(rest, ":") {
		return "", false
	}
	return rest, true
}

// IsOwnedKey reports whether a key name belongs to this key layout at all.
// The expired-key feed delivers every key on the store; keys under a
// recognized prefix that are not the bare session record are expected
// companions of a session expiry, while anything else is foreign traffic.
func IsOwnedKey(key string) bool {
	return strings.HasPrefix(key, "session:") ||
		strings.HasPrefix(key, "participant:") ||
		strings.HasPrefix(key, "selections:")
}
