package session

import (
	"math/rand"
	"regexp"
)

// codeAlphabet gives a 36^6 keyspace; collisions among concurrently live
// sessions are astronomically unlikely but still retried.
const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	CodeLength   = 6

	maxCodeAttempts = 10
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func generateCode() string {
	b := make([]byte, CodeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// ValidCode reports whether code has the 6-character session code shape.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}
