// Package status classifies free-text asbestos results.
//
// Classify is the strict reading used for grouping and counters. The Is*
// matchers are looser and also accept unaccented spellings; the
// reconstruction report uses them.
package status

import (
	"encoding/json"
	"strings"
)

// Status is the classified reading of a result text.
type Status int

const (
	Untested Status = iota
	Presence
	Absence
	Suspect
)

var names = [...]string{
	Untested: "non_teste",
	Presence: "present",
	Absence:  "absent",
	Suspect:  "suspect",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(names) {
		return names[Untested]
	}
	return names[s]
}

// MarshalJSON encodes the status by name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Classify reads result case-insensitively. Presence is tested first, so
// "présence suspectée" counts as a presence.
func Classify(result string) Status {
	v := strings.ToLower(result)
	switch {
	case containsAny(v, "présence", "positif"):
		return Presence
	case containsAny(v, "absence", "négatif"):
		return Absence
	case containsAny(v, "suspect", "susceptible", "à confirmer"):
		return Suspect
	default:
		return Untested
	}
}

// IsPresence reports whether v reads as a presence, accented or not.
func IsPresence(v string) bool {
	return containsAny(strings.ToLower(v), "présence", "present", "positif")
}

// IsAbsence reports whether v reads as an absence, accented or not.
func IsAbsence(v string) bool {
	return containsAny(strings.ToLower(v), "absence", "absent", "négatif", "negatif")
}

// IsSuspect reports whether v calls for a confirmation.
func IsSuspect(v string) bool {
	return containsAny(strings.ToLower(v), "suspect", "susceptible", "à confirmer", "a confirmer")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
