package grouping

import (
	"liciel/internal/status"
	"liciel/internal/synthesis"
)

// GroupStatus is the aggregate state of a set of rows.
type GroupStatus string

const (
	GroupPresent GroupStatus = "present"
	GroupSuspect GroupStatus = "suspect"
	GroupAbsent  GroupStatus = "absent"
)

// Unit banner texts.
const (
	StatePresence              = "Présence d'amiante"
	StateAbsence               = "Absence d'amiante"
	StatePresenceInvestigation = "Présence d'amiante + Investigation"
	StateAbsenceInvestigation  = "Absence d'amiante + Investigation"
	StateInvestigation         = "Investigation à prévoir"
)

// Counts tallies rows per classified result.
type Counts struct {
	Presence int `json:"presence"`
	Absence  int `json:"absence"`
	Suspect  int `json:"suspect"`
	Untested int `json:"non_teste"`
}

// Total is the number of rows counted.
func (c Counts) Total() int {
	return c.Presence + c.Absence + c.Suspect + c.Untested
}

// Classify reads a result text.
func Classify(result string) status.Status {
	return status.Classify(result)
}

// Count classifies the result of every row.
func Count(rows []synthesis.Row) Counts {
	var c Counts
	for _, r := range rows {
		switch Classify(r.Resultat) {
		case status.Presence:
			c.Presence++
		case status.Absence:
			c.Absence++
		case status.Suspect:
			c.Suspect++
		default:
			c.Untested++
		}
	}
	return c
}

// Aggregate is present if any row is a presence, else suspect if any row
// is suspect, else absent. Untested rows alone read as absent.
func Aggregate(rows []synthesis.Row) GroupStatus {
	c := Count(rows)
	switch {
	case c.Presence > 0:
		return GroupPresent
	case c.Suspect > 0:
		return GroupSuspect
	default:
		return GroupAbsent
	}
}

// GlobalState returns the banner text of a unit.
func GlobalState(rows []synthesis.Row) string {
	return globalState(Count(rows))
}

func globalState(c Counts) string {
	switch {
	case c.Presence > 0 && c.Suspect == 0:
		return StatePresence
	case c.Absence > 0 && c.Presence == 0 && c.Suspect == 0:
		return StateAbsence
	case c.Presence > 0 && c.Suspect > 0:
		return StatePresenceInvestigation
	case c.Absence > 0 && c.Suspect > 0 && c.Presence == 0:
		return StateAbsenceInvestigation
	default:
		return StateInvestigation
	}
}
