// Package execution models the outcome of scenario executions: the
// status lattice shared by steps and campaigns, the immutable step
// report tree, and the scenario report that wraps it.
package execution

import "strings"

// Status is the outcome of a step, scenario or campaign execution.
type Status string

// Status constants for execution outcomes.
const (
	StatusSuccess     Status = "SUCCESS"
	StatusFailure     Status = "FAILURE"
	StatusStopped     Status = "STOPPED"
	StatusRunning     Status = "RUNNING"
	StatusPaused      Status = "PAUSED"
	StatusNotExecuted Status = "NOT_EXECUTED"
)

// rank orders statuses for aggregation. Higher wins.
var rank = map[Status]int{
	StatusNotExecuted: 1,
	StatusSuccess:     2,
	StatusPaused:      3,
	StatusRunning:     4,
	StatusStopped:     5,
	StatusFailure:     6,
}

// Aggregate reduces a set of child statuses to the status of their
// parent. Precedence, highest first, is FAILURE, STOPPED, RUNNING,
// PAUSED, SUCCESS, NOT_EXECUTED. An empty set is SUCCESS. Statuses
// outside the known set never win over a known one; a set holding
// only unknown statuses is SUCCESS.
func Aggregate(statuses []Status) Status {
	worst := StatusSuccess
	worstRank := 0
	for _, s := range statuses {
		if r := rank[s]; r > worstRank {
			worst = s
			worstRank = r
		}
	}
	return worst
}

// ParseStatus converts a string to a Status, ignoring case and
// surrounding whitespace. The second return value is false when
// the string names no known status.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", false
	}
	return st, true
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := rank[s]
	return ok
}

// IsFinal returns true if the status is a terminal state.
func (s Status) IsFinal() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusStopped,
		StatusNotExecuted:
		return true
	}
	return false
}

// IsFailed returns true for outcomes that make a scenario a
// candidate for re-execution.
func (s Status) IsFailed() bool {
	switch s {
	case StatusFailure, StatusStopped, StatusNotExecuted:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
