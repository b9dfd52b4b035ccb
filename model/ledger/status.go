package ledger

import "fmt"

// Status is a canonical transaction lifecycle state.
type Status string

const (
	StatusImported  Status = "IMPORTED"
	StatusValidated Status = "VALIDATED"
	StatusException Status = "EXCEPTION"
	StatusResolved  Status = "RESOLVED"
	StatusLocked    Status = "LOCKED"
	StatusRejected  Status = "REJECTED"
)

var transitions = map[Status][]Status{
	StatusImported:  {StatusValidated, StatusException, StatusRejected},
	StatusException: {StatusResolved, StatusRejected},
	StatusValidated: {StatusLocked},
	StatusResolved:  {StatusLocked},
}

// Valid reports whether s is one of the canonical states.
func (s Status) Valid() bool {
	switch s {
	case StatusImported, StatusValidated, StatusException, StatusResolved, StatusLocked, StatusRejected:
		return true
	}
	return false
}

// CanTransition reports whether the state machine permits s -> to.
func (s Status) CanTransition(to Status) bool {
	for _, candidate := range transitions[s] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Editable reports whether a transaction in s may still be mutated.
func (s Status) Editable() bool {
	return s == StatusImported || s == StatusException
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Closable reports whether season closure may lock a transaction in s.
func (s Status) Closable() bool {
	return s.CanTransition(StatusLocked)
}

// Transition returns an error when s -> to is not a legal move.
func (s Status) Transition(to Status) error {
	if !s.CanTransition(to) {
		return fmt.Errorf("illegal transition %s -> %s", s, to)
	}
	return nil
}
