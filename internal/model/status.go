package model

import (
	"fmt"
	"strings"
)

// Status is a purchase order pipeline state.
type Status string

// Pipeline states, in order.
const (
	StatusPlaced        Status = "pedido"
	StatusManufacturing Status = "fabricacao"
	StatusInTransit     Status = "transito"
	StatusCustoms       Status = "alfandega"
	StatusReceived      Status = "recebido"
)

// Statuses lists every pipeline state in pipeline order.
var Statuses = []Status{
	StatusPlaced,
	StatusManufacturing,
	StatusInTransit,
	StatusCustoms,
	StatusReceived,
}

// InitialStatus is assigned to every new order.
const InitialStatus = StatusPlaced

// ParseStatus converts raw input into a Status. Input is trimmed and lower-cased.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" {
		return "", ErrMissingStatus
	}
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// Valid reports whether s is one of the five pipeline states.
func (s Status) Valid() bool {
	return s.index() >= 0
}

// IsTerminal reports whether s has no forward transition.
func (s Status) IsTerminal() bool {
	return s == StatusReceived
}

// Next returns the following pipeline state. ok is false for the terminal state.
func (s Status) Next() (next Status, ok bool) {
	i := s.index()
	if i < 0 || i == len(Statuses)-1 {
		return "", false
	}
	return Statuses[i+1], true
}

// Previous returns the preceding pipeline state. ok is false for the initial state.
func (s Status) Previous() (prev Status, ok bool) {
	i := s.index()
	if i <= 0 {
		return "", false
	}
	return Statuses[i-1], true
}

// Label returns the human-readable name of the state.
func (s Status) Label() string {
	switch s {
	case StatusPlaced:
		return "Order Placed"
	case StatusManufacturing:
		return "Manufacturing"
	case StatusInTransit:
		return "In Transit"
	case StatusCustoms:
		return "Customs"
	case StatusReceived:
		return "Received"
	}
	return string(s)
}

func (s Status) index() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return -1
}

// IsValidTransition reports whether moving from one state to another is a single
// step forward or backward along the pipeline.
func IsValidTransition(from, to Status) bool {
	fi, ti := from.index(), to.index()
	if fi < 0 || ti < 0 {
		return false
	}
	d := ti - fi
	return d == 1 || d == -1
}

// TransitionPolicy decides which status writes are accepted.
type TransitionPolicy string

const (
	// PolicyAdjacent only accepts single steps forward or backward.
	PolicyAdjacent TransitionPolicy = "adjacent"
	// PolicyPermissive accepts any valid target state regardless of the current one.
	PolicyPermissive TransitionPolicy = "permissive"
)

// ParseTransitionPolicy validates a configured policy name.
func ParseTransitionPolicy(raw string) (TransitionPolicy, error) {
	switch p := TransitionPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case PolicyAdjacent, PolicyPermissive:
		return p, nil
	default:
		return "", fmt.Errorf("invalid transition policy: %s (must be adjacent or permissive)", raw)
	}
}

// Allows reports whether the policy accepts moving from one state to another.
func (p TransitionPolicy) Allows(from, to Status) bool {
	if !to.Valid() {
		return false
	}
	if p == PolicyPermissive {
		return true
	}
	return IsValidTransition(from, to)
}
