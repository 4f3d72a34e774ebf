package scan

import (
	"errors"
	"fmt"
)

// State is a pipeline lifecycle state.
type State int

const (
	Idle State = iota
	Opened
	ColumnsDiscovered
	TypesInferred
	Scanning
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Opened:
		return "opened"
	case ColumnsDiscovered:
		return "columns_discovered"
	case TypesInferred:
		return "types_inferred"
	case Scanning:
		return "scanning"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == Completed || s == Failed }

// ErrInvalidTransition is returned when the pipeline is driven out of order,
// for example run twice.
var ErrInvalidTransition = errors.New("invalid pipeline state transition")

// transitions lists the allowed successors of each state. Failed is reachable
// from every non-terminal state and is not listed.
var transitions = map[State][]State{
	Idle:              {Opened},
	Opened:            {ColumnsDiscovered},
	ColumnsDiscovered: {TypesInferred},
	TypesInferred:     {Scanning, Completed},
	Scanning:          {Completed},
}

func canTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == Failed {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
