package replay

import (
	"errors"
	"time"

	"github.com/vietddude/outpost/internal/core/domain"
)

// State is an alias for domain.SyncState for internal use.
type State = domain.SyncState

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// ValidTransitions defines allowed state transitions.
var ValidTransitions = map[State][]State{
	domain.SyncStateIdle:     {domain.SyncStateDraining},
	domain.SyncStateDraining: {domain.SyncStateIdle},
}

// CanTransition checks if a transition from one state to another is valid.
func CanTransition(from, to State) bool {
	for _, target := range ValidTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Transition represents a state change with metadata.
type Transition struct {
	From      State     `json:"from"`
	To        State     `json:"to"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransition creates a new transition record.
func NewTransition(from, to State, reason string) Transition {
	return Transition{
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// StateDescription returns a human-readable description of a state.
func StateDescription(s State) string {
	switch s {
	case domain.SyncStateIdle:
		return "Idle - waiting for a sync signal"
	case domain.SyncStateDraining:
		return "Draining - replaying the outbox in order"
	default:
		return "Unknown state"
	}
}
