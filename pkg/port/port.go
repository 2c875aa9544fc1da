// Package port holds the event and state vocabulary shared by the hal
// backends and the adi engine.
package port

import "time"

// EventType indicates the type of change to the line active state.
//
// Note that for active low lines a low line level results in a high active
// state.
type EventType int

const (
	_ EventType = iota
	// RisingEdge indicates an inactive to active event (low to high).
	RisingEdge
	// FallingEdge indicates an active to inactive event (high to low).
	FallingEdge
)

// Event is a single edge seen on a watched channel.
type Event struct {
	// Timestamp indicates the time the event was detected.
	Timestamp time.Duration
	// The type of state change event this structure represents.
	Type EventType
}

type StateType int

const (
	// High indicates a logical 1.
	High StateType = 1
	// Low indicates a logical 0.
	Low StateType = 0
	// Invalid indicates an unknown or invalid state.
	Invalid StateType = -1
)

// State maps a boolean line level to a StateType.
func State(level bool) StateType {
	if level {
		return High
	}
	return Low
}
