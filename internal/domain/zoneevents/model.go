package zoneevents

import "time"

type EventType string

const (
	EventEnter EventType = "enter"
	EventExit  EventType = "exit"
	// EventDwell se acepta y se guarda, pero nunca cuenta como señal de pertenencia.
	EventDwell EventType = "dwell"
)

func (t EventType) Valid() bool {
	switch t {
	case EventEnter, EventExit, EventDwell:
		return true
	default:
		return false
	}
}

// GeofenceEvent es inmutable. CreatedAt es la hora del servidor al insertar,
// no la hora del fix GPS.
type GeofenceEvent struct {
	ID         string
	GeofenceID string
	ChildID    string
	EventType  EventType
	Latitude   float64
	Longitude  float64
	CreatedAt  time.Time
}

// State es la última pertenencia conocida de un hijo a una geocerca.
type State int

const (
	StateUnknown State = iota
	StateInside
	StateOutside
)

func (s State) String() string {
	switch s {
	case StateInside:
		return "inside"
	case StateOutside:
		return "outside"
	default:
		return "unknown"
	}
}

// StateOf traduce el último evento enter/exit a un estado.
func StateOf(t EventType) State {
	switch t {
	case EventEnter:
		return StateInside
	case EventExit:
		return StateOutside
	default:
		return StateUnknown
	}
}
