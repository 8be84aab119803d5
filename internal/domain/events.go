package domain

import "time"

type EventKind int

const (
	EventKill EventKind = iota
	EventDeath
	EventAction
)

// Event is the replay-only union used to build one time-ordered stream.
// Exactly one of Kill, Death or Action is set, matching Kind.
type Event struct {
	Kind   EventKind
	Time   time.Time
	Seq    int
	Kill   *Kill
	Death  *Death
	Action *SessionAction
}
