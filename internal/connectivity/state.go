package connectivity

import "time"

const unknownDescription = "Connectivity unknown"

// State is a point-in-time view of connectivity.
type State struct {
	Online      bool      `json:"online"`
	Description string    `json:"description"`
	ChangedAt   time.Time `json:"changed_at"`
}

// Transition pairs the state before and after a change.
type Transition struct {
	Previous State
	Current  State
}

// CameOnline reports whether the transition is an offline to online edge.
func (t Transition) CameOnline() bool {
	return !t.Previous.Online && t.Current.Online
}

// WentOffline reports whether the transition is an online to offline edge.
func (t Transition) WentOffline() bool {
	return t.Previous.Online && !t.Current.Online
}
