package domain

import "time"

// Status represents the lifecycle state of a gift-exchange session.
type Status string

const (
	StatusOpen     Status = "open"
	StatusDrawn    Status = "drawn"
	StatusNotified Status = "notified"
)

// Event represents an action that triggers a state transition.
type Event string

const (
	EventEdit   Event = "edit"
	EventDraw   Event = "draw"
	EventNotify Event = "notify"
)

// Transition defines a valid state change: an event moves a session from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines all valid state changes in the session lifecycle.
// Editing a drawn session reopens it; a notified session is frozen.
var Transitions = []Transition{
	{Event: EventEdit, Src: StatusOpen, Dst: StatusOpen},
	{Event: EventEdit, Src: StatusDrawn, Dst: StatusOpen},
	{Event: EventDraw, Src: StatusOpen, Dst: StatusDrawn},
	{Event: EventDraw, Src: StatusDrawn, Dst: StatusDrawn},
	{Event: EventNotify, Src: StatusDrawn, Dst: StatusNotified},
	{Event: EventNotify, Src: StatusNotified, Dst: StatusNotified},
}

// Session groups the participants of one exchange and its current assignment set.
type Session struct {
	ID           string
	Name         string
	Status       Status
	Participants []Participant
	Assignments  []Assignment
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSession creates a session in the initial "open" state.
func NewSession(id, name string) Session {
	now := time.Now().UTC()
	return Session{
		ID:        id,
		Name:      name,
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Participant returns the participant with the given id.
func (s Session) Participant(id string) (Participant, bool) {
	for _, p := range s.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}
