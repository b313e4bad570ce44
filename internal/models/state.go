package models

// State is the lifecycle state of a column or a card.
type State string

const (
	StateActive   State = "ACTIVE"
	StateArchived State = "ARCHIVED"
	StatePurged   State = "PURGED"
)

// CanTransition reports whether from -> to is a legal lifecycle step.
// PURGED is terminal and an active entity has to be archived before it can be purged.
func CanTransition(from, to State) bool {
	switch from {
	case StateActive:
		return to == StateArchived
	case StateArchived:
		return to == StateActive || to == StatePurged
	default:
		return false
	}
}

func (c Column) State() State {
	if c.Archived() {
		return StateArchived
	}
	return StateActive
}

func (c Card) State() State {
	if c.Archived() {
		return StateArchived
	}
	return StateActive
}
