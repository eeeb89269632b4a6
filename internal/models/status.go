package models

const (
	StatusConfirmed = "confirmed"
	StatusReady     = "ready"
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// transitions is the allowed forward path plus cancellation from any
// non-terminal state. completed and cancelled are terminal.
var transitions = map[string][]string{
	StatusConfirmed: {StatusReady, StatusCancelled},
	StatusReady:     {StatusOngoing, StatusCancelled},
	StatusOngoing:   {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// ValidStatus reports whether s is one of the five booking statuses.
func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// ValidTransition reports whether a booking may move from one status to
// another in a single step.
func ValidTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further lifecycle transition is permitted.
func Terminal(status string) bool {
	return len(transitions[status]) == 0 && ValidStatus(status)
}
