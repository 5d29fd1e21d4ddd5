package lifecycle

import "github.com/caconnect/CAConnect/app/models"

// transitions is the legal edge set of the request state machine. Anything
// not listed here is rejected. completed, cancelled and rejected have no
// outgoing edges; the only backward edge is the explicit reschedule from
// accepted back to pending.
var transitions = map[string][]string{
	models.RequestStatusPending: {
		models.RequestStatusAccepted,
		models.RequestStatusRejected,
		models.RequestStatusCancelled,
		models.RequestStatusEscalated,
	},
	models.RequestStatusAccepted: {
		models.RequestStatusInProgress,
		models.RequestStatusRejected,
		models.RequestStatusCancelled,
		models.RequestStatusEscalated,
		models.RequestStatusPending, // reschedule
	},
	models.RequestStatusInProgress: {
		models.RequestStatusCompleted,
		models.RequestStatusCancelled,
		models.RequestStatusEscalated,
	},
	models.RequestStatusEscalated: {
		models.RequestStatusAccepted,
		models.RequestStatusInProgress,
		models.RequestStatusCompleted,
		models.RequestStatusCancelled,
	},
}

// CanTransition reports whether the edge from -> to exists in the graph.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Cancellable reports whether a request in the given status may still be
// cancelled by a party.
func Cancellable(status string) bool {
	return CanTransition(status, models.RequestStatusCancelled)
}
