package lifecycle

import (
	"testing"

	"github.com/caconnect/CAConnect/app/models"
)

func TestTerminalStatusesHaveNoOutgoingEdges(t *testing.T) {
	all := []string{
		models.RequestStatusPending,
		models.RequestStatusAccepted,
		models.RequestStatusInProgress,
		models.RequestStatusCompleted,
		models.RequestStatusCancelled,
		models.RequestStatusRejected,
		models.RequestStatusEscalated,
	}
	for _, terminal := range []string{models.RequestStatusCompleted, models.RequestStatusCancelled, models.RequestStatusRejected} {
		for _, to := range all {
			if CanTransition(terminal, to) {
				t.Errorf("terminal status %s must not transition to %s", terminal, to)
			}
		}
	}
}

func TestOnlyBackwardEdgeIsReschedule(t *testing.T) {
	if !CanTransition(models.RequestStatusAccepted, models.RequestStatusPending) {
		t.Error("accepted -> pending (reschedule) must be legal")
	}
	if CanTransition(models.RequestStatusInProgress, models.RequestStatusAccepted) {
		t.Error("in_progress -> accepted must not be legal")
	}
	if CanTransition(models.RequestStatusInProgress, models.RequestStatusPending) {
		t.Error("in_progress -> pending must not be legal")
	}
}

func TestCancellable(t *testing.T) {
	for _, status := range []string{
		models.RequestStatusPending,
		models.RequestStatusAccepted,
		models.RequestStatusInProgress,
		models.RequestStatusEscalated,
	} {
		if !Cancellable(status) {
			t.Errorf("%s should be cancellable", status)
		}
	}
	for _, status := range []string{
		models.RequestStatusCompleted,
		models.RequestStatusCancelled,
		models.RequestStatusRejected,
	} {
		if Cancellable(status) {
			t.Errorf("%s should not be cancellable", status)
		}
	}
}
