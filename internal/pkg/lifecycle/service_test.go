package lifecycle

import (
	"context"
	"testing"

	"github.com/caconnect/CAConnect/app/models"
	"github.com/caconnect/CAConnect/internal/pkg/usercontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUserID = 7
	testCAID   = 3
	otherCAID  = 5
)

func newTestService(t *testing.T, requests ...*models.ServiceRequest) (*Service, *fakeRequestRepo, *fakeAccountantRepo) {
	t.Helper()
	requestRepo := newFakeRequestRepo(requests...)
	accountantRepo := newFakeAccountantRepo(
		&models.CharteredAccountant{ID: testCAID, UserID: 9},
		&models.CharteredAccountant{ID: otherCAID, UserID: 11},
	)
	return NewService(requestRepo, accountantRepo, nil, nil), requestRepo, accountantRepo
}

func pendingRequest(id uint) *models.ServiceRequest {
	return &models.ServiceRequest{
		ID:          id,
		UserID:      testUserID,
		ServiceType: "itr_filing",
		Status:      models.RequestStatusPending,
	}
}

func acceptedRequest(id uint) *models.ServiceRequest {
	caID := uint(testCAID)
	req := pendingRequest(id)
	req.Status = models.RequestStatusAccepted
	req.CAID = &caID
	return req
}

func userActor() usercontext.Principal {
	return usercontext.Principal{UserID: testUserID, Kind: usercontext.KindUser, IsLoggedIn: true}
}

func caActor() usercontext.Principal {
	return usercontext.Principal{UserID: 9, CAID: testCAID, Kind: usercontext.KindCA, IsLoggedIn: true}
}

func adminActor() usercontext.Principal {
	return usercontext.Principal{UserID: 1, Kind: usercontext.KindAdmin, IsLoggedIn: true}
}

func TestBookCreatesPendingRequest(t *testing.T) {
	svc, _, _ := newTestService(t)

	req, err := svc.Book(context.Background(), testUserID, BookInput{ServiceType: "itr_filing"})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.Nil(t, req.CAID)
	assert.Equal(t, models.PriorityNormal, req.Priority)
}

func TestAcceptAssignsCA(t *testing.T) {
	svc, repo, _ := newTestService(t, pendingRequest(1))

	req, err := svc.Accept(context.Background(), 1, testCAID, AcceptInput{EstimatedAmount: 3000})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusAccepted, req.Status)
	require.NotNil(t, req.CAID)
	assert.Equal(t, uint(testCAID), *req.CAID)
	assert.InDelta(t, 3000, req.EstimatedAmount, 0.001)

	entries, err := repo.ListTransitions(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.RequestStatusPending, entries[0].FromStatus)
	assert.Equal(t, models.RequestStatusAccepted, entries[0].ToStatus)
}

func TestSecondAcceptLosesTheRace(t *testing.T) {
	svc, _, _ := newTestService(t, pendingRequest(1))
	ctx := context.Background()

	_, err := svc.Accept(ctx, 1, testCAID, AcceptInput{})
	require.NoError(t, err)

	_, err = svc.Accept(ctx, 1, otherCAID, AcceptInput{})
	assert.ErrorIs(t, err, ErrInvalidState)

	req, err := svc.Get(1, adminActor())
	require.NoError(t, err)
	assert.Equal(t, uint(testCAID), *req.CAID, "the first CA keeps the assignment")
}

func TestAcceptByUnknownCA(t *testing.T) {
	svc, _, _ := newTestService(t, pendingRequest(1))

	_, err := svc.Accept(context.Background(), 1, 999, AcceptInput{})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestRejectFromAcceptedResetsAssignment(t *testing.T) {
	svc, _, _ := newTestService(t, acceptedRequest(1))

	req, err := svc.Reject(context.Background(), 1, testCAID, "conflict of interest")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, req.Status)
	assert.Nil(t, req.CAID)
	assert.Equal(t, "conflict of interest", req.CancellationReason)
}

func TestRejectFromAcceptedByOtherCADenied(t *testing.T) {
	svc, _, _ := newTestService(t, acceptedRequest(1))

	_, err := svc.Reject(context.Background(), 1, otherCAID, "not mine")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestFirstStageUpdateStartsWork(t *testing.T) {
	svc, _, _ := newTestService(t, acceptedRequest(1))
	ctx := context.Background()

	req, err := svc.UpdateStage(ctx, 1, testCAID, models.StageDocumentsRequested)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusInProgress, req.Status)
	assert.Equal(t, models.StageDocumentsRequested, req.Stage)

	// Later stage updates change only the annotation.
	req, err = svc.UpdateStage(ctx, 1, testCAID, models.StageFiled)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusInProgress, req.Status)
	assert.Equal(t, models.StageFiled, req.Stage)
}

func TestStageUpdateByNonAssignedCADenied(t *testing.T) {
	svc, _, _ := newTestService(t, acceptedRequest(1))

	_, err := svc.UpdateStage(context.Background(), 1, otherCAID, models.StageDocumentsRequested)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestStageUpdateRejectsUnknownStage(t *testing.T) {
	svc, _, _ := newTestService(t, acceptedRequest(1))

	_, err := svc.UpdateStage(context.Background(), 1, testCAID, "totally_done")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteIncrementsFilingsExactlyOnce(t *testing.T) {
	svc, _, accountants := newTestService(t, acceptedRequest(1))
	ctx := context.Background()

	_, err := svc.UpdateStage(ctx, 1, testCAID, models.StageFiled)
	require.NoError(t, err)

	req, err := svc.Complete(ctx, 1, testCAID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, req.Status)
	assert.NotNil(t, req.CompletedAt)
	assert.Equal(t, 1, accountants.completedFilings(testCAID))

	_, err = svc.Complete(ctx, 1, testCAID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 1, accountants.completedFilings(testCAID), "replayed complete does not count twice")
}

func TestCompleteRequiresAssignedCA(t *testing.T) {
	svc, _, _ := newTestService(t, acceptedRequest(1))
	ctx := context.Background()

	_, err := svc.UpdateStage(ctx, 1, testCAID, models.StageFiled)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, 1, otherCAID)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestCompleteFromAcceptedIsInvalid(t *testing.T) {
	svc, _, _ := newTestService(t, acceptedRequest(1))

	_, err := svc.Complete(context.Background(), 1, testCAID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestTerminalStatusesAcceptNothing(t *testing.T) {
	completed := acceptedRequest(1)
	completed.Status = models.RequestStatusCompleted
	cancelled := acceptedRequest(2)
	cancelled.Status = models.RequestStatusCancelled
	svc, _, _ := newTestService(t, completed, cancelled)
	ctx := context.Background()

	_, err := svc.UpdateStage(ctx, 1, testCAID, models.StageFiled)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Cancel(ctx, 1, userActor(), "too late")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Accept(ctx, 2, testCAID, AcceptInput{})
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Escalate(ctx, 2, userActor(), "stuck")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelRecordsReason(t *testing.T) {
	svc, repo, _ := newTestService(t, acceptedRequest(1))

	req, err := svc.Cancel(context.Background(), 1, userActor(), "found another CA")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCancelled, req.Status)
	assert.Equal(t, "found another CA", req.CancellationReason)

	entries, err := repo.ListTransitions(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.RequestStatusAccepted, entries[0].FromStatus)
	assert.Equal(t, models.RequestStatusCancelled, entries[0].ToStatus)
	assert.Equal(t, string(usercontext.KindUser), entries[0].ActorKind)
}

func TestCancelByStrangerDenied(t *testing.T) {
	svc, _, _ := newTestService(t, acceptedRequest(1))

	stranger := usercontext.Principal{UserID: 999, Kind: usercontext.KindUser, IsLoggedIn: true}
	_, err := svc.Cancel(context.Background(), 1, stranger, "nope")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestEscalateAndResume(t *testing.T) {
	svc, _, _ := newTestService(t, acceptedRequest(1))
	ctx := context.Background()

	req, err := svc.Escalate(ctx, 1, userActor(), "no response for a week")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusEscalated, req.Status)
	assert.NotNil(t, req.EscalatedAt)

	// Only admins resolve escalations.
	_, err = svc.Resume(ctx, 1, userActor(), models.RequestStatusInProgress)
	assert.ErrorIs(t, err, ErrAccessDenied)

	req, err = svc.Resume(ctx, 1, adminActor(), models.RequestStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusInProgress, req.Status)
}

func TestResumeRejectsIllegalTarget(t *testing.T) {
	svc, _, _ := newTestService(t, acceptedRequest(1))
	ctx := context.Background()

	_, err := svc.Escalate(ctx, 1, userActor(), "stuck")
	require.NoError(t, err)

	_, err = svc.Resume(ctx, 1, adminActor(), models.RequestStatusPending)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRescheduleReturnsToPending(t *testing.T) {
	svc, _, _ := newTestService(t, acceptedRequest(1))

	req, err := svc.Reschedule(context.Background(), 1, testUserID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.Nil(t, req.CAID)
	assert.Nil(t, req.ScheduledAt)
}

func TestRescheduleOnlyFromAccepted(t *testing.T) {
	svc, _, _ := newTestService(t, pendingRequest(1))

	_, err := svc.Reschedule(context.Background(), 1, testUserID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestGetEnforcesPartyAccess(t *testing.T) {
	svc, _, _ := newTestService(t, acceptedRequest(1))

	_, err := svc.Get(1, userActor())
	require.NoError(t, err)
	_, err = svc.Get(1, caActor())
	require.NoError(t, err)

	stranger := usercontext.Principal{UserID: 100, CAID: otherCAID, Kind: usercontext.KindCA, IsLoggedIn: true}
	_, err = svc.Get(1, stranger)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.Get(404, userActor())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuditTrailGrowsWithEachTransition(t *testing.T) {
	svc, _, _ := newTestService(t, pendingRequest(1))
	ctx := context.Background()

	_, err := svc.Accept(ctx, 1, testCAID, AcceptInput{})
	require.NoError(t, err)
	_, err = svc.UpdateStage(ctx, 1, testCAID, models.StageDocumentsRequested)
	require.NoError(t, err)
	_, err = svc.Complete(ctx, 1, testCAID)
	require.NoError(t, err)

	entries, err := svc.Transitions(1, userActor())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, models.RequestStatusCompleted, entries[2].ToStatus)
}
