package meeting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caconnect/CAConnect/app/models"
	"github.com/caconnect/CAConnect/internal/pkg/usercontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeMeetingRepo struct {
	nextID   uint
	meetings map[uint]*models.Meeting
}

func newFakeMeetingRepo() *fakeMeetingRepo {
	return &fakeMeetingRepo{nextID: 1, meetings: make(map[uint]*models.Meeting)}
}

func (f *fakeMeetingRepo) Create(m *models.Meeting) error {
	m.ID = f.nextID
	f.nextID++
	cp := *m
	f.meetings[m.ID] = &cp
	return nil
}

func (f *fakeMeetingRepo) GetByID(id uint) (*models.Meeting, error) {
	if m, ok := f.meetings[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMeetingRepo) GetActiveByRequest(requestID uint) (*models.Meeting, error) {
	for _, m := range f.meetings {
		if m.ServiceRequestID == requestID && m.Status != models.MeetingStatusCancelled {
			cp := *m
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMeetingRepo) Update(m *models.Meeting) error {
	if _, ok := f.meetings[m.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *m
	f.meetings[m.ID] = &cp
	return nil
}

type fakeRequestRepo struct {
	requests map[uint]*models.ServiceRequest
}

func (f *fakeRequestRepo) Create(r *models.ServiceRequest) error { return nil }

func (f *fakeRequestRepo) GetByID(id uint) (*models.ServiceRequest, error) {
	if r, ok := f.requests[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRequestRepo) Update(r *models.ServiceRequest) error {
	cp := *r
	f.requests[r.ID] = &cp
	return nil
}

func (f *fakeRequestRepo) Transition(id uint, fromStatus string, updates map[string]interface{}, entry *models.RequestTransition) (bool, error) {
	return false, errors.New("not used in meeting tests")
}

func (f *fakeRequestRepo) ListByUser(userID uint, offset, limit int) ([]models.ServiceRequest, error) {
	return nil, nil
}

func (f *fakeRequestRepo) ListByCA(caID uint, offset, limit int) ([]models.ServiceRequest, error) {
	return nil, nil
}

func (f *fakeRequestRepo) ListTransitions(requestID uint) ([]models.RequestTransition, error) {
	return nil, nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *fakeMeetingRepo, *MockProvider) {
	t.Helper()
	assigned := uint(3)
	requests := &fakeRequestRepo{requests: map[uint]*models.ServiceRequest{
		42: {
			ID:          42,
			UserID:      7,
			CAID:        &assigned,
			ServiceType: "itr_filing",
			Status:      models.RequestStatusAccepted,
		},
	}}
	meetings := newFakeMeetingRepo()
	provider := NewMockProvider()
	return NewScheduler(meetings, requests, provider, nil), meetings, provider
}

func schedulerCA() usercontext.Principal {
	return usercontext.Principal{UserID: 9, CAID: 3, Kind: usercontext.KindCA, IsLoggedIn: true}
}

func TestScheduleIsIdempotentPerRequest(t *testing.T) {
	s, _, provider := newTestScheduler(t)
	ctx := context.Background()
	startsAt := time.Now().Add(24 * time.Hour)

	first, err := s.Schedule(ctx, 42, schedulerCA(), startsAt, 45)
	require.NoError(t, err)
	require.NotEmpty(t, first.JoinURL)
	assert.Equal(t, models.MeetingStatusScheduled, first.Status)

	second, err := s.Schedule(ctx, 42, schedulerCA(), startsAt.Add(time.Hour), 30)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, provider.Count(), "no duplicate provider meeting")
}

func TestScheduleAfterCancelCreatesNewMeeting(t *testing.T) {
	s, repo, provider := newTestScheduler(t)
	ctx := context.Background()
	startsAt := time.Now().Add(24 * time.Hour)

	first, err := s.Schedule(ctx, 42, schedulerCA(), startsAt, 30)
	require.NoError(t, err)

	require.NoError(t, s.Cancel(ctx, 42, schedulerCA()))
	cancelled, err := repo.GetByID(first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MeetingStatusCancelled, cancelled.Status, "cancelled row is kept")

	second, err := s.Schedule(ctx, 42, schedulerCA(), startsAt.Add(2*time.Hour), 30)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, provider.Count())
}

func TestRescheduleMovesAndPropagates(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	ctx := context.Background()
	startsAt := time.Now().Add(24 * time.Hour)

	_, err := s.Schedule(ctx, 42, schedulerCA(), startsAt, 30)
	require.NoError(t, err)

	moved := startsAt.Add(48 * time.Hour)
	m, err := s.Reschedule(ctx, 42, schedulerCA(), moved, 60)
	require.NoError(t, err)
	assert.Equal(t, models.MeetingStatusRescheduled, m.Status)
	assert.True(t, m.ScheduledAt.Equal(moved))
	assert.Equal(t, 60, m.DurationMinutes)
}

func TestProviderFailureDoesNotPersistMeeting(t *testing.T) {
	s, repo, provider := newTestScheduler(t)
	ctx := context.Background()
	provider.FailNext = errors.New("zoom is down")

	_, err := s.Schedule(ctx, 42, schedulerCA(), time.Now().Add(time.Hour), 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
	_, err = repo.GetActiveByRequest(42)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestScheduleDeniedForStrangers(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	stranger := usercontext.Principal{UserID: 100, CAID: 55, Kind: usercontext.KindCA, IsLoggedIn: true}

	_, err := s.Schedule(context.Background(), 42, stranger, time.Now().Add(time.Hour), 30)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestUserMeetingViewHidesStartURL(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	ctx := context.Background()

	_, err := s.Schedule(ctx, 42, schedulerCA(), time.Now().Add(time.Hour), 30)
	require.NoError(t, err)

	user := usercontext.Principal{UserID: 7, Kind: usercontext.KindUser, IsLoggedIn: true}
	m, err := s.Get(42, user)
	require.NoError(t, err)
	assert.Empty(t, m.StartURL)
	assert.NotEmpty(t, m.JoinURL)
}
