package meeting

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caconnect/CAConnect/app/models"
	"github.com/caconnect/CAConnect/app/repository"
	"github.com/caconnect/CAConnect/internal/pkg/notification"
	"github.com/caconnect/CAConnect/internal/pkg/usercontext"
	"gorm.io/gorm"
)

var (
	// ErrRequestNotFound means the service request does not exist.
	ErrRequestNotFound = errors.New("service request not found")

	// ErrMeetingNotFound means no meeting exists where one was expected.
	ErrMeetingNotFound = errors.New("meeting not found")

	// ErrAccessDenied means the caller is not a party to the request.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidState means the request or meeting cannot take the operation
	// in its current status.
	ErrInvalidState = errors.New("invalid state for meeting operation")

	// ErrProvider wraps failures from the video provider.
	ErrProvider = errors.New("meeting provider error")
)

// Scheduler owns Meeting rows. At most one active meeting exists per
// request; scheduling twice returns the existing one.
type Scheduler struct {
	meetings repository.MeetingRepository
	requests repository.ServiceRequestRepository
	provider Provider
	notifier notification.Notifier
}

func NewScheduler(
	meetings repository.MeetingRepository,
	requests repository.ServiceRequestRepository,
	provider Provider,
	notifier notification.Notifier,
) *Scheduler {
	return &Scheduler{
		meetings: meetings,
		requests: requests,
		provider: provider,
		notifier: notifier,
	}
}

// Schedule creates a meeting for the request, or returns the active one if
// it already exists. Only parties to a live request may schedule.
func (s *Scheduler) Schedule(ctx context.Context, requestID uint, actor usercontext.Principal, startsAt time.Time, durationMinutes int) (*models.Meeting, error) {
	req, err := s.getRequest(requestID)
	if err != nil {
		return nil, err
	}
	if !isParty(req, actor) {
		log.Printf("meeting schedule denied: %s %d on request %d", actor.Kind, actor.UserID, requestID)
		return nil, ErrAccessDenied
	}
	switch req.Status {
	case models.RequestStatusAccepted, models.RequestStatusInProgress, models.RequestStatusEscalated:
		// schedulable
	default:
		return nil, ErrInvalidState
	}

	if existing, err := s.meetings.GetActiveByRequest(requestID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if durationMinutes <= 0 {
		durationMinutes = 30
	}

	topic := fmt.Sprintf("%s consultation, request #%d", req.ServiceType, req.ID)
	details, err := s.provider.Create(ctx, topic, startsAt, durationMinutes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	m := &models.Meeting{
		ServiceRequestID: requestID,
		Provider:         s.provider.Name(),
		ExternalID:       details.ExternalID,
		JoinURL:          details.JoinURL,
		StartURL:         details.StartURL,
		Password:         details.Password,
		ScheduledAt:      startsAt,
		DurationMinutes:  durationMinutes,
		Status:           models.MeetingStatusScheduled,
	}
	if err := s.meetings.Create(m); err != nil {
		return nil, err
	}

	req.MeetingID = &m.ID
	if err := s.requests.Update(req); err != nil {
		log.Printf("failed to link meeting %d onto request %d: %v", m.ID, requestID, err)
	}

	s.notifyOtherParty(req, actor,
		fmt.Sprintf("Meeting scheduled for request #%d at %s", req.ID, startsAt.Format(time.RFC1123)))
	return m, nil
}

// Reschedule moves the active meeting to a new time and propagates the
// change to the provider.
func (s *Scheduler) Reschedule(ctx context.Context, requestID uint, actor usercontext.Principal, startsAt time.Time, durationMinutes int) (*models.Meeting, error) {
	req, err := s.getRequest(requestID)
	if err != nil {
		return nil, err
	}
	if !isParty(req, actor) {
		return nil, ErrAccessDenied
	}

	m, err := s.meetings.GetActiveByRequest(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}

	if durationMinutes <= 0 {
		durationMinutes = m.DurationMinutes
	}
	if err := s.provider.Update(ctx, m.ExternalID, startsAt, durationMinutes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	m.ScheduledAt = startsAt
	m.DurationMinutes = durationMinutes
	m.Status = models.MeetingStatusRescheduled
	if err := s.meetings.Update(m); err != nil {
		return nil, err
	}

	s.notifyOtherParty(req, actor,
		fmt.Sprintf("Meeting for request #%d moved to %s", req.ID, startsAt.Format(time.RFC1123)))
	return m, nil
}

// Cancel marks the active meeting cancelled. The row stays as an audit
// trail; a new meeting may be scheduled afterwards.
func (s *Scheduler) Cancel(ctx context.Context, requestID uint, actor usercontext.Principal) error {
	req, err := s.getRequest(requestID)
	if err != nil {
		return err
	}
	if !isParty(req, actor) {
		return ErrAccessDenied
	}

	m, err := s.meetings.GetActiveByRequest(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMeetingNotFound
		}
		return err
	}

	if err := s.provider.Cancel(ctx, m.ExternalID); err != nil {
		// The local cancellation stands; the provider side can be cleaned up
		// manually if the API call did not go through.
		log.Printf("provider cancel for meeting %d failed: %v", m.ID, err)
	}

	m.Status = models.MeetingStatusCancelled
	if err := s.meetings.Update(m); err != nil {
		return err
	}

	s.notifyOtherParty(req, actor, fmt.Sprintf("Meeting for request #%d was cancelled", req.ID))
	return nil
}

// Get returns the active meeting of a request to one of its parties. The
// StartURL is stripped for the taxpayer; only the host starts the call.
func (s *Scheduler) Get(requestID uint, actor usercontext.Principal) (*models.Meeting, error) {
	req, err := s.getRequest(requestID)
	if err != nil {
		return nil, err
	}
	if !isParty(req, actor) {
		return nil, ErrAccessDenied
	}

	m, err := s.meetings.GetActiveByRequest(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}
	if actor.Kind == usercontext.KindUser {
		m.StartURL = ""
	}
	return m, nil
}

func (s *Scheduler) getRequest(requestID uint) (*models.ServiceRequest, error) {
	req, err := s.requests.GetByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

func isParty(req *models.ServiceRequest, actor usercontext.Principal) bool {
	switch actor.Kind {
	case usercontext.KindUser:
		return req.UserID == actor.UserID
	case usercontext.KindCA:
		return req.IsAssignedCA(actor.CAID)
	case usercontext.KindAdmin:
		return true
	}
	return false
}

func (s *Scheduler) notifyOtherParty(req *models.ServiceRequest, actor usercontext.Principal, content string) {
	if s.notifier == nil {
		return
	}
	if actor.Kind == usercontext.KindCA {
		s.notifier.Notify(req.UserID, usercontext.KindUser, models.NotificationMeetingScheduled, content, req.ID, nil)
		return
	}
	if req.CAID != nil {
		s.notifier.Notify(*req.CAID, usercontext.KindCA, models.NotificationMeetingScheduled, content, req.ID, nil)
	}
}
