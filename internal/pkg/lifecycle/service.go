package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caconnect/CAConnect/app/models"
	"github.com/caconnect/CAConnect/app/repository"
	"github.com/caconnect/CAConnect/internal/pkg/ledger"
	"github.com/caconnect/CAConnect/internal/pkg/notification"
	"github.com/caconnect/CAConnect/internal/pkg/usercontext"
	"gorm.io/gorm"
)

// Service owns the ServiceRequest status column. Every transition goes
// through a conditional update in the repository, so concurrent writers
// cannot both win the same edge.
type Service struct {
	requests    repository.ServiceRequestRepository
	accountants repository.AccountantRepository
	payments    *ledger.Service
	notifier    notification.Notifier
}

// NewService wires the request state machine from its collaborators.
func NewService(
	requests repository.ServiceRequestRepository,
	accountants repository.AccountantRepository,
	payments *ledger.Service,
	notifier notification.Notifier,
) *Service {
	return &Service{
		requests:    requests,
		accountants: accountants,
		payments:    payments,
		notifier:    notifier,
	}
}

// BookInput carries everything a taxpayer supplies when opening a request.
type BookInput struct {
	ServiceType     string     `json:"service_type" validate:"required"`
	Purpose         string     `json:"purpose"`
	Priority        string     `json:"priority"`
	RequestedCAID   *uint      `json:"requested_ca_id"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
	Deadline        *time.Time `json:"deadline"`
	EstimatedAmount float64    `json:"estimated_amount"`
}

// AcceptInput carries the CA's scheduling details at acceptance.
type AcceptInput struct {
	ScheduledAt     *time.Time `json:"scheduled_at"`
	EstimatedAmount float64    `json:"estimated_amount"`
}

// Book creates a request in pending with no assigned CA and notifies the
// requested CA, if one was named.
func (s *Service) Book(ctx context.Context, userID uint, in BookInput) (*models.ServiceRequest, error) {
	_ = ctx
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}

	req := &models.ServiceRequest{
		UserID:          userID,
		RequestedCAID:   in.RequestedCAID,
		ServiceType:     in.ServiceType,
		Purpose:         in.Purpose,
		Priority:        priority,
		Status:          models.RequestStatusPending,
		ScheduledAt:     in.ScheduledAt,
		Deadline:        in.Deadline,
		EstimatedAmount: in.EstimatedAmount,
	}
	if err := s.requests.Create(req); err != nil {
		return nil, err
	}

	if in.RequestedCAID != nil {
		s.notify(*in.RequestedCAID, usercontext.KindCA, models.NotificationRequestBooked,
			fmt.Sprintf("New %s consultation request #%d", req.ServiceType, req.ID), req.ID)
	}
	return req, nil
}

// Accept assigns the request to the calling CA. Only a pending request can
// be accepted; of two concurrent accepts exactly one wins and the loser gets
// ErrInvalidState — two different CAs can never both end up assigned.
func (s *Service) Accept(ctx context.Context, requestID, caID uint, in AcceptInput) (*models.ServiceRequest, error) {
	_ = ctx
	if _, err := s.accountants.GetByID(caID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, err
	}

	updates := map[string]interface{}{
		"status": models.RequestStatusAccepted,
		"ca_id":  caID,
	}
	if in.ScheduledAt != nil {
		updates["scheduled_at"] = in.ScheduledAt
	}
	if in.EstimatedAmount > 0 {
		updates["estimated_amount"] = in.EstimatedAmount
	}

	req, err := s.transition(requestID, models.RequestStatusPending, models.RequestStatusAccepted,
		updates, caID, usercontext.KindCA, "")
	if err != nil {
		return nil, err
	}

	s.notify(req.UserID, usercontext.KindUser, models.NotificationRequestAccepted,
		fmt.Sprintf("Your request #%d was accepted; please pay the booking fee", req.ID), req.ID)
	return req, nil
}

// Reject declines a request. From pending any CA may decline; from accepted
// only the assigned CA, and the assignment is reset so the request can be
// rebooked.
func (s *Service) Reject(ctx context.Context, requestID, caID uint, reason string) (*models.ServiceRequest, error) {
	_ = ctx
	req, err := s.get(requestID)
	if err != nil {
		return nil, err
	}

	from := req.Status
	updates := map[string]interface{}{
		"status":              models.RequestStatusRejected,
		"cancellation_reason": reason,
	}
	switch from {
	case models.RequestStatusPending:
		// not yet assigned, nothing further to check
	case models.RequestStatusAccepted:
		if !req.IsAssignedCA(caID) {
			return nil, ErrAccessDenied
		}
		updates["ca_id"] = nil
	default:
		return nil, ErrInvalidState
	}

	req, err = s.transition(requestID, from, models.RequestStatusRejected,
		updates, caID, usercontext.KindCA, reason)
	if err != nil {
		return nil, err
	}

	s.notify(req.UserID, usercontext.KindUser, models.NotificationRequestRejected,
		fmt.Sprintf("Your request #%d was declined", req.ID), req.ID)
	return req, nil
}

// Cancel ends a request before completion. Refunds are computed from the
// status the request held at the moment of cancellation, per the refund
// policy table, and the other party is notified.
func (s *Service) Cancel(ctx context.Context, requestID uint, actor usercontext.Principal, reason string) (*models.ServiceRequest, error) {
	req, err := s.get(requestID)
	if err != nil {
		return nil, err
	}
	if !s.isParty(req, actor) {
		log.Printf("cancel denied: %s %d is not party to request %d", actor.Kind, actor.UserID, requestID)
		return nil, ErrAccessDenied
	}

	priorStatus := req.Status
	if !Cancellable(priorStatus) {
		return nil, ErrInvalidState
	}

	req, err = s.transition(requestID, priorStatus, models.RequestStatusCancelled,
		map[string]interface{}{
			"status":              models.RequestStatusCancelled,
			"cancellation_reason": reason,
		}, actorID(actor), actor.Kind, reason)
	if err != nil {
		return nil, err
	}

	if s.payments != nil {
		if _, err := s.payments.RefundsForCancellation(ctx, requestID, priorStatus, reason); err != nil {
			// The cancellation itself stands; the refund can be retried.
			log.Printf("refunds for cancelled request %d failed: %v", requestID, err)
		}
	}

	s.notifyOtherParty(req, actor, models.NotificationRequestCancelled,
		fmt.Sprintf("Request #%d was cancelled", req.ID))
	return req, nil
}

// UpdateStage records CA work progress. The first stage update moves the
// request from accepted to in_progress; later ones only change the display
// annotation. The canonical status never takes a stage value.
func (s *Service) UpdateStage(ctx context.Context, requestID, caID uint, stage string) (*models.ServiceRequest, error) {
	_ = ctx
	if !models.ValidStage(stage) {
		return nil, ErrInvalidState
	}

	req, err := s.get(requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsAssignedCA(caID) {
		log.Printf("stage update denied: CA %d is not assigned to request %d", caID, requestID)
		return nil, ErrAccessDenied
	}

	switch req.Status {
	case models.RequestStatusAccepted:
		req, err = s.transition(requestID, models.RequestStatusAccepted, models.RequestStatusInProgress,
			map[string]interface{}{
				"status": models.RequestStatusInProgress,
				"stage":  stage,
			}, caID, usercontext.KindCA, stage)
		if err != nil {
			return nil, err
		}
	case models.RequestStatusInProgress:
		ok, terr := s.requests.Transition(requestID, models.RequestStatusInProgress,
			map[string]interface{}{"stage": stage}, nil)
		if terr != nil {
			return nil, terr
		}
		if !ok {
			return nil, ErrInvalidState
		}
		req, err = s.get(requestID)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrInvalidState
	}

	s.notify(req.UserID, usercontext.KindUser, models.NotificationStageUpdated,
		fmt.Sprintf("Request #%d: %s", req.ID, stage), req.ID)
	return req, nil
}

// Complete marks the engagement done. Only the assigned CA may complete, and
// only from in_progress. The CA's filings counter increments exactly once
// because the guarded transition can only be won once.
func (s *Service) Complete(ctx context.Context, requestID, caID uint) (*models.ServiceRequest, error) {
	_ = ctx
	req, err := s.get(requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsAssignedCA(caID) {
		log.Printf("complete denied: CA %d is not assigned to request %d", caID, requestID)
		return nil, ErrAccessDenied
	}

	now := time.Now()
	req, err = s.transition(requestID, models.RequestStatusInProgress, models.RequestStatusCompleted,
		map[string]interface{}{
			"status":       models.RequestStatusCompleted,
			"completed_at": &now,
		}, caID, usercontext.KindCA, "")
	if err != nil {
		return nil, err
	}

	if err := s.accountants.IncrementCompletedFilings(caID); err != nil {
		log.Printf("failed to increment completed filings for CA %d: %v", caID, err)
	}

	s.notify(req.UserID, usercontext.KindUser, models.NotificationRequestCompleted,
		fmt.Sprintf("Request #%d is complete; please pay the service fee", req.ID), req.ID)
	return req, nil
}

// Escalate parks a request for admin attention, stamping escalated_at for
// SLA tracking. Any non-terminal request can be escalated.
func (s *Service) Escalate(ctx context.Context, requestID uint, actor usercontext.Principal, reason string) (*models.ServiceRequest, error) {
	_ = ctx
	req, err := s.get(requestID)
	if err != nil {
		return nil, err
	}
	if !s.isParty(req, actor) && !actor.IsAdmin() {
		return nil, ErrAccessDenied
	}
	if !CanTransition(req.Status, models.RequestStatusEscalated) {
		return nil, ErrInvalidState
	}

	now := time.Now()
	req, err = s.transition(requestID, req.Status, models.RequestStatusEscalated,
		map[string]interface{}{
			"status":       models.RequestStatusEscalated,
			"escalated_at": &now,
		}, actorID(actor), actor.Kind, reason)
	if err != nil {
		return nil, err
	}

	s.notify(req.UserID, usercontext.KindUser, models.NotificationRequestEscalated,
		fmt.Sprintf("Request #%d was escalated", req.ID), req.ID)
	return req, nil
}

// Resume moves an escalated request back into a CA-progress state once the
// dispute is resolved.
func (s *Service) Resume(ctx context.Context, requestID uint, actor usercontext.Principal, toStatus string) (*models.ServiceRequest, error) {
	_ = ctx
	if !actor.IsAdmin() {
		return nil, ErrAccessDenied
	}
	if !CanTransition(models.RequestStatusEscalated, toStatus) {
		return nil, ErrInvalidState
	}

	return s.transition(requestID, models.RequestStatusEscalated, toStatus,
		map[string]interface{}{"status": toStatus},
		actorID(actor), actor.Kind, "escalation resolved")
}

// Reschedule sends an accepted request back to pending, clearing the CA
// assignment. This is the one sanctioned backward edge.
func (s *Service) Reschedule(ctx context.Context, requestID, userID uint) (*models.ServiceRequest, error) {
	_ = ctx
	req, err := s.get(requestID)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, ErrAccessDenied
	}

	req, err = s.transition(requestID, models.RequestStatusAccepted, models.RequestStatusPending,
		map[string]interface{}{
			"status":       models.RequestStatusPending,
			"ca_id":        nil,
			"scheduled_at": nil,
		}, userID, usercontext.KindUser, "rescheduled by user")
	if err != nil {
		return nil, err
	}

	if req.RequestedCAID != nil {
		s.notify(*req.RequestedCAID, usercontext.KindCA, models.NotificationRequestBooked,
			fmt.Sprintf("Request #%d is open again", req.ID), req.ID)
	}
	return req, nil
}

// Get returns a request to one of its parties (or an admin).
func (s *Service) Get(requestID uint, actor usercontext.Principal) (*models.ServiceRequest, error) {
	req, err := s.get(requestID)
	if err != nil {
		return nil, err
	}
	if !s.isParty(req, actor) && !actor.IsAdmin() {
		log.Printf("request read denied: %s %d on request %d", actor.Kind, actor.UserID, requestID)
		return nil, ErrAccessDenied
	}
	return req, nil
}

// ListForUser returns the taxpayer's requests, newest first.
func (s *Service) ListForUser(userID uint, offset, limit int) ([]models.ServiceRequest, error) {
	return s.requests.ListByUser(userID, offset, limit)
}

// ListForCA returns requests assigned to or requested from a CA.
func (s *Service) ListForCA(caID uint, offset, limit int) ([]models.ServiceRequest, error) {
	return s.requests.ListByCA(caID, offset, limit)
}

// Transitions returns the append-only audit trail of a request.
func (s *Service) Transitions(requestID uint, actor usercontext.Principal) ([]models.RequestTransition, error) {
	req, err := s.get(requestID)
	if err != nil {
		return nil, err
	}
	if !s.isParty(req, actor) && !actor.IsAdmin() {
		return nil, ErrAccessDenied
	}
	return s.requests.ListTransitions(requestID)
}

// transition applies one guarded edge and re-reads the row. A guard miss
// maps to ErrInvalidState: either the edge is illegal or someone else won
// the race.
func (s *Service) transition(requestID uint, from, to string, updates map[string]interface{}, actorID uint, actorKind usercontext.PrincipalKind, reason string) (*models.ServiceRequest, error) {
	if !CanTransition(from, to) {
		return nil, ErrInvalidState
	}

	entry := &models.RequestTransition{
		ServiceRequestID: requestID,
		FromStatus:       from,
		ToStatus:         to,
		ActorID:          actorID,
		ActorKind:        string(actorKind),
		Reason:           reason,
	}
	ok, err := s.requests.Transition(requestID, from, updates, entry)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}
	return s.get(requestID)
}

func (s *Service) get(requestID uint) (*models.ServiceRequest, error) {
	req, err := s.requests.GetByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

// isParty reports whether the actor is the request's user or its assigned
// (or requested) CA.
func (s *Service) isParty(req *models.ServiceRequest, actor usercontext.Principal) bool {
	switch actor.Kind {
	case usercontext.KindUser:
		return req.UserID == actor.UserID
	case usercontext.KindCA:
		if req.IsAssignedCA(actor.CAID) {
			return true
		}
		return req.RequestedCAID != nil && *req.RequestedCAID == actor.CAID
	case usercontext.KindAdmin:
		return true
	}
	return false
}

func actorID(actor usercontext.Principal) uint {
	if actor.Kind == usercontext.KindCA {
		return actor.CAID
	}
	return actor.UserID
}

func (s *Service) notify(recipientID uint, kind usercontext.PrincipalKind, event, content string, referenceID uint) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(recipientID, kind, event, content, referenceID, nil)
}

// notifyOtherParty tells whoever did NOT act.
func (s *Service) notifyOtherParty(req *models.ServiceRequest, actor usercontext.Principal, event, content string) {
	if actor.Kind == usercontext.KindCA {
		s.notify(req.UserID, usercontext.KindUser, event, content, req.ID)
		return
	}
	if req.CAID != nil {
		s.notify(*req.CAID, usercontext.KindCA, event, content, req.ID)
	}
}
