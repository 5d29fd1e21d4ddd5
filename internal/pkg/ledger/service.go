package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caconnect/CAConnect/app/models"
	"github.com/caconnect/CAConnect/app/repository"
	"github.com/caconnect/CAConnect/internal/pkg/coupon"
	"github.com/caconnect/CAConnect/internal/pkg/gateway"
	"github.com/caconnect/CAConnect/internal/pkg/money"
	"github.com/caconnect/CAConnect/internal/pkg/notification"
	"github.com/caconnect/CAConnect/internal/pkg/usercontext"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service owns all Payment rows. Nothing else writes them.
type Service struct {
	payments    repository.PaymentRepository
	requests    repository.ServiceRequestRepository
	accountants repository.AccountantRepository
	coupons     coupon.Evaluator
	gw          gateway.Gateway
	notifier    notification.Notifier
}

// NewService wires a payment ledger from its collaborators.
func NewService(
	payments repository.PaymentRepository,
	requests repository.ServiceRequestRepository,
	accountants repository.AccountantRepository,
	coupons coupon.Evaluator,
	gw gateway.Gateway,
	notifier notification.Notifier,
) *Service {
	return &Service{
		payments:    payments,
		requests:    requests,
		accountants: accountants,
		coupons:     coupons,
		gw:          gw,
		notifier:    notifier,
	}
}

// CreateBookingPayment opens (or resumes) the booking-fee payment for a
// request. Callable only by the request's own user once a CA has accepted.
// Calling it again while a booking payment is live returns that payment
// unchanged; no second gateway order is ever created for the same obligation.
func (s *Service) CreateBookingPayment(ctx context.Context, requestID, userID uint, couponCode string) (*models.Payment, error) {
	req, err := s.requests.GetByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if req.UserID != userID {
		log.Printf("booking payment denied: user %d is not party to request %d", userID, requestID)
		return nil, ErrAccessDenied
	}
	if req.CAID == nil || (req.Status != models.RequestStatusAccepted && req.Status != models.RequestStatusInProgress) {
		return nil, ErrInvalidState
	}

	if existing, err := s.findReusable(ctx, requestID, models.PaymentTypeBookingFee); err != nil || existing != nil {
		return existing, err
	}

	fee := money.BookingFee()
	p := &models.Payment{
		PayerID:          userID,
		PayeeID:          req.CAID,
		ServiceRequestID: requestID,
		Type:             models.PaymentTypeBookingFee,
		Status:           models.PaymentStatusPending,
		Amount:           fee.Total,
		OriginalAmount:   fee.Total,
		Currency:         models.DefaultCurrency,
		IsEscrow:         true,
	}
	s.applyCoupon(p, couponCode, userID, req.ServiceType)

	return s.openGatewayOrder(ctx, p)
}

// CreateFinalPayment opens (or resumes) the service-fee payment once the CA
// has marked the request complete. The service price comes from the CA's
// configured price (platform default if unset) and is persisted on the
// payment so the commission split never has to be reconstructed from the
// GST-inclusive amount later.
func (s *Service) CreateFinalPayment(ctx context.Context, requestID, userID uint, couponCode string) (*models.Payment, error) {
	req, err := s.requests.GetByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if req.UserID != userID {
		log.Printf("final payment denied: user %d is not party to request %d", userID, requestID)
		return nil, ErrAccessDenied
	}
	if req.Status != models.RequestStatusCompleted || req.CAID == nil {
		return nil, ErrInvalidState
	}

	if existing, err := s.findReusable(ctx, requestID, models.PaymentTypeServiceFee); err != nil || existing != nil {
		return existing, err
	}

	ca, err := s.accountants.GetByID(*req.CAID)
	if err != nil {
		return nil, fmt.Errorf("load CA %d: %w", *req.CAID, err)
	}
	servicePrice := ca.EffectiveServicePrice()
	if req.FinalAmount > 0 {
		servicePrice = req.FinalAmount
	}

	fee, err := money.FinalFee(servicePrice)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	p := &models.Payment{
		PayerID:           userID,
		PayeeID:           req.CAID,
		ServiceRequestID:  requestID,
		Type:              models.PaymentTypeServiceFee,
		Status:            models.PaymentStatusPending,
		Amount:            fee.Total,
		OriginalAmount:    fee.Total,
		ServicePrice:      servicePrice,
		CommissionPercent: ca.EffectiveCommissionPercent(),
		Currency:          models.DefaultCurrency,
	}
	s.applyCoupon(p, couponCode, userID, req.ServiceType)

	return s.openGatewayOrder(ctx, p)
}

// findReusable returns the live payment for the slot, backfilling its gateway
// order if an earlier attempt crashed between persisting the record and
// reaching the provider. A failed backfill rolls the orphan back only when
// the provider rejected the order outright; on a temporary failure the record
// stays so the next attempt resumes it in place.
func (s *Service) findReusable(ctx context.Context, requestID uint, paymentType string) (*models.Payment, error) {
	existing, err := s.payments.FindLiveByRequestAndType(requestID, paymentType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if existing.GatewayOrderID != "" || existing.Status == models.PaymentStatusCompleted {
		return existing, nil
	}

	order, gerr := s.gw.CreateOrder(ctx, existing.Amount, existing.Currency,
		receipt(paymentType, requestID), orderNotes(existing))
	if gerr != nil {
		var ge *gateway.Error
		if errors.As(gerr, &ge) && ge.Temporary {
			return nil, fmt.Errorf("%w: %v", ErrGateway, gerr)
		}
		if derr := s.payments.Delete(existing.ID); derr != nil {
			log.Printf("failed to roll back orphaned payment %d: %v", existing.ID, derr)
		}
		return nil, fmt.Errorf("%w: %v", ErrGateway, gerr)
	}

	existing.GatewayOrderID = order.ID
	if err := s.payments.Update(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// openGatewayOrder persists the payment through the slot-guarded insert,
// opens the provider order and stores its id. A caller that lost the insert
// race gets the winning row back without touching the provider. If the
// provider call fails the fresh record is rolled back; it was never
// communicated externally, so deleting it cannot lose money.
func (s *Service) openGatewayOrder(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	created, stored, err := s.payments.CreateIfSlotFree(p)
	if err != nil {
		return nil, err
	}
	if !created {
		return stored, nil
	}

	order, gerr := s.gw.CreateOrder(ctx, p.Amount, p.Currency, receipt(p.Type, p.ServiceRequestID), orderNotes(p))
	if gerr != nil {
		if derr := s.payments.Delete(p.ID); derr != nil {
			log.Printf("failed to roll back payment %d after gateway error: %v", p.ID, derr)
		}
		return nil, fmt.Errorf("%w: %v", ErrGateway, gerr)
	}

	p.GatewayOrderID = order.ID
	if err := s.payments.Update(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) applyCoupon(p *models.Payment, code string, userID uint, serviceType string) {
	if code == "" || s.coupons == nil {
		return
	}
	result := s.coupons.Evaluate(code, userID, p.Amount, serviceType)
	if !result.Valid {
		log.Printf("coupon %q rejected for user %d: %s", code, userID, result.Message)
		return
	}
	couponID := result.CouponID
	p.CouponID = &couponID
	p.DiscountAmount = result.DiscountAmount
	p.Amount = result.FinalAmount
}

// ConfirmPayment applies a gateway capture to the ledger. It is idempotent:
// confirming an already-completed payment is a no-op returning the stored
// record, so a webhook delivered N times leaves the same state as one
// delivery — commission is never computed twice and coupon usage is recorded
// at most once per payment.
func (s *Service) ConfirmPayment(gatewayOrderID string, entity gateway.PaymentEntity) (*models.Payment, error) {
	p, err := s.payments.GetByGatewayOrderID(gatewayOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	if p.Status == models.PaymentStatusCompleted {
		return p, nil
	}
	if p.Status == models.PaymentStatusCancelled {
		return nil, ErrNotRefundable
	}

	now := time.Now()
	p.Status = models.PaymentStatusCompleted
	p.GatewayPaymentID = entity.ID
	p.PaymentMethod = entity.Method
	p.PaidAt = &now

	if p.Type == models.PaymentTypeServiceFee {
		split := money.Commission(p.ServicePrice, p.CommissionPercent)
		p.CommissionAmount = split.CommissionAmount
		p.NetAmount = split.NetAmount
	}

	if err := s.payments.Update(p); err != nil {
		return nil, err
	}

	if p.CouponID != nil && s.coupons != nil {
		if _, err := s.coupons.RecordUsage(*p.CouponID, p.PayerID, p.ID); err != nil {
			log.Printf("failed to record coupon usage for payment %d: %v", p.ID, err)
		}
	}

	s.notify(p.PayerID, usercontext.KindUser, models.NotificationPaymentCompleted,
		fmt.Sprintf("Payment of %.2f %s received", p.Amount, p.Currency), p.ServiceRequestID)
	if p.PayeeID != nil {
		s.notify(*p.PayeeID, usercontext.KindCA, models.NotificationPaymentCompleted,
			fmt.Sprintf("Payment of %.2f %s received for request #%d", p.Amount, p.Currency, p.ServiceRequestID), p.ServiceRequestID)
	}

	return p, nil
}

// FailPayment records a gateway failure. The record is kept for audit; the
// retry count tracks how many attempts this obligation has burned.
func (s *Service) FailPayment(gatewayOrderID, reason string) (*models.Payment, error) {
	p, err := s.payments.GetByGatewayOrderID(gatewayOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	// A failure event arriving after a capture is stale; keep the capture.
	if p.Status == models.PaymentStatusCompleted {
		return p, nil
	}

	if reason == "" {
		reason = "payment failed at gateway"
	}
	p.Status = models.PaymentStatusFailed
	p.FailureReason = reason
	p.RetryCount++
	if err := s.payments.Update(p); err != nil {
		return nil, err
	}

	s.notify(p.PayerID, usercontext.KindUser, models.NotificationPaymentFailed, reason, p.ServiceRequestID)
	return p, nil
}

// Refund issues a policy-driven refund of a completed payment back to its
// payer. The refund is a NEW ledger row of type "refund" linked via
// RefundOfID; the original payment is never mutated. A payment can be
// refunded at most once.
func (s *Service) Refund(ctx context.Context, paymentID, requesterID uint, reason string) (*models.Payment, error) {
	p, err := s.payments.GetByID(paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if p.PayerID != requesterID {
		log.Printf("refund denied: user %d is not the payer of payment %d", requesterID, paymentID)
		return nil, ErrAccessDenied
	}
	if p.Status != models.PaymentStatusCompleted || p.Type == models.PaymentTypeRefund {
		return nil, ErrNotRefundable
	}

	req, err := s.requests.GetByID(p.ServiceRequestID)
	if err != nil {
		return nil, ErrRequestNotFound
	}

	return s.refundPayment(ctx, p, req.Status, reason)
}

// RefundsForCancellation walks the completed payments of a request being
// cancelled and refunds each according to policy, evaluated against the
// status the request held BEFORE the cancellation took effect.
func (s *Service) RefundsForCancellation(ctx context.Context, requestID uint, priorStatus, reason string) ([]*models.Payment, error) {
	payments, err := s.payments.ListByRequest(requestID)
	if err != nil {
		return nil, err
	}

	var refunds []*models.Payment
	for i := range payments {
		p := &payments[i]
		if p.Status != models.PaymentStatusCompleted || p.Type == models.PaymentTypeRefund {
			continue
		}
		refund, err := s.refundPayment(ctx, p, priorStatus, reason)
		if err != nil {
			if errors.Is(err, ErrNoRefundAvailable) {
				continue
			}
			return refunds, err
		}
		refunds = append(refunds, refund)
	}
	return refunds, nil
}

func (s *Service) refundPayment(ctx context.Context, p *models.Payment, requestStatus, reason string) (*models.Payment, error) {
	if existing := s.findRefundOf(p); existing != nil {
		return existing, nil
	}

	amount := RefundAmount(p.Type, requestStatus, p.Amount)
	if amount <= 0 {
		return nil, ErrNoRefundAvailable
	}

	entity, gerr := s.gw.Refund(ctx, p.GatewayPaymentID, amount)
	if gerr != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, gerr)
	}

	refund := &models.Payment{
		PayerID:          p.PayerID,
		PayeeID:          nil,
		ServiceRequestID: p.ServiceRequestID,
		Type:             models.PaymentTypeRefund,
		Status:           models.PaymentStatusCompleted,
		Amount:           amount,
		Currency:         p.Currency,
		GatewayPaymentID: entity.ID,
		RefundOfID:       &p.ID,
		FailureReason:    reason,
	}
	now := time.Now()
	refund.PaidAt = &now
	if err := s.payments.Create(refund); err != nil {
		return nil, err
	}

	s.notify(p.PayerID, usercontext.KindUser, models.NotificationRefundIssued,
		fmt.Sprintf("Refund of %.2f %s issued", amount, p.Currency), p.ServiceRequestID)
	return refund, nil
}

// findRefundOf returns an already-issued refund for the payment, if any.
func (s *Service) findRefundOf(p *models.Payment) *models.Payment {
	payments, err := s.payments.ListByRequest(p.ServiceRequestID)
	if err != nil {
		return nil
	}
	for i := range payments {
		r := &payments[i]
		if r.Type == models.PaymentTypeRefund && r.RefundOfID != nil && *r.RefundOfID == p.ID {
			return r
		}
	}
	return nil
}

// HasCompleted reports whether a completed payment of the given type exists
// for the request. The document access guard consults this on every access.
func (s *Service) HasCompleted(requestID uint, paymentType string) (bool, error) {
	return s.payments.HasCompleted(requestID, paymentType)
}

// ListByRequest returns every ledger row of a request, oldest first.
func (s *Service) ListByRequest(requestID uint) ([]models.Payment, error) {
	return s.payments.ListByRequest(requestID)
}

// RecordWebhookEvent persists a raw webhook delivery for deduplication.
// created=false marks a redelivery.
func (s *Service) RecordWebhookEvent(provider, eventID, eventType, payloadJSON string, signatureValid bool) (bool, *models.GatewayWebhookEvent, error) {
	return s.payments.CreateWebhookEventIfNotExists(&models.GatewayWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       eventType,
		PayloadJSON:     payloadJSON,
		SignatureValid:  signatureValid,
	})
}

// MarkWebhookProcessed stamps a stored webhook event with its outcome.
func (s *Service) MarkWebhookProcessed(eventID uint, processingErr error) error {
	msg := ""
	if processingErr != nil {
		msg = processingErr.Error()
	}
	return s.payments.MarkWebhookProcessed(eventID, msg)
}

func (s *Service) notify(recipientID uint, kind usercontext.PrincipalKind, event, content string, referenceID uint) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(recipientID, kind, event, content, referenceID, nil)
}

func receipt(paymentType string, requestID uint) string {
	prefix := "PAY"
	switch paymentType {
	case models.PaymentTypeBookingFee:
		prefix = "BKG"
	case models.PaymentTypeServiceFee:
		prefix = "SVC"
	}
	return fmt.Sprintf("%s-%d-%s", prefix, requestID, uuid.New().String()[:8])
}

func orderNotes(p *models.Payment) map[string]string {
	return map[string]string{
		"service_request_id": fmt.Sprintf("%d", p.ServiceRequestID),
		"payment_type":       p.Type,
		"payer_id":           fmt.Sprintf("%d", p.PayerID),
	}
}
