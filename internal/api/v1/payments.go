package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/caconnect/CAConnect/internal/pkg/usercontext"
)

type paymentInput struct {
	CouponCode string `json:"coupon_code"`
}

// PostBookingPayment opens (or resumes) the booking-fee payment of a
// request. The response carries the gateway order id the client pays
// against; confirmation arrives via webhook.
func (s *APIServer) PostBookingPayment(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}
	p := usercontext.GetPrincipal(c)

	var in paymentInput
	if err := c.BodyParser(&in); err != nil && len(c.Body()) > 0 {
		return badRequest(c, "invalid request body")
	}

	payment, err := s.ledger.CreateBookingPayment(c.UserContext(), requestID, p.UserID, in.CouponCode)
	if err != nil {
		return domainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(payment)
}

// PostFinalPayment opens (or resumes) the service-fee payment once the CA
// has completed the work.
func (s *APIServer) PostFinalPayment(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}
	p := usercontext.GetPrincipal(c)

	var in paymentInput
	if err := c.BodyParser(&in); err != nil && len(c.Body()) > 0 {
		return badRequest(c, "invalid request body")
	}

	payment, err := s.ledger.CreateFinalPayment(c.UserContext(), requestID, p.UserID, in.CouponCode)
	if err != nil {
		return domainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(payment)
}

// GetRequestPayments lists the ledger rows of a request to one of its
// parties.
func (s *APIServer) GetRequestPayments(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}

	// Party check happens through the request read.
	if _, err := s.lifecycle.Get(requestID, usercontext.GetPrincipal(c)); err != nil {
		return domainError(c, err)
	}

	payments, err := s.ledger.ListByRequest(requestID)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"payments": payments})
}

// PostPaymentRefund issues a policy-driven refund of one completed payment.
func (s *APIServer) PostPaymentRefund(c *fiber.Ctx) error {
	paymentID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid payment id")
	}
	p := usercontext.GetPrincipal(c)

	var in struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&in); err != nil && len(c.Body()) > 0 {
		return badRequest(c, "invalid request body")
	}

	refund, err := s.ledger.Refund(c.UserContext(), paymentID, p.UserID, in.Reason)
	if err != nil {
		return domainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(refund)
}
