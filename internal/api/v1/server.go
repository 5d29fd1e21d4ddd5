package apiv1

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/caconnect/CAConnect/app/repository"
	"github.com/caconnect/CAConnect/internal/pkg/coupon"
	"github.com/caconnect/CAConnect/internal/pkg/docstore"
	"github.com/caconnect/CAConnect/internal/pkg/env"
	"github.com/caconnect/CAConnect/internal/pkg/gateway"
	"github.com/caconnect/CAConnect/internal/pkg/ledger"
	"github.com/caconnect/CAConnect/internal/pkg/lifecycle"
	"github.com/caconnect/CAConnect/internal/pkg/meeting"
	"github.com/caconnect/CAConnect/internal/pkg/notification"
)

// APIServer bundles the domain services behind the v1 HTTP surface.
type APIServer struct {
	repos     *repository.Repositories
	ledger    *ledger.Service
	lifecycle *lifecycle.Service
	scheduler *meeting.Scheduler
	store     docstore.Store
}

// NewAPIServer wires the services from the global repositories and the
// environment. In development the payment gateway and video provider run as
// in-process mocks.
func NewAPIServer(store docstore.Store) *APIServer {
	repos := repository.GetGlobalRepositories()
	notifier := notification.NewDispatcher(repos.Notification)
	coupons := coupon.NewService(repos.Coupon)

	var gw gateway.Gateway
	var provider meeting.Provider
	if env.IsDev() {
		gw = gateway.NewMockGateway()
		provider = meeting.NewMockProvider()
		log.Print("[API] Development mode: using mock payment gateway and meeting provider")
	} else {
		gw = gateway.NewRazorpayClient()
		provider = meeting.NewZoomProvider()
	}

	ledgerSvc := ledger.NewService(repos.Payment, repos.ServiceRequest, repos.Accountant, coupons, gw, notifier)
	return &APIServer{
		repos:     repos,
		ledger:    ledgerSvc,
		lifecycle: lifecycle.NewService(repos.ServiceRequest, repos.Accountant, ledgerSvc, notifier),
		scheduler: meeting.NewScheduler(repos.Meeting, repos.ServiceRequest, provider, notifier),
		store:     store,
	}
}

// GetPing handles the health probe endpoint.
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ping": "pong"})
}

// domainError maps service sentinels onto HTTP responses. Unknown errors
// become opaque 500s; the detail stays in the server log.
func domainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound),
		errors.Is(err, ledger.ErrRequestNotFound),
		errors.Is(err, ledger.ErrPaymentNotFound),
		errors.Is(err, meeting.ErrRequestNotFound),
		errors.Is(err, meeting.ErrMeetingNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": err.Error()})

	case errors.Is(err, lifecycle.ErrAccessDenied),
		errors.Is(err, ledger.ErrAccessDenied),
		errors.Is(err, meeting.ErrAccessDenied):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access_denied", "message": err.Error()})

	case errors.Is(err, lifecycle.ErrInvalidState),
		errors.Is(err, ledger.ErrInvalidState),
		errors.Is(err, ledger.ErrNotRefundable),
		errors.Is(err, ledger.ErrNoRefundAvailable),
		errors.Is(err, meeting.ErrInvalidState):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "invalid_state", "message": err.Error()})

	case errors.Is(err, ledger.ErrGateway), errors.Is(err, meeting.ErrProvider):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upstream_error", "message": "payment or meeting provider is unavailable, try again"})
	}

	log.Printf("unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Something went wrong"})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": msg})
}

func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}
