package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/caconnect/CAConnect/internal/pkg/middleware"
)

// RegisterHandlers attaches the v1 routes. The webhook endpoint is the only
// unauthenticated route; it authenticates by signature instead.
func RegisterHandlers(v1 fiber.Router, s *APIServer) {
	v1.Get("/ping", s.GetPing)
	v1.Post("/webhooks/payments", s.PostPaymentWebhook)

	auth := v1.Group("", middleware.APIKeyAuthMiddleware())

	auth.Post("/requests", s.PostRequest)
	auth.Get("/requests", s.GetRequests)
	auth.Get("/requests/:id", s.GetRequest)
	auth.Get("/requests/:id/transitions", s.GetRequestTransitions)
	auth.Post("/requests/:id/cancel", s.PostRequestCancel)
	auth.Post("/requests/:id/escalate", s.PostRequestEscalate)
	auth.Post("/requests/:id/reschedule", s.PostRequestReschedule)

	auth.Post("/requests/:id/accept", middleware.RequireCA(), s.PostRequestAccept)
	auth.Post("/requests/:id/reject", middleware.RequireCA(), s.PostRequestReject)
	auth.Post("/requests/:id/stage", middleware.RequireCA(), s.PostRequestStage)
	auth.Post("/requests/:id/complete", middleware.RequireCA(), s.PostRequestComplete)

	auth.Post("/requests/:id/resume", middleware.RequireAdmin(), s.PostRequestResume)

	auth.Post("/requests/:id/payments/booking", s.PostBookingPayment)
	auth.Post("/requests/:id/payments/final", s.PostFinalPayment)
	auth.Get("/requests/:id/payments", s.GetRequestPayments)
	auth.Post("/payments/:id/refund", s.PostPaymentRefund)

	auth.Post("/requests/:id/documents", s.PostRequestDocument)
	auth.Get("/requests/:id/documents", s.GetRequestDocuments)
	auth.Get("/documents/:id/download", s.GetDocumentDownload)
	auth.Delete("/documents/:id", s.DeleteDocument)

	auth.Post("/requests/:id/meeting", s.PostRequestMeeting)
	auth.Get("/requests/:id/meeting", s.GetRequestMeeting)
	auth.Put("/requests/:id/meeting", s.PutRequestMeeting)
	auth.Delete("/requests/:id/meeting", s.DeleteRequestMeeting)

	auth.Get("/notifications", s.GetNotifications)
	auth.Post("/notifications/:id/read", s.PostNotificationRead)
}
