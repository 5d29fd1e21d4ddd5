package apiv1

import (
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/caconnect/CAConnect/app/models"
	"github.com/caconnect/CAConnect/internal/pkg/env"
	"github.com/caconnect/CAConnect/internal/pkg/gateway"
	"github.com/caconnect/CAConnect/internal/pkg/ledger"
)

const webhookProvider = "razorpay"

// razorpayEvent is the slice of the webhook payload the ledger needs.
// Amounts on the wire are in paise.
type razorpayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Amount           int64  `json:"amount"`
				Currency         string `json:"currency"`
				Method           string `json:"method"`
				Status           string `json:"status"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// PostPaymentWebhook ingests gateway payment events. Deliveries are
// deduplicated on (provider, event id), so the gateway may retry freely;
// processing each event is itself idempotent on top of that.
//
// An unconfigured webhook secret rejects everything outside development.
// Running open in production would let anyone forge captures.
func (s *APIServer) PostPaymentWebhook(c *fiber.Ctx) error {
	body := c.Body()
	signature := c.Get("X-Razorpay-Signature")
	secret := env.GetEnv("RAZORPAY_WEBHOOK_SECRET", "")

	signatureValid := ledger.VerifyWebhookSignature(body, signature, secret)
	if !signatureValid {
		if secret == "" && env.IsDev() {
			log.Print("[Webhook] No webhook secret configured, accepting unsigned event (development only)")
			signatureValid = true
		} else {
			log.Printf("[Webhook] Rejected event with invalid signature from %s", c.IP())
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
		}
	}

	eventID := c.Get("X-Razorpay-Event-Id")
	if eventID == "" {
		return badRequest(c, "missing event id")
	}

	var event razorpayEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return badRequest(c, "invalid event payload")
	}

	created, stored, err := s.ledger.RecordWebhookEvent(webhookProvider, eventID, event.Event, string(body), signatureValid)
	if err != nil {
		return domainError(c, err)
	}
	if !created && webhookOutcomeFinal(stored) {
		// Redelivery of an event that already processed cleanly; its outcome
		// stands.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "duplicate"})
	}

	processingErr := s.processWebhookEvent(event)
	if err := s.ledger.MarkWebhookProcessed(stored.ID, processingErr); err != nil {
		log.Printf("[Webhook] Failed to mark event %d processed: %v", stored.ID, err)
	}
	if processingErr != nil {
		return domainError(c, processingErr)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}

// webhookOutcomeFinal reports whether a recorded event needs no further work.
// An event whose first processing attempt failed transiently (or crashed
// before being marked) runs again on redelivery; processing is idempotent, so
// a replay cannot double-apply a capture.
func webhookOutcomeFinal(e *models.GatewayWebhookEvent) bool {
	return e.ProcessedAt != nil && e.ProcessingError == ""
}

func (s *APIServer) processWebhookEvent(event razorpayEvent) error {
	entity := event.Payload.Payment.Entity

	switch event.Event {
	case "payment.captured", "order.paid":
		p, err := s.ledger.ConfirmPayment(entity.OrderID, gateway.PaymentEntity{
			ID:       entity.ID,
			OrderID:  entity.OrderID,
			Amount:   float64(entity.Amount) / 100,
			Currency: entity.Currency,
			Method:   entity.Method,
			Status:   entity.Status,
		})
		if err != nil {
			return err
		}
		invalidateRequestCache(p.ServiceRequestID)
		return nil

	case "payment.failed":
		p, err := s.ledger.FailPayment(entity.OrderID, entity.ErrorDescription)
		if err != nil {
			return err
		}
		invalidateRequestCache(p.ServiceRequestID)
		return nil
	}

	log.Printf("[Webhook] Ignoring event type %q", event.Event)
	return nil
}
