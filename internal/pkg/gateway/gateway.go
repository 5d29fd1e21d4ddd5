package gateway

import (
	"context"
	"fmt"
)

// Order is a gateway-side payment order awaiting capture.
type Order struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Receipt  string  `json:"receipt"`
}

// PaymentEntity is the gateway's view of a captured or failed payment, as
// fetched from the API or carried in a webhook payload.
type PaymentEntity struct {
	ID               string  `json:"id"`
	OrderID          string  `json:"order_id"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	Method           string  `json:"method"`
	Status           string  `json:"status"`
	ErrorDescription string  `json:"error_description,omitempty"`
}

// RefundEntity is the gateway's record of an issued refund.
type RefundEntity struct {
	ID        string  `json:"id"`
	PaymentID string  `json:"payment_id"`
	Amount    float64 `json:"amount"`
}

// Gateway is the narrow payment-provider contract the ledger needs. Amounts
// are in rupees here; adapters convert to the provider's smallest unit.
type Gateway interface {
	CreateOrder(ctx context.Context, amount float64, currency, receipt string, notes map[string]string) (*Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*PaymentEntity, error)
	Refund(ctx context.Context, paymentID string, amount float64) (*RefundEntity, error)
}

// Error is a gateway call failure. Temporary errors may be retried against
// the same order; permanent ones mean the order is unusable.
type Error struct {
	Code        string
	Description string
	Temporary   bool
}

func (e *Error) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("gateway: %s (%s)", e.Description, e.Code)
	}
	return fmt.Sprintf("gateway: %s", e.Code)
}
