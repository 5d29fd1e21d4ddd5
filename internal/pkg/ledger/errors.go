package ledger

import "errors"

var (
	// ErrRequestNotFound means the service request a payment refers to does
	// not exist.
	ErrRequestNotFound = errors.New("service request not found")

	// ErrPaymentNotFound means no payment matches the given id or gateway
	// order.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrAccessDenied means the caller is not a party to the payment.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidState means the linked request is not in a status that
	// permits this payment operation. The caller should re-fetch before
	// retrying.
	ErrInvalidState = errors.New("invalid request state for payment")

	// ErrNotRefundable means the payment is not in a refundable state.
	ErrNotRefundable = errors.New("payment is not refundable")

	// ErrNoRefundAvailable means the refund policy yields zero for this
	// payment at the request's current stage.
	ErrNoRefundAvailable = errors.New("no refund available")

	// ErrGateway wraps payment-provider call failures. The pending record is
	// kept or rolled back depending on whether the provider ever saw it.
	ErrGateway = errors.New("payment gateway error")

	// ErrInvalidSignature means a webhook payload failed HMAC verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
