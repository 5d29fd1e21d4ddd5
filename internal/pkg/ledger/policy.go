package ledger

import (
	"github.com/caconnect/CAConnect/app/models"
	"github.com/caconnect/CAConnect/internal/pkg/money"
)

// RefundFraction returns the refundable share of a completed payment given
// the linked request's status at the time of the refund decision.
//
// Booking fees refund in full while the request is still pending or accepted;
// once the CA has begun work (in_progress or later) the booking fee is
// forfeit. Service fees refund a flat 50% regardless of stage.
func RefundFraction(paymentType, requestStatus string) float64 {
	switch paymentType {
	case models.PaymentTypeBookingFee:
		switch requestStatus {
		case models.RequestStatusPending, models.RequestStatusAccepted:
			return 1.0
		default:
			return 0
		}
	case models.PaymentTypeServiceFee:
		return 0.5
	default:
		return 0
	}
}

// RefundAmount applies the policy fraction to a paid amount, rounded to two
// decimals.
func RefundAmount(paymentType, requestStatus string, paidAmount float64) float64 {
	return money.Round2(paidAmount * RefundFraction(paymentType, requestStatus))
}
