package money

import (
	"errors"
	"math"
)

// BookingFeeBase is the flat booking charge in INR before GST.
const BookingFeeBase = 999.00

// GSTRate is the goods-and-services tax applied to fees.
const GSTRate = 0.18

// ErrInvalidAmount is returned when a service price does not exceed the
// booking fee base, leaving nothing to charge as a final fee.
var ErrInvalidAmount = errors.New("service price must exceed the booking fee")

// Breakdown is a fee split into its taxable base, GST and payable total.
type Breakdown struct {
	Base  float64 `json:"base"`
	GST   float64 `json:"gst"`
	Total float64 `json:"total"`
}

// Split is a completed service price divided into platform commission and CA
// payout.
type Split struct {
	CommissionAmount float64 `json:"commission_amount"`
	NetAmount        float64 `json:"net_amount"`
}

// Round2 rounds to two decimal places. Every amount that reaches the ledger
// passes through here first; DB columns are DECIMAL(10,2).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BookingFee returns the fixed booking charge: base 999 plus 18% GST.
func BookingFee() Breakdown {
	gst := Round2(BookingFeeBase * GSTRate)
	return Breakdown{
		Base:  BookingFeeBase,
		GST:   gst,
		Total: Round2(BookingFeeBase + gst),
	}
}

// FinalFee computes the closing charge once work is done. The booking fee
// base was already collected up front, so it comes off the service price
// before GST.
func FinalFee(servicePrice float64) (Breakdown, error) {
	base := servicePrice - BookingFeeBase
	if base <= 0 {
		return Breakdown{}, ErrInvalidAmount
	}
	gst := Round2(base * GSTRate)
	return Breakdown{
		Base:  Round2(base),
		GST:   gst,
		Total: Round2(base + gst),
	}, nil
}

// Commission splits a service price into platform commission and CA payout.
// The percentage applies to the FULL service price, never to the GST-adjusted
// or booking-fee-subtracted amount; computing it on anything else makes CA
// payouts systematically wrong.
func Commission(servicePrice, percent float64) Split {
	commission := Round2(servicePrice * percent / 100)
	return Split{
		CommissionAmount: commission,
		NetAmount:        Round2(servicePrice - commission),
	}
}

// ApplyDiscount subtracts a discount from an amount, clamped so the payable
// amount never goes negative.
func ApplyDiscount(amount, discount float64) (discountApplied, finalAmount float64) {
	if discount < 0 {
		discount = 0
	}
	if discount > amount {
		discount = amount
	}
	return Round2(discount), Round2(amount - discount)
}
