package models

import "github.com/shopspring/decimal"

// PaymentRequest asks the processor to charge a customer for an accepted booking.
type PaymentRequest struct {
	BookingID      string
	CustomerID     string
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
	Description    string
}

type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	// PaymentPending means the outcome arrives later through the processor webhook.
	PaymentPending PaymentStatus = "pending"
)

type PaymentResult struct {
	Status        PaymentStatus
	Reference     string
	FailureReason string
}
