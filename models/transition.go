package models

import "time"

// EventKind names an input to the booking state machine.
type EventKind string

const (
	EventAccept           EventKind = "accept"
	EventDecline          EventKind = "decline"
	EventExpire           EventKind = "expire"
	EventCancel           EventKind = "cancel"
	EventPaymentSucceeded EventKind = "payment_succeeded"
	EventPaymentFailed    EventKind = "payment_failed"
)

// TransitionEvent is an event together with the instant it was observed.
type TransitionEvent struct {
	Kind             EventKind `json:"kind"`
	At               time.Time `json:"at"`
	PaymentReference string    `json:"paymentReference,omitempty"` // payment events only
}

// TransitionResult is the outcome of applying an event.
// Stale is set when the event lost the race or its guard failed; it is not an error.
type TransitionResult struct {
	Status  BookingStatus  `json:"status"`
	Applied bool           `json:"applied"`
	Stale   bool           `json:"stale"`
	Request BookingRequest `json:"-"`
}
