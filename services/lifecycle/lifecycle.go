// Package lifecycle holds the booking request state machine. It is pure: callers
// serialize access per request and persist what Apply returns.
package lifecycle

import (
	"soothe/models"
)

// Next returns the status evt leads to from req's current status, or false when
// the event is stale (already answered, wrong state, or its deadline guard fails).
func Next(req models.BookingRequest, evt models.TransitionEvent) (models.BookingStatus, bool) {
	switch req.Status {
	case models.StatusPending:
		switch evt.Kind {
		case models.EventAccept:
			if evt.At.After(req.AcceptanceDeadline) {
				return req.Status, false
			}
			return models.StatusAccepted, true
		case models.EventDecline:
			if evt.At.After(req.AcceptanceDeadline) {
				return req.Status, false
			}
			return models.StatusDeclined, true
		case models.EventExpire:
			if evt.At.Before(req.AcceptanceDeadline) {
				return req.Status, false
			}
			return models.StatusTimedOut, true
		case models.EventCancel:
			return models.StatusCancelled, true
		}
	case models.StatusAccepted:
		switch evt.Kind {
		case models.EventPaymentSucceeded:
			return models.StatusConfirmed, true
		case models.EventPaymentFailed:
			return models.StatusPaymentFailed, true
		}
	}
	return req.Status, false
}

// Apply returns req advanced by evt and true, or req unchanged and false when evt is stale.
func Apply(req models.BookingRequest, evt models.TransitionEvent) (models.BookingRequest, bool) {
	to, ok := Next(req, evt)
	if !ok {
		return req, false
	}
	from := req.Status
	req.Status = to
	req.UpdatedAt = evt.At
	req.Version++
	if from == models.StatusPending {
		at := evt.At
		req.RespondedAt = &at
	}
	if evt.PaymentReference != "" {
		req.PaymentReference = evt.PaymentReference
	}
	return req, true
}

// Result wraps the outcome of Apply.
func Result(req models.BookingRequest, applied bool) models.TransitionResult {
	return models.TransitionResult{
		Status:  req.Status,
		Applied: applied,
		Stale:   !applied,
		Request: req,
	}
}
