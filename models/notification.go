package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NoticeKind is the name of a notified lifecycle change.
type NoticeKind string

const (
	NoticeCreated       NoticeKind = "created"
	NoticeAccepted      NoticeKind = "accepted"
	NoticeDeclined      NoticeKind = "declined"
	NoticeTimedOut      NoticeKind = "timed_out"
	NoticeCancelled     NoticeKind = "cancelled"
	NoticeConfirmed     NoticeKind = "confirmed"
	NoticePaymentFailed NoticeKind = "payment_failed"
)

// BookingNotice is published after every applied transition.
type BookingNotice struct {
	Kind        NoticeKind      `json:"kind"`
	BookingID   string          `json:"bookingId"`
	CustomerID  string          `json:"customerId"`
	TherapistID string          `json:"therapistId"`
	ServiceID   string          `json:"serviceId"`
	Status      BookingStatus   `json:"status"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	At          time.Time       `json:"at"`
}

// NoticeFor builds the notice describing req's current status.
func NoticeFor(req BookingRequest, at time.Time) BookingNotice {
	kind := NoticeKind(req.Status)
	if req.Status == StatusPending {
		kind = NoticeCreated
	}
	return BookingNotice{
		Kind:        kind,
		BookingID:   req.ID,
		CustomerID:  req.CustomerID,
		TherapistID: req.TherapistID,
		ServiceID:   req.ServiceID,
		Status:      req.Status,
		Price:       req.Price,
		Currency:    req.Currency,
		At:          at,
	}
}

// Recipient is the user a push notice is addressed to.
func (n BookingNotice) Recipient() string {
	if n.Kind == NoticeCreated {
		return n.TherapistID
	}
	return n.CustomerID
}
