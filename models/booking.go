package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus is the lifecycle state of a booking request.
type BookingStatus string

const (
	StatusPending       BookingStatus = "pending"
	StatusAccepted      BookingStatus = "accepted"
	StatusDeclined      BookingStatus = "declined"
	StatusTimedOut      BookingStatus = "timed_out"
	StatusCancelled     BookingStatus = "cancelled"
	StatusPaymentFailed BookingStatus = "payment_failed"
	StatusConfirmed     BookingStatus = "confirmed"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []BookingStatus{
	StatusPending,
	StatusAccepted,
	StatusDeclined,
	StatusTimedOut,
	StatusCancelled,
	StatusPaymentFailed,
	StatusConfirmed,
}

// IsTerminal reports whether no further transition can leave s.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case StatusDeclined, StatusTimedOut, StatusCancelled, StatusPaymentFailed, StatusConfirmed:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BookingRequest is one customer request for an at-home massage.
type BookingRequest struct {
	ID                 string          `json:"id"`
	CustomerID         string          `json:"customerId"`
	TherapistID        string          `json:"therapistId"`
	ServiceID          string          `json:"serviceId"`
	DurationMinutes    int             `json:"durationMinutes"`
	ScheduledDate      string          `json:"scheduledDate"` // YYYY-MM-DD
	ScheduledTime      string          `json:"scheduledTime"` // HH:MM, therapist's local time
	Address            string          `json:"address"`
	Coordinates        Coordinates     `json:"coordinates"`
	ParkingNotes       string          `json:"parkingNotes,omitempty"`
	RoomNotes          string          `json:"roomNotes,omitempty"`
	Price              decimal.Decimal `json:"price"` // fixed at creation
	Currency           string          `json:"currency"`
	Status             BookingStatus   `json:"status"`
	CreatedAt          time.Time       `json:"createdAt"`
	AcceptanceDeadline time.Time       `json:"acceptanceDeadline"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	RespondedAt        *time.Time      `json:"respondedAt,omitempty"`
	PaymentReference   string          `json:"paymentReference,omitempty"`
	Version            int64           `json:"version"`
}
