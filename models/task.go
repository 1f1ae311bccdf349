package models

import "time"

// ExpiryPayload is the body of a durable booking expiry task.
type ExpiryPayload struct {
	BookingID string    `json:"bookingId"`
	Deadline  time.Time `json:"deadline"`
}
