package models

import "github.com/shopspring/decimal"

// BookingRequestInput is what a customer submits to request a booking.
type BookingRequestInput struct {
	TherapistID     string      `json:"therapistId" binding:"required"`
	ServiceID       string      `json:"serviceId" binding:"required"`
	DurationMinutes int         `json:"durationMinutes" binding:"required,gt=0"`
	ScheduledDate   string      `json:"scheduledDate" binding:"required"` // YYYY-MM-DD
	ScheduledTime   string      `json:"scheduledTime" binding:"required"` // HH:MM
	Address         string      `json:"address" binding:"required"`
	Coordinates     Coordinates `json:"coordinates"`
	ParkingNotes    string      `json:"parkingNotes"`
	RoomNotes       string      `json:"roomNotes"`
}

// QuoteInput asks for a price preview.
type QuoteInput struct {
	ServiceID       string `json:"serviceId" binding:"required"`
	DurationMinutes int    `json:"durationMinutes" binding:"required,gt=0"`
}

// Quote is the priced answer to a QuoteInput.
type Quote struct {
	ServiceID       string          `json:"serviceId"`
	DurationMinutes int             `json:"durationMinutes"`
	Price           decimal.Decimal `json:"price"`
	Currency        string          `json:"currency"`
}
