package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingFilter narrows admin listings. Zero values match everything.
type BookingFilter struct {
	Statuses    []BookingStatus
	TherapistID string
	CustomerID  string
	From        *time.Time // on createdAt, inclusive
	To          *time.Time // on createdAt, exclusive
	Limit       int
	Offset      int
}

// ServiceRevenue is confirmed revenue for one service tier.
type ServiceRevenue struct {
	ServiceID string          `json:"serviceId"`
	Count     int64           `json:"count"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// RevenueReport summarises bookings created within [From, To).
type RevenueReport struct {
	From           time.Time               `json:"from"`
	To             time.Time               `json:"to"`
	Currency       string                  `json:"currency"`
	TotalRevenue   decimal.Decimal         `json:"totalRevenue"`
	ConfirmedCount int64                   `json:"confirmedCount"`
	ByService      []ServiceRevenue        `json:"byService"`
	StatusCounts   map[BookingStatus]int64 `json:"statusCounts"`
}
