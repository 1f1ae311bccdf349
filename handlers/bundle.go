package handlers

import (
	"soothe/utils"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	AdminTokenHash string
	RatePerMinute  int

	Health  gin.HandlerFunc
	Metrics gin.HandlerFunc

	// Catalog endpoints
	ListServices gin.HandlerFunc
	QuoteService gin.HandlerFunc

	// Customer endpoints
	CreateBooking  gin.HandlerFunc
	GetBooking     gin.HandlerFunc
	GetRemaining   gin.HandlerFunc
	CancelBooking  gin.HandlerFunc
	StreamEvents   gin.HandlerFunc
	SavePayment    gin.HandlerFunc
	RegisterDevice gin.HandlerFunc

	// Therapist endpoints
	ListTherapistRequests gin.HandlerFunc
	AcceptRequest         gin.HandlerFunc
	DeclineRequest        gin.HandlerFunc

	// Admin endpoints
	AdminHandler *AdminHandler

	// Processor callbacks
	StripeWebhook gin.HandlerFunc
}

// NewHandlerBundle wires the handler structs into a bundle.
func NewHandlerBundle(bh *BookingHandler, ah *AdminHandler, ph *PaymentHandler, dh *DeviceHandler, monitor *utils.HealthMonitor, metrics gin.HandlerFunc) *HandlerBundle {
	return &HandlerBundle{
		Health:                HealthHandler(monitor),
		Metrics:               metrics,
		ListServices:          bh.ListServices,
		QuoteService:          bh.QuoteService,
		CreateBooking:         bh.CreateBooking,
		GetBooking:            bh.GetBooking,
		GetRemaining:          bh.GetRemaining,
		CancelBooking:         bh.CancelBooking,
		StreamEvents:          bh.StreamEvents,
		SavePayment:           ph.SavePaymentProfile,
		RegisterDevice:        dh.RegisterDevice,
		ListTherapistRequests: bh.ListTherapistRequests,
		AcceptRequest:         bh.AcceptRequest,
		DeclineRequest:        bh.DeclineRequest,
		AdminHandler:          ah,
		StripeWebhook:         ph.StripeWebhook,
	}
}
