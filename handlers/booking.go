package handlers

import (
	"net/http"

	"soothe/models"
	"soothe/services/booking"
	"soothe/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler serves the customer, therapist and catalog endpoints.
type BookingHandler struct {
	BookingSvc booking.BookingService
	Events     EventSource
	Logger     *zap.Logger
}

func NewBookingHandler(svc booking.BookingService, events EventSource, logger *zap.Logger) *BookingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingHandler{BookingSvc: svc, Events: events, Logger: logger}
}

// CreateBooking handles POST /api/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var input models.BookingRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid input", err.Error())
		return
	}

	req, err := h.BookingSvc.Create(c.Request.Context(), p.ID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// GetBooking handles GET /api/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	req, err := h.BookingSvc.Get(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// GetRemaining handles GET /api/bookings/:id/remaining.
func (h *BookingHandler) GetRemaining(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id := c.Param("id")
	seconds, err := h.BookingSvc.Remaining(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookingId": id, "remainingSeconds": seconds})
}

// CancelBooking handles POST /api/bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id := c.Param("id")
	res, err := h.BookingSvc.Cancel(c.Request.Context(), p.ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	writeTransition(c, id, res)
}

// ListServices handles GET /api/services.
func (h *BookingHandler) ListServices(c *gin.Context) {
	tiers, err := h.BookingSvc.Services(c.Request.Context())
	if err != nil {
		h.Logger.Error("ListServices: failed to load catalog", zap.Error(err))
		respondError(c, err)
		return
	}
	type serviceView struct {
		models.ServiceTier
		Durations []int `json:"durations"`
	}
	out := make([]serviceView, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, serviceView{ServiceTier: t, Durations: t.OfferedDurations()})
	}
	c.JSON(http.StatusOK, out)
}

// QuoteService handles POST /api/services/quote.
func (h *BookingHandler) QuoteService(c *gin.Context) {
	var input models.QuoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid input", err.Error())
		return
	}
	quote, err := h.BookingSvc.Quote(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}
