package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"soothe/services/booking"
	"soothe/services/payment"
	"soothe/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxWebhookBody mirrors the payload ceiling Stripe documents for webhook events.
const maxWebhookBody = 64 << 10

// WebhookParser verifies and decodes a processor webhook.
type WebhookParser interface {
	Parse(payload []byte, signature string, now time.Time) (payment.WebhookOutcome, bool, error)
}

// PaymentHandler serves the payment webhook and saved payment methods.
type PaymentHandler struct {
	Webhooks   WebhookParser
	BookingSvc booking.BookingService
	Profiles   payment.ProfileStore
	Logger     *zap.Logger
}

func NewPaymentHandler(webhooks WebhookParser, svc booking.BookingService, profiles payment.ProfileStore, logger *zap.Logger) *PaymentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentHandler{Webhooks: webhooks, BookingSvc: svc, Profiles: profiles, Logger: logger}
}

// StripeWebhook handles POST /api/payments/stripe/webhook. Events that do not
// settle a booking, and bookings that are already settled, are acknowledged.
func (h *PaymentHandler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Unreadable webhook body", err.Error())
		return
	}

	outcome, ok, err := h.Webhooks.Parse(payload, c.GetHeader("Stripe-Signature"), time.Now().UTC())
	switch {
	case errors.Is(err, payment.ErrMissingBookingID):
		h.Logger.Info("Ignoring payment event without booking", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	case err != nil:
		utils.JSONError(c, http.StatusBadRequest, "Invalid webhook", err.Error())
		return
	case !ok:
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	res, err := h.BookingSvc.RecordPayment(c.Request.Context(), outcome.BookingID, outcome.Event)
	if err != nil {
		if booking.IsNotFound(err) {
			h.Logger.Warn("Payment event for unknown booking",
				zap.String("event_id", outcome.EventID),
				zap.String("booking_id", outcome.BookingID))
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"received":  true,
		"bookingId": outcome.BookingID,
		"status":    res.Status,
		"stale":     res.Stale,
	})
}

// SavePaymentProfile handles PUT /api/payments/profile.
func (h *PaymentHandler) SavePaymentProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var profile payment.Profile
	if err := c.ShouldBindJSON(&profile); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid input", err.Error())
		return
	}
	if err := h.Profiles.Set(c.Request.Context(), p.ID, profile); err != nil {
		h.Logger.Error("Failed to save payment profile", zap.String("customer_id", p.ID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to save payment profile", "")
		return
	}
	c.Status(http.StatusNoContent)
}
