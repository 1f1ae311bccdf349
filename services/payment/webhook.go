package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"soothe/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// ErrMissingBookingID marks a payment event that did not originate from a booking charge.
var ErrMissingBookingID = errors.New("payment event has no booking_id metadata")

// WebhookOutcome is a verified payment outcome for one booking.
type WebhookOutcome struct {
	EventID   string
	BookingID string
	Event     models.TransitionEvent
}

// WebhookVerifier checks Stripe signatures and maps PaymentIntent events.
type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Parse returns the outcome carried by payload, or ok=false for event types
// that do not settle a booking.
func (v *WebhookVerifier) Parse(payload []byte, signature string, now time.Time) (WebhookOutcome, bool, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return WebhookOutcome{}, false, fmt.Errorf("invalid stripe webhook: %w", err)
	}

	var kind models.EventKind
	switch evt.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		kind = models.EventPaymentSucceeded
	case stripe.EventTypePaymentIntentPaymentFailed:
		kind = models.EventPaymentFailed
	default:
		return WebhookOutcome{}, false, nil
	}
	if evt.Data == nil {
		return WebhookOutcome{}, false, fmt.Errorf("stripe event %s has no data", evt.ID)
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
		return WebhookOutcome{}, false, fmt.Errorf("decode payment intent of %s: %w", evt.ID, err)
	}
	bookingID := pi.Metadata["booking_id"]
	if bookingID == "" {
		return WebhookOutcome{}, false, fmt.Errorf("%w: %s", ErrMissingBookingID, pi.ID)
	}
	return WebhookOutcome{
		EventID:   evt.ID,
		BookingID: bookingID,
		Event: models.TransitionEvent{
			Kind:             kind,
			At:               now,
			PaymentReference: pi.ID,
		},
	}, true, nil
}
