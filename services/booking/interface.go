package booking

import (
	"context"
	"time"

	"soothe/models"
)

// BookingService is the booking request workflow as seen by the HTTP layer and workers.
type BookingService interface {
	Services(ctx context.Context) ([]models.ServiceTier, error)
	Quote(ctx context.Context, input models.QuoteInput) (models.Quote, error)
	Create(ctx context.Context, customerID string, input models.BookingRequestInput) (models.BookingRequest, error)
	Get(ctx context.Context, principal models.Principal, id string) (models.BookingRequest, error)
	Remaining(ctx context.Context, principal models.Principal, id string) (int, error)
	ListForTherapist(ctx context.Context, therapistID string, statuses []models.BookingStatus) ([]models.BookingRequest, error)
	Accept(ctx context.Context, therapistID, id string) (models.TransitionResult, error)
	Decline(ctx context.Context, therapistID, id string) (models.TransitionResult, error)
	Cancel(ctx context.Context, customerID, id string) (models.TransitionResult, error)
	Expire(ctx context.Context, id string) (models.TransitionResult, error)
	RecordPayment(ctx context.Context, id string, evt models.TransitionEvent) (models.TransitionResult, error)
}

// PaymentProcessor charges the customer once a therapist accepts.
type PaymentProcessor interface {
	Charge(ctx context.Context, req models.PaymentRequest) (models.PaymentResult, error)
}

// ExpiryQueue is the durable backstop for the in-process acceptance timers.
type ExpiryQueue interface {
	ScheduleExpiry(ctx context.Context, bookingID string, deadline time.Time) error
	CancelExpiry(ctx context.Context, bookingID string) error
}
