package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	bookingRepo "soothe/database/repository/booking"
	"soothe/models"
	"soothe/services/metrics"
	"soothe/services/notification"
	"soothe/services/pricing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultWindow   = 120 * time.Second
	defaultCurrency = "usd"
	paymentTimeout  = 30 * time.Second
)

// Options wires a DefaultBookingService. Directory and Catalog are required.
type Options struct {
	Directory bookingRepo.Directory
	Catalog   pricing.Catalog
	Payments  PaymentProcessor
	Notifier  notification.Notifier
	Expiry    ExpiryQueue
	Metrics   *metrics.BookingMetrics
	Clock     clockwork.Clock
	Logger    *zap.Logger
	Window    time.Duration
	Currency  string
}

// DefaultBookingService implements BookingService on top of a Directory.
type DefaultBookingService struct {
	Directory bookingRepo.Directory
	Catalog   pricing.Catalog
	Payments  PaymentProcessor
	Notifier  notification.Notifier
	Expiry    ExpiryQueue
	Metrics   *metrics.BookingMetrics
	Clock     clockwork.Clock
	Logger    *zap.Logger
	Window    time.Duration
	Currency  string

	timers   *Scheduler
	payments sync.WaitGroup
}

func NewDefaultBookingService(opts Options) *DefaultBookingService {
	s := &DefaultBookingService{
		Directory: opts.Directory,
		Catalog:   opts.Catalog,
		Payments:  opts.Payments,
		Notifier:  opts.Notifier,
		Expiry:    opts.Expiry,
		Metrics:   opts.Metrics,
		Clock:     opts.Clock,
		Logger:    opts.Logger,
		Window:    opts.Window,
		Currency:  strings.ToLower(opts.Currency),
	}
	if s.Clock == nil {
		s.Clock = clockwork.NewRealClock()
	}
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	if s.Window <= 0 {
		s.Window = defaultWindow
	}
	if s.Currency == "" {
		s.Currency = defaultCurrency
	}
	s.timers = NewScheduler(s.Clock, s.onTimer)
	return s
}

func (s *DefaultBookingService) Services(ctx context.Context) ([]models.ServiceTier, error) {
	return s.Catalog.List(ctx)
}

func (s *DefaultBookingService) Quote(ctx context.Context, input models.QuoteInput) (models.Quote, error) {
	tier, err := s.Catalog.Get(ctx, input.ServiceID)
	if err != nil {
		return models.Quote{}, err
	}
	price, err := s.price(tier, input.DurationMinutes)
	if err != nil {
		return models.Quote{}, err
	}
	return models.Quote{
		ServiceID:       tier.ID,
		DurationMinutes: input.DurationMinutes,
		Price:           price,
		Currency:        s.Currency,
	}, nil
}

func (s *DefaultBookingService) price(tier models.ServiceTier, durationMinutes int) (decimal.Decimal, error) {
	if !pricing.Offers(tier, durationMinutes) {
		return decimal.Decimal{}, fmt.Errorf("%w: %s is not offered for %d minutes", pricing.ErrInvalidDuration, tier.ID, durationMinutes)
	}
	return pricing.ComputePrice(tier, durationMinutes)
}

// Create validates input, prices it and stores a pending request whose
// acceptance window starts now.
func (s *DefaultBookingService) Create(ctx context.Context, customerID string, input models.BookingRequestInput) (models.BookingRequest, error) {
	if err := validateInput(customerID, input); err != nil {
		return models.BookingRequest{}, err
	}
	tier, err := s.Catalog.Get(ctx, input.ServiceID)
	if err != nil {
		return models.BookingRequest{}, err
	}
	price, err := s.price(tier, input.DurationMinutes)
	if err != nil {
		return models.BookingRequest{}, err
	}

	// Stores keep millisecond precision at best; every backend must see the same deadline.
	now := s.Clock.Now().UTC().Truncate(time.Millisecond)
	req := models.BookingRequest{
		ID:                 uuid.New().String(),
		CustomerID:         customerID,
		TherapistID:        input.TherapistID,
		ServiceID:          tier.ID,
		DurationMinutes:    input.DurationMinutes,
		ScheduledDate:      input.ScheduledDate,
		ScheduledTime:      input.ScheduledTime,
		Address:            strings.TrimSpace(input.Address),
		Coordinates:        input.Coordinates,
		ParkingNotes:       input.ParkingNotes,
		RoomNotes:          input.RoomNotes,
		Price:              price,
		Currency:           s.Currency,
		Status:             models.StatusPending,
		CreatedAt:          now,
		AcceptanceDeadline: now.Add(s.Window),
		UpdatedAt:          now,
		Version:            1,
	}
	// Both countdowns exist before the request is visible, so a response that
	// lands right after the insert always finds something to release.
	s.timers.Arm(req.ID, req.AcceptanceDeadline)
	if s.Expiry != nil {
		if err := s.Expiry.ScheduleExpiry(ctx, req.ID, req.AcceptanceDeadline); err != nil {
			s.Logger.Error("Failed to schedule durable expiry", zap.String("booking_id", req.ID), zap.Error(err))
		}
	}
	if _, err := s.Directory.Create(ctx, req); err != nil {
		s.release(ctx, req.ID)
		return models.BookingRequest{}, fmt.Errorf("failed to store booking request: %w", err)
	}

	s.Metrics.ObserveCreated(req.ServiceID)
	s.notify(ctx, req, now)

	s.Logger.Info("Booking request created",
		zap.String("booking_id", req.ID),
		zap.String("therapist_id", req.TherapistID),
		zap.String("service_id", req.ServiceID),
		zap.String("price", req.Price.StringFixed(2)))
	return req, nil
}

func validateInput(customerID string, input models.BookingRequestInput) error {
	var problems []string
	if customerID == "" {
		problems = append(problems, "customer is required")
	}
	if input.TherapistID == "" {
		problems = append(problems, "therapistId is required")
	}
	if input.ServiceID == "" {
		problems = append(problems, "serviceId is required")
	}
	if _, err := time.Parse("2006-01-02", input.ScheduledDate); err != nil {
		problems = append(problems, "scheduledDate must be YYYY-MM-DD")
	}
	if _, err := time.Parse("15:04", input.ScheduledTime); err != nil {
		problems = append(problems, "scheduledTime must be HH:MM")
	}
	if strings.TrimSpace(input.Address) == "" {
		problems = append(problems, "address is required")
	}
	if c := input.Coordinates; c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		problems = append(problems, "coordinates are out of range")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(problems, "; "))
	}
	return nil
}

// Get returns the request if principal is its customer, its therapist or an admin.
func (s *DefaultBookingService) Get(ctx context.Context, principal models.Principal, id string) (models.BookingRequest, error) {
	req, err := s.Directory.Get(ctx, id)
	if err != nil {
		return models.BookingRequest{}, err
	}
	if !canView(principal, req) {
		return models.BookingRequest{}, ErrForbidden
	}
	return req, nil
}

func canView(p models.Principal, req models.BookingRequest) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCustomer:
		return p.ID == req.CustomerID
	case models.RoleTherapist:
		return p.ID == req.TherapistID
	}
	return false
}

func (s *DefaultBookingService) Remaining(ctx context.Context, principal models.Principal, id string) (int, error) {
	req, err := s.Get(ctx, principal, id)
	if err != nil {
		return 0, err
	}
	return RemainingSeconds(req, s.Clock.Now()), nil
}

func (s *DefaultBookingService) ListForTherapist(ctx context.Context, therapistID string, statuses []models.BookingStatus) ([]models.BookingRequest, error) {
	if therapistID == "" {
		return nil, fmt.Errorf("%w: therapist is required", ErrInvalidRequest)
	}
	return s.Directory.ListByStatus(ctx, therapistID, statuses)
}

func (s *DefaultBookingService) Accept(ctx context.Context, therapistID, id string) (models.TransitionResult, error) {
	return s.respond(ctx, therapistID, id, models.EventAccept)
}

func (s *DefaultBookingService) Decline(ctx context.Context, therapistID, id string) (models.TransitionResult, error) {
	return s.respond(ctx, therapistID, id, models.EventDecline)
}

func (s *DefaultBookingService) respond(ctx context.Context, therapistID, id string, kind models.EventKind) (models.TransitionResult, error) {
	req, err := s.Directory.Get(ctx, id)
	if err != nil {
		return models.TransitionResult{}, err
	}
	if req.TherapistID != therapistID {
		return models.TransitionResult{}, ErrForbidden
	}
	return s.apply(ctx, id, models.TransitionEvent{Kind: kind, At: s.Clock.Now().UTC()})
}

// Cancel withdraws a pending request on behalf of its customer.
func (s *DefaultBookingService) Cancel(ctx context.Context, customerID, id string) (models.TransitionResult, error) {
	req, err := s.Directory.Get(ctx, id)
	if err != nil {
		return models.TransitionResult{}, err
	}
	if req.CustomerID != customerID {
		return models.TransitionResult{}, ErrForbidden
	}
	return s.apply(ctx, id, models.TransitionEvent{Kind: models.EventCancel, At: s.Clock.Now().UTC()})
}

// Expire applies an expiry attempt. It is what the durable queue worker calls;
// an expiry arriving before the deadline is stale.
func (s *DefaultBookingService) Expire(ctx context.Context, id string) (models.TransitionResult, error) {
	return s.apply(ctx, id, models.TransitionEvent{Kind: models.EventExpire, At: s.Clock.Now().UTC()})
}

func (s *DefaultBookingService) onTimer(id string, deadline time.Time) {
	at := s.Clock.Now().UTC()
	// The clock callback never runs early; tolerate coarse clocks that report
	// a hair before the deadline.
	if at.Before(deadline) {
		at = deadline
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.apply(ctx, id, models.TransitionEvent{Kind: models.EventExpire, At: at}); err != nil {
		s.Logger.Error("Acceptance timer failed to expire request", zap.String("booking_id", id), zap.Error(err))
	}
}

// RecordPayment feeds a payment outcome (processor reply or webhook) into the state machine.
func (s *DefaultBookingService) RecordPayment(ctx context.Context, id string, evt models.TransitionEvent) (models.TransitionResult, error) {
	if evt.Kind != models.EventPaymentSucceeded && evt.Kind != models.EventPaymentFailed {
		return models.TransitionResult{}, fmt.Errorf("%w: %q is not a payment event", ErrInvalidRequest, evt.Kind)
	}
	if evt.At.IsZero() {
		evt.At = s.Clock.Now().UTC()
	}
	return s.apply(ctx, id, evt)
}

func (s *DefaultBookingService) apply(ctx context.Context, id string, evt models.TransitionEvent) (models.TransitionResult, error) {
	res, err := s.Directory.ApplyTransition(ctx, id, evt)
	if err != nil {
		return models.TransitionResult{}, err
	}
	s.Metrics.ObserveTransition(string(evt.Kind), res.Applied)
	if !res.Applied {
		s.Logger.Info("Stale booking transition ignored",
			zap.String("booking_id", id),
			zap.String("event", string(evt.Kind)),
			zap.String("status", string(res.Status)))
		return res, nil
	}

	req := res.Request
	if evt.Kind == models.EventAccept || evt.Kind == models.EventDecline || evt.Kind == models.EventCancel || evt.Kind == models.EventExpire {
		s.release(ctx, id)
	}
	s.notify(ctx, req, evt.At)
	if req.Status == models.StatusAccepted {
		s.Metrics.ObserveAcceptanceLatency(evt.At.Sub(req.CreatedAt).Seconds())
		s.capture(req)
	}

	s.Logger.Info("Booking transition applied",
		zap.String("booking_id", id),
		zap.String("event", string(evt.Kind)),
		zap.String("status", string(req.Status)))
	return res, nil
}

// release drops both countdowns once the request has left pending.
func (s *DefaultBookingService) release(ctx context.Context, id string) {
	s.timers.Disarm(id)
	if s.Expiry == nil {
		return
	}
	if err := s.Expiry.CancelExpiry(ctx, id); err != nil {
		s.Logger.Warn("Failed to cancel durable expiry", zap.String("booking_id", id), zap.Error(err))
	}
}

// capture charges the customer in the background and applies the outcome.
func (s *DefaultBookingService) capture(req models.BookingRequest) {
	if s.Payments == nil {
		s.Logger.Warn("No payment processor configured; booking stays accepted", zap.String("booking_id", req.ID))
		return
	}
	s.payments.Add(1)
	go func() {
		defer s.payments.Done()
		ctx, cancel := context.WithTimeout(context.Background(), paymentTimeout)
		defer cancel()

		result, err := s.Payments.Charge(ctx, models.PaymentRequest{
			BookingID:      req.ID,
			CustomerID:     req.CustomerID,
			Amount:         req.Price,
			Currency:       req.Currency,
			IdempotencyKey: "booking-" + req.ID,
			Description:    fmt.Sprintf("%s massage, %d min", req.ServiceID, req.DurationMinutes),
		})
		evt := models.TransitionEvent{Kind: models.EventPaymentFailed, PaymentReference: result.Reference}
		switch {
		case err != nil:
			// The charge may still have gone through; only the webhook knows.
			s.Logger.Error("Payment processor error, awaiting webhook",
				zap.String("booking_id", req.ID),
				zap.Error(err))
			return
		case result.Status == models.PaymentSucceeded:
			evt.Kind = models.EventPaymentSucceeded
		case result.Status == models.PaymentPending:
			s.Logger.Info("Payment pending, awaiting webhook",
				zap.String("booking_id", req.ID),
				zap.String("reference", result.Reference))
			return
		default:
			s.Logger.Warn("Payment failed",
				zap.String("booking_id", req.ID),
				zap.String("reason", result.FailureReason))
		}
		if _, err := s.RecordPayment(ctx, req.ID, evt); err != nil {
			s.Logger.Error("Failed to record payment outcome", zap.String("booking_id", req.ID), zap.Error(err))
		}
	}()
}

func (s *DefaultBookingService) notify(ctx context.Context, req models.BookingRequest, at time.Time) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Notify(ctx, models.NoticeFor(req, at)); err != nil {
		s.Logger.Warn("Failed to notify booking change", zap.String("booking_id", req.ID), zap.Error(err))
	}
}

// Recover re-arms the countdown of every pending request, e.g. after a restart.
// Requests already past their deadline expire right away.
func (s *DefaultBookingService) Recover(ctx context.Context) (int, error) {
	pending, err := s.Directory.ListByStatus(ctx, "", []models.BookingStatus{models.StatusPending})
	if err != nil {
		return 0, fmt.Errorf("failed to list pending requests: %w", err)
	}
	for _, req := range pending {
		s.timers.Arm(req.ID, req.AcceptanceDeadline)
	}
	s.Logger.Info("Acceptance timers recovered", zap.Int("count", len(pending)))
	return len(pending), nil
}

// Wait blocks until in-flight payment captures have finished.
func (s *DefaultBookingService) Wait() {
	s.payments.Wait()
}

// Close stops every acceptance timer and waits for payment captures.
// Pending requests are expired later by the durable queue or by Recover.
func (s *DefaultBookingService) Close() {
	s.timers.Stop()
	s.payments.Wait()
}

// IsNotFound reports whether err means the booking request does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, bookingRepo.ErrNotFound)
}
