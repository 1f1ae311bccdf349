package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"soothe/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"go.uber.org/zap"
)

// StripeProcessor charges the customer's saved card off-session with a
// confirmed PaymentIntent. The booking id is carried in metadata so the
// webhook can route late outcomes.
type StripeProcessor struct {
	intents  paymentintent.Client
	profiles ProfileStore
	logger   *zap.Logger
}

func NewStripeProcessor(backend stripe.Backend, key string, profiles ProfileStore, logger *zap.Logger) *StripeProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StripeProcessor{
		intents:  paymentintent.Client{B: backend, Key: key},
		profiles: profiles,
		logger:   logger,
	}
}

// MinorUnits converts a two-decimal amount to cents.
func MinorUnits(req models.PaymentRequest) int64 {
	return req.Amount.Shift(2).Round(0).IntPart()
}

func (p *StripeProcessor) Charge(ctx context.Context, req models.PaymentRequest) (models.PaymentResult, error) {
	if !req.Amount.IsPositive() {
		return models.PaymentResult{}, fmt.Errorf("invalid payment amount %s", req.Amount)
	}
	profile, err := p.profiles.Get(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, ErrNoPaymentProfile) {
			return models.PaymentResult{Status: models.PaymentFailed, FailureReason: "no saved payment method"}, nil
		}
		return models.PaymentResult{}, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(MinorUnits(req)),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		Customer:      stripe.String(profile.StripeCustomerID),
		PaymentMethod: stripe.String(profile.PaymentMethodID),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
		Description:   stripe.String(req.Description),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.AddMetadata("booking_id", req.BookingID)
	params.AddMetadata("customer_id", req.CustomerID)

	pi, err := p.intents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			res := models.PaymentResult{Status: models.PaymentFailed, FailureReason: string(stripeErr.Code)}
			if stripeErr.DeclineCode != "" {
				res.FailureReason = string(stripeErr.DeclineCode)
			}
			if stripeErr.PaymentIntent != nil {
				res.Reference = stripeErr.PaymentIntent.ID
			}
			p.logger.Info("Card declined",
				zap.String("booking_id", req.BookingID),
				zap.String("reason", res.FailureReason))
			return res, nil
		}
		return models.PaymentResult{}, fmt.Errorf("stripe payment intent for %s: %w", req.BookingID, err)
	}
	return resultFromIntent(pi), nil
}

func resultFromIntent(pi *stripe.PaymentIntent) models.PaymentResult {
	res := models.PaymentResult{Reference: pi.ID}
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		res.Status = models.PaymentSucceeded
	case stripe.PaymentIntentStatusProcessing, stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresCapture:
		res.Status = models.PaymentPending
	default:
		res.Status = models.PaymentFailed
		if pi.LastPaymentError != nil {
			res.FailureReason = string(pi.LastPaymentError.Code)
		}
	}
	return res
}

// NewStripeBackend builds the API backend with the library's logging silenced;
// request failures surface as returned errors.
func NewStripeBackend(url string) stripe.Backend {
	cfg := &stripe.BackendConfig{
		LeveledLogger: &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if url != "" {
		cfg.URL = stripe.String(url)
		cfg.MaxNetworkRetries = stripe.Int64(0)
	}
	return stripe.GetBackendWithConfig(stripe.APIBackend, cfg)
}
