package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const profilePrefix = "payment:"

// ErrNoPaymentProfile is returned when a customer has no saved card.
var ErrNoPaymentProfile = errors.New("no saved payment method")

// Profile is the customer's saved Stripe customer and payment method.
type Profile struct {
	StripeCustomerID string `json:"stripeCustomerId" binding:"required"`
	PaymentMethodID  string `json:"paymentMethodId" binding:"required"`
}

type ProfileStore interface {
	Get(ctx context.Context, customerID string) (Profile, error)
	Set(ctx context.Context, customerID string, profile Profile) error
}

// RedisProfileStore keeps profiles in a hash per customer.
type RedisProfileStore struct {
	client *redis.Client
}

func NewRedisProfileStore(client *redis.Client) *RedisProfileStore {
	return &RedisProfileStore{client: client}
}

func (s *RedisProfileStore) Get(ctx context.Context, customerID string) (Profile, error) {
	fields, err := s.client.HGetAll(ctx, profilePrefix+customerID).Result()
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read payment profile for %s: %w", customerID, err)
	}
	p := Profile{StripeCustomerID: fields["customer"], PaymentMethodID: fields["payment_method"]}
	if p.StripeCustomerID == "" || p.PaymentMethodID == "" {
		return Profile{}, fmt.Errorf("%w: %s", ErrNoPaymentProfile, customerID)
	}
	return p, nil
}

func (s *RedisProfileStore) Set(ctx context.Context, customerID string, p Profile) error {
	err := s.client.HSet(ctx, profilePrefix+customerID,
		"customer", p.StripeCustomerID,
		"payment_method", p.PaymentMethodID,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to store payment profile for %s: %w", customerID, err)
	}
	return nil
}
