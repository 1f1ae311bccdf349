package pricing

import (
	"fmt"

	"soothe/models"

	"github.com/shopspring/decimal"
)

// ValidateTier checks that a tier's pricing rule is usable.
func ValidateTier(tier models.ServiceTier) error {
	switch {
	case tier.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidTier)
	case tier.IncrementMinutes <= 0:
		return fmt.Errorf("%w: %s: incrementMinutes must be positive, got %d", ErrInvalidTier, tier.ID, tier.IncrementMinutes)
	case tier.BaseDurationMinutes <= 0:
		return fmt.Errorf("%w: %s: baseDurationMinutes must be positive, got %d", ErrInvalidTier, tier.ID, tier.BaseDurationMinutes)
	case !tier.BasePrice.IsPositive():
		return fmt.Errorf("%w: %s: basePrice must be positive", ErrInvalidTier, tier.ID)
	case tier.IncrementPrice.IsNegative():
		return fmt.Errorf("%w: %s: incrementPrice must not be negative", ErrInvalidTier, tier.ID)
	case tier.MaxDurationMinutes != 0 && tier.MaxDurationMinutes < tier.BaseDurationMinutes:
		return fmt.Errorf("%w: %s: maxDurationMinutes below base duration", ErrInvalidTier, tier.ID)
	}
	return nil
}

// ComputePrice returns basePrice + ((d - base) / incrementMinutes) * incrementPrice, rounded to cents.
func ComputePrice(tier models.ServiceTier, durationMinutes int) (decimal.Decimal, error) {
	if err := ValidateTier(tier); err != nil {
		return decimal.Zero, err
	}
	extra := durationMinutes - tier.BaseDurationMinutes
	if extra < 0 {
		return decimal.Zero, fmt.Errorf("%w: %d minutes is below the %d minute base of %s",
			ErrInvalidDuration, durationMinutes, tier.BaseDurationMinutes, tier.ID)
	}
	if extra%tier.IncrementMinutes != 0 {
		return decimal.Zero, fmt.Errorf("%w: %d minutes is not base %d plus whole %d minute increments",
			ErrInvalidDuration, durationMinutes, tier.BaseDurationMinutes, tier.IncrementMinutes)
	}
	steps := decimal.NewFromInt(int64(extra / tier.IncrementMinutes))
	return tier.BasePrice.Add(steps.Mul(tier.IncrementPrice)).Round(2), nil
}

// Offers reports whether durationMinutes is within the tier's offered range.
func Offers(tier models.ServiceTier, durationMinutes int) bool {
	for _, d := range tier.OfferedDurations() {
		if d == durationMinutes {
			return true
		}
	}
	return false
}
