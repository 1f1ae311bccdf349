package models

import "github.com/shopspring/decimal"

// ServiceTier is a massage type with its pricing rule.
type ServiceTier struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	BaseDurationMinutes int             `json:"baseDurationMinutes"`
	BasePrice           decimal.Decimal `json:"basePrice"`
	IncrementMinutes    int             `json:"incrementMinutes"`
	IncrementPrice      decimal.Decimal `json:"incrementPrice"`
	MaxDurationMinutes  int             `json:"maxDurationMinutes"` // 0 means base + 2 increments
}

// OfferedDurations lists the durations a customer can pick for this tier.
func (t ServiceTier) OfferedDurations() []int {
	if t.IncrementMinutes <= 0 {
		return []int{t.BaseDurationMinutes}
	}
	limit := t.MaxDurationMinutes
	if limit < t.BaseDurationMinutes {
		limit = t.BaseDurationMinutes + 2*t.IncrementMinutes
	}
	var out []int
	for d := t.BaseDurationMinutes; d <= limit; d += t.IncrementMinutes {
		out = append(out, d)
	}
	return out
}
