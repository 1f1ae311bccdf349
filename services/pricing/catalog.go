package pricing

import (
	"context"
	"fmt"

	"soothe/config"
	"soothe/models"

	"github.com/shopspring/decimal"
)

// Catalog resolves service tiers by id.
type Catalog interface {
	Get(ctx context.Context, id string) (models.ServiceTier, error)
	List(ctx context.Context) ([]models.ServiceTier, error)
}

// StaticCatalog is an immutable in-memory catalog.
type StaticCatalog struct {
	order []string
	tiers map[string]models.ServiceTier
}

// NewStaticCatalog validates every tier; a single bad entry rejects the whole catalog.
func NewStaticCatalog(tiers []models.ServiceTier) (*StaticCatalog, error) {
	c := &StaticCatalog{tiers: make(map[string]models.ServiceTier, len(tiers))}
	for _, t := range tiers {
		if err := ValidateTier(t); err != nil {
			return nil, err
		}
		if _, dup := c.tiers[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidTier, t.ID)
		}
		c.tiers[t.ID] = t
		c.order = append(c.order, t.ID)
	}
	return c, nil
}

func (c *StaticCatalog) Get(_ context.Context, id string) (models.ServiceTier, error) {
	t, ok := c.tiers[id]
	if !ok {
		return models.ServiceTier{}, fmt.Errorf("%w: %s", ErrUnknownService, id)
	}
	return t, nil
}

func (c *StaticCatalog) List(_ context.Context) ([]models.ServiceTier, error) {
	out := make([]models.ServiceTier, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.tiers[id])
	}
	return out, nil
}

// DefaultTiers is the catalog used when none is configured.
func DefaultTiers() []models.ServiceTier {
	return []models.ServiceTier{
		{
			ID: "swedish", Name: "Swedish Massage",
			BaseDurationMinutes: 60, BasePrice: decimal.NewFromInt(80),
			IncrementMinutes: 30, IncrementPrice: decimal.NewFromInt(40),
			MaxDurationMinutes: 120,
		},
		{
			ID: "deep-tissue", Name: "Deep Tissue Massage",
			BaseDurationMinutes: 60, BasePrice: decimal.NewFromInt(95),
			IncrementMinutes: 30, IncrementPrice: decimal.NewFromInt(45),
			MaxDurationMinutes: 120,
		},
		{
			ID: "prenatal", Name: "Prenatal Massage",
			BaseDurationMinutes: 60, BasePrice: decimal.NewFromInt(90),
			IncrementMinutes: 30, IncrementPrice: decimal.NewFromInt(40),
			MaxDurationMinutes: 120,
		},
	}
}

// TiersFromConfig converts configured tiers, falling back to DefaultTiers when none are set.
func TiersFromConfig(entries []config.TierConfig) []models.ServiceTier {
	if len(entries) == 0 {
		return DefaultTiers()
	}
	tiers := make([]models.ServiceTier, 0, len(entries))
	for _, e := range entries {
		tiers = append(tiers, models.ServiceTier{
			ID:                  e.ID,
			Name:                e.Name,
			BaseDurationMinutes: e.BaseDurationMinutes,
			BasePrice:           decimal.NewFromFloat(e.BasePrice).Round(2),
			IncrementMinutes:    e.IncrementMinutes,
			IncrementPrice:      decimal.NewFromFloat(e.IncrementPrice).Round(2),
			MaxDurationMinutes:  e.MaxDurationMinutes,
		})
	}
	return tiers
}
