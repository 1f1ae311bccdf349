package tierRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"soothe/models"
	"soothe/services/pricing"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type tierDocument struct {
	ID                  string               `bson:"id"`
	Name                string               `bson:"name"`
	BaseDurationMinutes int                  `bson:"baseDurationMinutes"`
	BasePrice           primitive.Decimal128 `bson:"basePrice"`
	IncrementMinutes    int                  `bson:"incrementMinutes"`
	IncrementPrice      primitive.Decimal128 `bson:"incrementPrice"`
	MaxDurationMinutes  int                  `bson:"maxDurationMinutes"`
	SortOrder           int                  `bson:"sortOrder"`
}

func (doc tierDocument) toModel() (models.ServiceTier, error) {
	base, err := decimal.NewFromString(doc.BasePrice.String())
	if err != nil {
		return models.ServiceTier{}, fmt.Errorf("%w: %s: basePrice: %v", pricing.ErrInvalidTier, doc.ID, err)
	}
	inc, err := decimal.NewFromString(doc.IncrementPrice.String())
	if err != nil {
		return models.ServiceTier{}, fmt.Errorf("%w: %s: incrementPrice: %v", pricing.ErrInvalidTier, doc.ID, err)
	}
	tier := models.ServiceTier{
		ID:                  doc.ID,
		Name:                doc.Name,
		BaseDurationMinutes: doc.BaseDurationMinutes,
		BasePrice:           base,
		IncrementMinutes:    doc.IncrementMinutes,
		IncrementPrice:      inc,
		MaxDurationMinutes:  doc.MaxDurationMinutes,
	}
	return tier, pricing.ValidateTier(tier)
}

func toDocument(tier models.ServiceTier, order int) (tierDocument, error) {
	base, err := primitive.ParseDecimal128(tier.BasePrice.String())
	if err != nil {
		return tierDocument{}, err
	}
	inc, err := primitive.ParseDecimal128(tier.IncrementPrice.String())
	if err != nil {
		return tierDocument{}, err
	}
	return tierDocument{
		ID:                  tier.ID,
		Name:                tier.Name,
		BaseDurationMinutes: tier.BaseDurationMinutes,
		BasePrice:           base,
		IncrementMinutes:    tier.IncrementMinutes,
		IncrementPrice:      inc,
		MaxDurationMinutes:  tier.MaxDurationMinutes,
		SortOrder:           order,
	}, nil
}

// MongoCatalog reads service tiers from the service_tiers collection. Entries
// that fail validation are reported as ErrInvalidTier rather than priced.
type MongoCatalog struct {
	coll *mongo.Collection
}

func NewMongoCatalog(db *mongo.Database) *MongoCatalog {
	return &MongoCatalog{coll: db.Collection("service_tiers")}
}

func (c *MongoCatalog) Get(ctx context.Context, id string) (models.ServiceTier, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc tierDocument
	if err := c.coll.FindOne(ctx, bson.M{"id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ServiceTier{}, fmt.Errorf("%w: %s", pricing.ErrUnknownService, id)
		}
		return models.ServiceTier{}, fmt.Errorf("failed to load service tier %s: %w", id, err)
	}
	return doc.toModel()
}

func (c *MongoCatalog) List(ctx context.Context) ([]models.ServiceTier, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := c.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "sortOrder", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list service tiers: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []tierDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode service tiers: %w", err)
	}
	tiers := make([]models.ServiceTier, 0, len(docs))
	for _, doc := range docs {
		tier, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, tier)
	}
	return tiers, nil
}

// Seed upserts tiers so a fresh database starts with the configured catalog.
func (c *MongoCatalog) Seed(ctx context.Context, tiers []models.ServiceTier) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for i, tier := range tiers {
		if err := pricing.ValidateTier(tier); err != nil {
			return err
		}
		doc, err := toDocument(tier, i)
		if err != nil {
			return fmt.Errorf("failed to encode service tier %s: %w", tier.ID, err)
		}
		_, err = c.coll.ReplaceOne(ctx, bson.M{"id": tier.ID}, doc, options.Replace().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("failed to seed service tier %s: %w", tier.ID, err)
		}
	}
	return nil
}
