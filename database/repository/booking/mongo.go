package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"soothe/models"
	"soothe/services/lifecycle"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const bookingCollection = "booking_requests"

// MongoDirectory stores requests in MongoDB. Transitions are a FindOneAndUpdate
// filtered on the status and version that were read.
type MongoDirectory struct {
	coll *mongo.Collection
}

func NewMongoDirectory(db *mongo.Database) *MongoDirectory {
	return &MongoDirectory{coll: db.Collection(bookingCollection)}
}

func (r *MongoDirectory) Create(ctx context.Context, req models.BookingRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	doc, err := toDocument(req)
	if err != nil {
		return "", err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: %s", ErrDuplicateID, req.ID)
		}
		return "", fmt.Errorf("failed to insert booking request: %w", err)
	}
	return req.ID, nil
}

func (r *MongoDirectory) Get(ctx context.Context, id string) (models.BookingRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc bookingDocument
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.BookingRequest{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return models.BookingRequest{}, fmt.Errorf("failed to load booking request %s: %w", id, err)
	}
	return doc.toModel()
}

func (r *MongoDirectory) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.BookingRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query booking requests: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bookingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode booking requests: %w", err)
	}
	out := make([]models.BookingRequest, 0, len(docs))
	for _, doc := range docs {
		req, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func statusValues(statuses []models.BookingStatus) bson.A {
	values := make(bson.A, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	return values
}

func (r *MongoDirectory) ListByStatus(ctx context.Context, therapistID string, statuses []models.BookingStatus) ([]models.BookingRequest, error) {
	filter := bson.M{}
	if therapistID != "" {
		filter["therapistId"] = therapistID
	}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statusValues(statuses)}
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (r *MongoDirectory) ApplyTransition(ctx context.Context, id string, evt models.TransitionEvent) (models.TransitionResult, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		current, err := r.Get(ctx, id)
		if err != nil {
			return models.TransitionResult{}, err
		}
		next, applied := lifecycle.Apply(current, evt)
		if !applied {
			return lifecycle.Result(current, false), nil
		}

		updated, won, err := r.compareAndSet(ctx, current, next)
		if err != nil {
			return models.TransitionResult{}, err
		}
		if won {
			return lifecycle.Result(updated, true), nil
		}
		// Someone else moved the request first; re-read and re-arbitrate.
	}
	return models.TransitionResult{}, fmt.Errorf("%w: %s", ErrContention, id)
}

func (r *MongoDirectory) compareAndSet(ctx context.Context, current, next models.BookingRequest) (models.BookingRequest, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"id":      current.ID,
		"status":  string(current.Status),
		"version": current.Version,
	}
	set := bson.M{
		"status":    string(next.Status),
		"updatedAt": next.UpdatedAt,
		"version":   next.Version,
	}
	if next.RespondedAt != nil {
		set["respondedAt"] = *next.RespondedAt
	}
	if next.PaymentReference != "" {
		set["paymentReference"] = next.PaymentReference
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc bookingDocument
	err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.BookingRequest{}, false, nil
	}
	if err != nil {
		return models.BookingRequest{}, false, fmt.Errorf("failed to update booking request %s: %w", current.ID, err)
	}
	updated, err := doc.toModel()
	return updated, err == nil, err
}

func (r *MongoDirectory) ListAll(ctx context.Context, f models.BookingFilter) ([]models.BookingRequest, error) {
	filter := bson.M{}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": statusValues(f.Statuses)}
	}
	if f.TherapistID != "" {
		filter["therapistId"] = f.TherapistID
	}
	if f.CustomerID != "" {
		filter["customerId"] = f.CustomerID
	}
	if created := createdRange(f.From, f.To); len(created) > 0 {
		filter["createdAt"] = created
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}
	return r.find(ctx, filter, opts)
}

func createdRange(from, to *time.Time) bson.M {
	created := bson.M{}
	if from != nil {
		created["$gte"] = *from
	}
	if to != nil {
		created["$lt"] = *to
	}
	return created
}

type serviceRevenueRow struct {
	ServiceID string        `bson:"_id"`
	Count     int64         `bson:"count"`
	Revenue   bson.RawValue `bson:"revenue"`
}

type statusCountRow struct {
	Status string `bson:"_id"`
	Count  int64  `bson:"count"`
}

func (r *MongoDirectory) RevenueSummary(ctx context.Context, from, to time.Time) (models.RevenueReport, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	report := models.RevenueReport{
		From:         from,
		To:           to,
		TotalRevenue: decimal.Zero,
		StatusCounts: make(map[models.BookingStatus]int64),
	}
	window := createdRange(&from, &to)

	revenuePipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": string(models.StatusConfirmed), "createdAt": window}}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$serviceId",
			"count":   bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": "$price"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	var revenueRows []serviceRevenueRow
	if err := r.aggregate(ctx, revenuePipeline, &revenueRows); err != nil {
		return report, err
	}
	for _, row := range revenueRows {
		revenue, err := rawDecimal(row.Revenue)
		if err != nil {
			return report, fmt.Errorf("decode revenue of %s: %w", row.ServiceID, err)
		}
		report.ByService = append(report.ByService, models.ServiceRevenue{
			ServiceID: row.ServiceID,
			Count:     row.Count,
			Revenue:   revenue,
		})
		report.ConfirmedCount += row.Count
		report.TotalRevenue = report.TotalRevenue.Add(revenue)
	}

	statusPipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": window}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	var statusRows []statusCountRow
	if err := r.aggregate(ctx, statusPipeline, &statusRows); err != nil {
		return report, err
	}
	for _, row := range statusRows {
		report.StatusCounts[models.BookingStatus(row.Status)] = row.Count
	}
	return report, nil
}

func (r *MongoDirectory) aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error {
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("failed to aggregate booking requests: %w", err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode aggregation: %w", err)
	}
	return nil
}

// rawDecimal reads a $sum result, which is Decimal128 for stored prices and an
// integer when the group had nothing to add.
func rawDecimal(v bson.RawValue) (decimal.Decimal, error) {
	if d, ok := v.Decimal128OK(); ok {
		return decimalFrom128(d)
	}
	if i, ok := v.Int64OK(); ok {
		return decimal.NewFromInt(i), nil
	}
	if i, ok := v.Int32OK(); ok {
		return decimal.NewFromInt(int64(i)), nil
	}
	if f, ok := v.DoubleOK(); ok {
		return decimal.NewFromFloat(f), nil
	}
	return decimal.Zero, fmt.Errorf("unexpected bson type %s", v.Type)
}
