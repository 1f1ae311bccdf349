package bookingRepo

import (
	"fmt"
	"time"

	"soothe/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// bookingDocument is the MongoDB shape of a booking request. Prices are stored
// as Decimal128 so aggregation sums stay exact.
type bookingDocument struct {
	ID                 string               `bson:"id"`
	CustomerID         string               `bson:"customerId"`
	TherapistID        string               `bson:"therapistId"`
	ServiceID          string               `bson:"serviceId"`
	DurationMinutes    int                  `bson:"durationMinutes"`
	ScheduledDate      string               `bson:"scheduledDate"`
	ScheduledTime      string               `bson:"scheduledTime"`
	Address            string               `bson:"address"`
	Lat                float64              `bson:"lat"`
	Lon                float64              `bson:"lon"`
	ParkingNotes       string               `bson:"parkingNotes,omitempty"`
	RoomNotes          string               `bson:"roomNotes,omitempty"`
	Price              primitive.Decimal128 `bson:"price"`
	Currency           string               `bson:"currency"`
	Status             string               `bson:"status"`
	CreatedAt          time.Time            `bson:"createdAt"`
	AcceptanceDeadline time.Time            `bson:"acceptanceDeadline"`
	UpdatedAt          time.Time            `bson:"updatedAt"`
	RespondedAt        *time.Time           `bson:"respondedAt,omitempty"`
	PaymentReference   string               `bson:"paymentReference,omitempty"`
	Version            int64                `bson:"version"`
}

func toDocument(req models.BookingRequest) (bookingDocument, error) {
	price, err := primitive.ParseDecimal128(req.Price.String())
	if err != nil {
		return bookingDocument{}, fmt.Errorf("encode price %s: %w", req.Price, err)
	}
	return bookingDocument{
		ID:                 req.ID,
		CustomerID:         req.CustomerID,
		TherapistID:        req.TherapistID,
		ServiceID:          req.ServiceID,
		DurationMinutes:    req.DurationMinutes,
		ScheduledDate:      req.ScheduledDate,
		ScheduledTime:      req.ScheduledTime,
		Address:            req.Address,
		Lat:                req.Coordinates.Lat,
		Lon:                req.Coordinates.Lon,
		ParkingNotes:       req.ParkingNotes,
		RoomNotes:          req.RoomNotes,
		Price:              price,
		Currency:           req.Currency,
		Status:             string(req.Status),
		CreatedAt:          req.CreatedAt,
		AcceptanceDeadline: req.AcceptanceDeadline,
		UpdatedAt:          req.UpdatedAt,
		RespondedAt:        req.RespondedAt,
		PaymentReference:   req.PaymentReference,
		Version:            req.Version,
	}, nil
}

func decimalFrom128(d primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(d.String())
}

func (doc bookingDocument) toModel() (models.BookingRequest, error) {
	price, err := decimalFrom128(doc.Price)
	if err != nil {
		return models.BookingRequest{}, fmt.Errorf("decode price of %s: %w", doc.ID, err)
	}
	return models.BookingRequest{
		ID:                 doc.ID,
		CustomerID:         doc.CustomerID,
		TherapistID:        doc.TherapistID,
		ServiceID:          doc.ServiceID,
		DurationMinutes:    doc.DurationMinutes,
		ScheduledDate:      doc.ScheduledDate,
		ScheduledTime:      doc.ScheduledTime,
		Address:            doc.Address,
		Coordinates:        models.Coordinates{Lat: doc.Lat, Lon: doc.Lon},
		ParkingNotes:       doc.ParkingNotes,
		RoomNotes:          doc.RoomNotes,
		Price:              price,
		Currency:           doc.Currency,
		Status:             models.BookingStatus(doc.Status),
		CreatedAt:          doc.CreatedAt.UTC(),
		AcceptanceDeadline: doc.AcceptanceDeadline.UTC(),
		UpdatedAt:          doc.UpdatedAt.UTC(),
		RespondedAt:        doc.RespondedAt,
		PaymentReference:   doc.PaymentReference,
		Version:            doc.Version,
	}, nil
}
