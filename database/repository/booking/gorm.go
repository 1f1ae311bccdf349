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
	"gorm.io/gorm"
)

// bookingRow is the relational shape of a booking request.
type bookingRow struct {
	ID                 string `gorm:"primaryKey;size:64"`
	CustomerID         string `gorm:"size:64;not null;index"`
	TherapistID        string `gorm:"size:64;not null;index:idx_therapist_status,priority:1"`
	ServiceID          string `gorm:"size:64;not null"`
	DurationMinutes    int    `gorm:"not null"`
	ScheduledDate      string `gorm:"size:10"`
	ScheduledTime      string `gorm:"size:5"`
	Address            string `gorm:"not null"`
	Lat                float64
	Lon                float64
	ParkingNotes       string
	RoomNotes          string
	Price              decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Currency           string          `gorm:"size:3"`
	Status             string          `gorm:"size:32;not null;index:idx_therapist_status,priority:2"`
	CreatedAt          time.Time       `gorm:"not null;index;autoCreateTime:false"`
	AcceptanceDeadline time.Time       `gorm:"not null"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime:false"`
	RespondedAt        *time.Time
	PaymentReference   string `gorm:"size:255"`
	Version            int64  `gorm:"not null;default:1"`
}

func (bookingRow) TableName() string { return "booking_requests" }

func toRow(req models.BookingRequest) bookingRow {
	return bookingRow{
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
		Price:              req.Price,
		Currency:           req.Currency,
		Status:             string(req.Status),
		CreatedAt:          req.CreatedAt,
		AcceptanceDeadline: req.AcceptanceDeadline,
		UpdatedAt:          req.UpdatedAt,
		RespondedAt:        req.RespondedAt,
		PaymentReference:   req.PaymentReference,
		Version:            req.Version,
	}
}

func (row bookingRow) toModel() models.BookingRequest {
	var responded *time.Time
	if row.RespondedAt != nil {
		t := row.RespondedAt.UTC()
		responded = &t
	}
	return models.BookingRequest{
		ID:                 row.ID,
		CustomerID:         row.CustomerID,
		TherapistID:        row.TherapistID,
		ServiceID:          row.ServiceID,
		DurationMinutes:    row.DurationMinutes,
		ScheduledDate:      row.ScheduledDate,
		ScheduledTime:      row.ScheduledTime,
		Address:            row.Address,
		Coordinates:        models.Coordinates{Lat: row.Lat, Lon: row.Lon},
		ParkingNotes:       row.ParkingNotes,
		RoomNotes:          row.RoomNotes,
		Price:              row.Price.Round(2),
		Currency:           row.Currency,
		Status:             models.BookingStatus(row.Status),
		CreatedAt:          row.CreatedAt.UTC(),
		AcceptanceDeadline: row.AcceptanceDeadline.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
		RespondedAt:        responded,
		PaymentReference:   row.PaymentReference,
		Version:            row.Version,
	}
}

// GormDirectory stores requests in a relational database through GORM.
// Transitions are an UPDATE guarded by the status and version that were read.
type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

// AutoMigrate creates or updates the booking_requests table.
func (r *GormDirectory) AutoMigrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&bookingRow{}); err != nil {
		return fmt.Errorf("failed to migrate booking_requests: %w", err)
	}
	return nil
}

func (r *GormDirectory) Create(ctx context.Context, req models.BookingRequest) (string, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	row := toRow(req)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", fmt.Errorf("%w: %s", ErrDuplicateID, req.ID)
		}
		return "", fmt.Errorf("failed to insert booking request: %w", err)
	}
	return req.ID, nil
}

func (r *GormDirectory) Get(ctx context.Context, id string) (models.BookingRequest, error) {
	var row bookingRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.BookingRequest{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return models.BookingRequest{}, fmt.Errorf("failed to load booking request %s: %w", id, err)
	}
	return row.toModel(), nil
}

func statusStrings(statuses []models.BookingStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func rowsToModels(rows []bookingRow) []models.BookingRequest {
	out := make([]models.BookingRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out
}

func (r *GormDirectory) ListByStatus(ctx context.Context, therapistID string, statuses []models.BookingStatus) ([]models.BookingRequest, error) {
	q := r.db.WithContext(ctx).Model(&bookingRow{})
	if therapistID != "" {
		q = q.Where("therapist_id = ?", therapistID)
	}
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statusStrings(statuses))
	}
	var rows []bookingRow
	if err := q.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list booking requests: %w", err)
	}
	return rowsToModels(rows), nil
}

func (r *GormDirectory) ApplyTransition(ctx context.Context, id string, evt models.TransitionEvent) (models.TransitionResult, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		current, err := r.Get(ctx, id)
		if err != nil {
			return models.TransitionResult{}, err
		}
		next, applied := lifecycle.Apply(current, evt)
		if !applied {
			return lifecycle.Result(current, false), nil
		}

		update := map[string]any{
			"status":     string(next.Status),
			"updated_at": next.UpdatedAt,
			"version":    next.Version,
		}
		if next.RespondedAt != nil {
			update["responded_at"] = *next.RespondedAt
		}
		if next.PaymentReference != "" {
			update["payment_reference"] = next.PaymentReference
		}
		res := r.db.WithContext(ctx).
			Model(&bookingRow{}).
			Where("id = ? AND status = ? AND version = ?", id, string(current.Status), current.Version).
			Updates(update)
		if res.Error != nil {
			return models.TransitionResult{}, fmt.Errorf("failed to update booking request %s: %w", id, res.Error)
		}
		if res.RowsAffected == 1 {
			return lifecycle.Result(next, true), nil
		}
	}
	return models.TransitionResult{}, fmt.Errorf("%w: %s", ErrContention, id)
}

func (r *GormDirectory) ListAll(ctx context.Context, f models.BookingFilter) ([]models.BookingRequest, error) {
	q := r.db.WithContext(ctx).Model(&bookingRow{})
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", statusStrings(f.Statuses))
	}
	if f.TherapistID != "" {
		q = q.Where("therapist_id = ?", f.TherapistID)
	}
	if f.CustomerID != "" {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var rows []bookingRow
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list booking requests: %w", err)
	}
	return rowsToModels(rows), nil
}

func (r *GormDirectory) RevenueSummary(ctx context.Context, from, to time.Time) (models.RevenueReport, error) {
	report := models.RevenueReport{
		From:         from,
		To:           to,
		TotalRevenue: decimal.Zero,
		StatusCounts: make(map[models.BookingStatus]int64),
	}

	var revenueRows []struct {
		ServiceID string
		Count     int64
		Revenue   decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&bookingRow{}).
		Select("service_id, COUNT(*) AS count, COALESCE(SUM(price), 0) AS revenue").
		Where("status = ? AND created_at >= ? AND created_at < ?", string(models.StatusConfirmed), from, to).
		Group("service_id").
		Order("service_id").
		Scan(&revenueRows).Error
	if err != nil {
		return report, fmt.Errorf("failed to aggregate revenue: %w", err)
	}
	for _, row := range revenueRows {
		revenue := row.Revenue.Round(2)
		report.ByService = append(report.ByService, models.ServiceRevenue{
			ServiceID: row.ServiceID,
			Count:     row.Count,
			Revenue:   revenue,
		})
		report.ConfirmedCount += row.Count
		report.TotalRevenue = report.TotalRevenue.Add(revenue)
	}

	var statusRows []struct {
		Status string
		Count  int64
	}
	err = r.db.WithContext(ctx).
		Model(&bookingRow{}).
		Select("status, COUNT(*) AS count").
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("status").
		Scan(&statusRows).Error
	if err != nil {
		return report, fmt.Errorf("failed to count statuses: %w", err)
	}
	for _, row := range statusRows {
		report.StatusCounts[models.BookingStatus(row.Status)] = row.Count
	}
	return report, nil
}
