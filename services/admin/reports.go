package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	bookingRepo "soothe/database/repository/booking"
	"soothe/models"

	"github.com/jonboulle/clockwork"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	defaultPeriod   = 30 * 24 * time.Hour
)

var ErrInvalidRange = errors.New("invalid report range")

type AdminService interface {
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.BookingRequest, error)
	RevenueReport(ctx context.Context, from, to *time.Time) (models.RevenueReport, error)
}

// DefaultAdminService serves the back-office views over the booking directory.
type DefaultAdminService struct {
	Directory bookingRepo.Directory
	Currency  string
	Clock     clockwork.Clock
}

func NewDefaultAdminService(dir bookingRepo.Directory, currency string, clock clockwork.Clock) *DefaultAdminService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DefaultAdminService{Directory: dir, Currency: strings.ToLower(currency), Clock: clock}
}

func (s *DefaultAdminService) ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.BookingRequest, error) {
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRange, st)
		}
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, fmt.Errorf("%w: from must be before to", ErrInvalidRange)
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultPageSize
	case filter.Limit > maxPageSize:
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.Directory.ListAll(ctx, filter)
}

// RevenueReport summarises bookings created in [from, to). Missing bounds
// default to the last 30 days.
func (s *DefaultAdminService) RevenueReport(ctx context.Context, from, to *time.Time) (models.RevenueReport, error) {
	end := s.Clock.Now().UTC()
	if to != nil {
		end = to.UTC()
	}
	begin := end.Add(-defaultPeriod)
	if from != nil {
		begin = from.UTC()
	}
	if !begin.Before(end) {
		return models.RevenueReport{}, fmt.Errorf("%w: from must be before to", ErrInvalidRange)
	}

	report, err := s.Directory.RevenueSummary(ctx, begin, end)
	if err != nil {
		return models.RevenueReport{}, fmt.Errorf("failed to summarise revenue: %w", err)
	}
	report.Currency = s.Currency
	if report.ByService == nil {
		report.ByService = []models.ServiceRevenue{}
	}
	return report, nil
}
