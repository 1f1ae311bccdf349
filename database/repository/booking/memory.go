package bookingRepo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"soothe/models"
	"soothe/services/lifecycle"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memoryEntry struct {
	mu  sync.Mutex
	req models.BookingRequest
}

// MemoryDirectory keeps requests in process. Each request has its own lock,
// so transitions on different ids never contend.
type MemoryDirectory struct {
	mu       sync.RWMutex
	requests map[string]*memoryEntry
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{requests: make(map[string]*memoryEntry)}
}

func (d *MemoryDirectory) Create(_ context.Context, req models.BookingRequest) (string, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.requests[req.ID]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, req.ID)
	}
	d.requests[req.ID] = &memoryEntry{req: req}
	return req.ID, nil
}

func (d *MemoryDirectory) entry(id string) (*memoryEntry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

func (d *MemoryDirectory) Get(_ context.Context, id string) (models.BookingRequest, error) {
	e, err := d.entry(id)
	if err != nil {
		return models.BookingRequest{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.req, nil
}

func (d *MemoryDirectory) snapshot() []models.BookingRequest {
	d.mu.RLock()
	entries := make([]*memoryEntry, 0, len(d.requests))
	for _, e := range d.requests {
		entries = append(entries, e)
	}
	d.mu.RUnlock()

	out := make([]models.BookingRequest, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.req)
		e.mu.Unlock()
	}
	return out
}

func (d *MemoryDirectory) ListByStatus(_ context.Context, therapistID string, statuses []models.BookingStatus) ([]models.BookingRequest, error) {
	var out []models.BookingRequest
	for _, req := range d.snapshot() {
		if therapistID != "" && req.TherapistID != therapistID {
			continue
		}
		if statusIn(req.Status, statuses) {
			out = append(out, req)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func (d *MemoryDirectory) ApplyTransition(_ context.Context, id string, evt models.TransitionEvent) (models.TransitionResult, error) {
	e, err := d.entry(id)
	if err != nil {
		return models.TransitionResult{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	next, applied := lifecycle.Apply(e.req, evt)
	if applied {
		e.req = next
	}
	return lifecycle.Result(next, applied), nil
}

func (d *MemoryDirectory) ListAll(_ context.Context, filter models.BookingFilter) ([]models.BookingRequest, error) {
	var out []models.BookingRequest
	for _, req := range d.snapshot() {
		if matchesFilter(req, filter) {
			out = append(out, req)
		}
	}
	sortNewestFirst(out)
	return page(out, filter.Limit, filter.Offset), nil
}

func (d *MemoryDirectory) RevenueSummary(_ context.Context, from, to time.Time) (models.RevenueReport, error) {
	report := models.RevenueReport{
		From:         from,
		To:           to,
		TotalRevenue: decimal.Zero,
		StatusCounts: make(map[models.BookingStatus]int64),
	}
	byService := make(map[string]*models.ServiceRevenue)
	window := models.BookingFilter{From: &from, To: &to}
	for _, req := range d.snapshot() {
		if !matchesFilter(req, window) {
			continue
		}
		report.StatusCounts[req.Status]++
		if req.Status != models.StatusConfirmed {
			continue
		}
		row, ok := byService[req.ServiceID]
		if !ok {
			row = &models.ServiceRevenue{ServiceID: req.ServiceID, Revenue: decimal.Zero}
			byService[req.ServiceID] = row
		}
		row.Count++
		row.Revenue = row.Revenue.Add(req.Price)
	}
	for _, row := range byService {
		report.ByService = append(report.ByService, *row)
		report.ConfirmedCount += row.Count
		report.TotalRevenue = report.TotalRevenue.Add(row.Revenue)
	}
	sortServices(report.ByService)
	return report, nil
}
