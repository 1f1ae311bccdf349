package bookingRepo

import (
	"sort"

	"soothe/models"
)

func statusIn(s models.BookingStatus, statuses []models.BookingStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, want := range statuses {
		if s == want {
			return true
		}
	}
	return false
}

func matchesFilter(req models.BookingRequest, f models.BookingFilter) bool {
	if !statusIn(req.Status, f.Statuses) {
		return false
	}
	if f.TherapistID != "" && req.TherapistID != f.TherapistID {
		return false
	}
	if f.CustomerID != "" && req.CustomerID != f.CustomerID {
		return false
	}
	if f.From != nil && req.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !req.CreatedAt.Before(*f.To) {
		return false
	}
	return true
}

func page(reqs []models.BookingRequest, limit, offset int) []models.BookingRequest {
	if offset > 0 {
		if offset >= len(reqs) {
			return []models.BookingRequest{}
		}
		reqs = reqs[offset:]
	}
	if limit > 0 && limit < len(reqs) {
		reqs = reqs[:limit]
	}
	return reqs
}

func sortOldestFirst(reqs []models.BookingRequest) {
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].CreatedAt.Before(reqs[j].CreatedAt) })
}

func sortNewestFirst(reqs []models.BookingRequest) {
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].CreatedAt.After(reqs[j].CreatedAt) })
}

func sortServices(rows []models.ServiceRevenue) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].ServiceID < rows[j].ServiceID })
}
