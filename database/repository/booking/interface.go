package bookingRepo

import (
	"context"
	"errors"
	"time"

	"soothe/models"
)

var (
	// ErrNotFound is returned when no booking request has the given id.
	ErrNotFound = errors.New("booking request not found")
	// ErrDuplicateID is returned by Create when the id is already taken.
	ErrDuplicateID = errors.New("booking request id already exists")
	// ErrContention is returned when a compare-and-set kept losing to concurrent writers.
	ErrContention = errors.New("booking request is being updated concurrently")
)

// maxCASAttempts bounds how often ApplyTransition re-reads after losing a compare-and-set.
const maxCASAttempts = 5

// Directory stores booking requests and serializes their transitions per id.
type Directory interface {
	Create(ctx context.Context, req models.BookingRequest) (string, error)
	Get(ctx context.Context, id string) (models.BookingRequest, error)
	// ListByStatus returns the therapist's requests in the given statuses, oldest first.
	// An empty therapistID matches every therapist; no statuses matches every status.
	ListByStatus(ctx context.Context, therapistID string, statuses []models.BookingStatus) ([]models.BookingRequest, error)
	// ApplyTransition runs evt through the state machine under compare-and-set.
	// A stale event is reported in the result, never as an error.
	ApplyTransition(ctx context.Context, id string, evt models.TransitionEvent) (models.TransitionResult, error)
	// ListAll returns requests matching filter, newest first.
	ListAll(ctx context.Context, filter models.BookingFilter) ([]models.BookingRequest, error)
	// RevenueSummary aggregates requests created within [from, to).
	RevenueSummary(ctx context.Context, from, to time.Time) (models.RevenueReport, error)
}
