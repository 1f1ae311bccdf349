package booking

import "errors"

var (
	// ErrInvalidRequest marks customer input that fails validation.
	ErrInvalidRequest = errors.New("invalid booking request")
	// ErrForbidden is returned when the caller does not own the booking.
	ErrForbidden = errors.New("not allowed to act on this booking")
)
