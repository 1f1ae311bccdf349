package booking

import (
	"time"

	"soothe/models"
)

// RemainingSeconds is the whole seconds left in req's acceptance window,
// rounded up while time remains, and 0 once the deadline has passed or the
// request is no longer pending.
func RemainingSeconds(req models.BookingRequest, now time.Time) int {
	if req.Status != models.StatusPending {
		return 0
	}
	left := req.AcceptanceDeadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}
