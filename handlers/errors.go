package handlers

import (
	"errors"
	"net/http"

	bookingRepo "soothe/database/repository/booking"
	"soothe/middleware"
	"soothe/models"
	"soothe/services/admin"
	"soothe/services/booking"
	"soothe/services/pricing"
	"soothe/utils"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pricing.ErrInvalidDuration):
		utils.JSONError(c, http.StatusBadRequest, "Invalid duration", err.Error())
	case errors.Is(err, pricing.ErrUnknownService):
		utils.JSONError(c, http.StatusBadRequest, "Unknown service", err.Error())
	case errors.Is(err, booking.ErrInvalidRequest), errors.Is(err, admin.ErrInvalidRange):
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, bookingRepo.ErrNotFound):
		utils.JSONError(c, http.StatusNotFound, "Booking request not found", "")
	case errors.Is(err, booking.ErrForbidden):
		utils.JSONError(c, http.StatusForbidden, "Not allowed", err.Error())
	default:
		utils.JSONError(c, http.StatusInternalServerError, "Internal Server Error", err.Error())
	}
}

// principal returns the authenticated caller, answering 401 when there is none.
func principal(c *gin.Context) (models.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Unauthorized", "no authenticated principal")
	}
	return p, ok
}

type transitionResponse struct {
	BookingID string               `json:"bookingId"`
	Status    models.BookingStatus `json:"status"`
	Applied   bool                 `json:"applied"`
	Stale     bool                 `json:"stale"`
}

func writeTransition(c *gin.Context, id string, res models.TransitionResult) {
	c.JSON(http.StatusOK, transitionResponse{
		BookingID: id,
		Status:    res.Status,
		Applied:   res.Applied,
		Stale:     res.Stale,
	})
}
