package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"soothe/models"
	"soothe/utils"

	"github.com/gin-gonic/gin"
)

// parseStatuses accepts ?status=a,b as well as repeated status parameters.
func parseStatuses(c *gin.Context) ([]models.BookingStatus, error) {
	var out []models.BookingStatus
	for _, raw := range c.QueryArray("status") {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			s := models.BookingStatus(part)
			if !s.Valid() {
				return nil, fmt.Errorf("unknown status %q", part)
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// ListTherapistRequests handles GET /api/therapist/requests?status=.
func (h *BookingHandler) ListTherapistRequests(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	statuses, err := parseStatuses(c)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid status filter", err.Error())
		return
	}
	reqs, err := h.BookingSvc.ListForTherapist(c.Request.Context(), p.ID, statuses)
	if err != nil {
		respondError(c, err)
		return
	}
	if reqs == nil {
		reqs = []models.BookingRequest{}
	}
	c.JSON(http.StatusOK, reqs)
}

// AcceptRequest handles POST /api/therapist/requests/:id/accept.
func (h *BookingHandler) AcceptRequest(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id := c.Param("id")
	res, err := h.BookingSvc.Accept(c.Request.Context(), p.ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	writeTransition(c, id, res)
}

// DeclineRequest handles POST /api/therapist/requests/:id/decline.
func (h *BookingHandler) DeclineRequest(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id := c.Param("id")
	res, err := h.BookingSvc.Decline(c.Request.Context(), p.ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	writeTransition(c, id, res)
}
