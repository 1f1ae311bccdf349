package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"soothe/models"
	"soothe/services/admin"
	"soothe/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler encapsulates elevated admin-level operations.
type AdminHandler struct {
	AdminSvc admin.AdminService
}

func NewAdminHandler(svc admin.AdminService) *AdminHandler {
	return &AdminHandler{AdminSvc: svc}
}

// parseTime accepts RFC 3339 timestamps or plain YYYY-MM-DD dates (UTC midnight).
func parseTime(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%s must be RFC 3339 or YYYY-MM-DD", key)
}

func parseInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

// ListBookingsHandler handles GET /api/admin/bookings.
func (ah *AdminHandler) ListBookingsHandler(c *gin.Context) {
	statuses, err := parseStatuses(c)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid status filter", err.Error())
		return
	}
	filter := models.BookingFilter{
		Statuses:    statuses,
		TherapistID: c.Query("therapistId"),
		CustomerID:  c.Query("customerId"),
	}
	if filter.From, err = parseTime(c, "from"); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid range", err.Error())
		return
	}
	if filter.To, err = parseTime(c, "to"); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid range", err.Error())
		return
	}
	if filter.Limit, err = parseInt(c, "limit"); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid paging", err.Error())
		return
	}
	if filter.Offset, err = parseInt(c, "offset"); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid paging", err.Error())
		return
	}

	reqs, err := ah.AdminSvc.ListBookings(c.Request.Context(), filter)
	if err != nil {
		zap.L().Error("Failed to list bookings", zap.Error(err))
		respondError(c, err)
		return
	}
	if reqs == nil {
		reqs = []models.BookingRequest{}
	}
	c.JSON(http.StatusOK, reqs)
}

// RevenueReportHandler handles GET /api/admin/reports/revenue.
func (ah *AdminHandler) RevenueReportHandler(c *gin.Context) {
	from, err := parseTime(c, "from")
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid range", err.Error())
		return
	}
	to, err := parseTime(c, "to")
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid range", err.Error())
		return
	}
	report, err := ah.AdminSvc.RevenueReport(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
