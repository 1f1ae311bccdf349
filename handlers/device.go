package handlers

import (
	"net/http"

	"soothe/services/notification"
	"soothe/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type deviceInput struct {
	Token string `json:"token" binding:"required"`
}

// DeviceHandler registers push notification targets.
type DeviceHandler struct {
	Tokens notification.DeviceTokenStore
}

func NewDeviceHandler(tokens notification.DeviceTokenStore) *DeviceHandler {
	return &DeviceHandler{Tokens: tokens}
}

// RegisterDevice handles PUT /api/devices. The caller's latest token replaces any earlier one.
func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var input deviceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid input", err.Error())
		return
	}
	if err := h.Tokens.Set(c.Request.Context(), p.ID, input.Token); err != nil {
		zap.L().Error("Failed to store device token", zap.String("user_id", p.ID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to register device", "")
		return
	}
	c.Status(http.StatusNoContent)
}
