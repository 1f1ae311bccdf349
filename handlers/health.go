package handlers

import (
	"net/http"

	"soothe/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles GET /health from the monitor's last snapshot.
func HealthHandler(monitor *utils.HealthMonitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		if monitor == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		status := monitor.Status()
		code := http.StatusOK
		state := "ok"
		if !status.Healthy && !status.CheckedAt.IsZero() {
			code = http.StatusServiceUnavailable
			state = "degraded"
		}
		c.JSON(code, gin.H{"status": state, "checks": status.Checks, "checkedAt": status.CheckedAt})
	}
}
