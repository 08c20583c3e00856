package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mgiordano/clasificados/internal/monitoring"
	"github.com/mgiordano/clasificados/pkg/response"
)

// Health returns a simple status payload useful for liveness checks.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}

// Readiness evaluates dependency probes and reports 503 while any is down.
func Readiness(monitor *monitoring.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := monitor.Evaluate(c.Request.Context())
		status := http.StatusOK
		if !report.Healthy() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	}
}
