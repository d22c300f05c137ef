package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GET /health
func (h *handlers) health(c *gin.Context) {
	body := gin.H{
		"status":    "OK",
		"timestamp": h.Clock.Now().Format(time.RFC3339),
		"service":   "eventhub",
	}
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			h.Logger.Warn("health check failed", "error", err)
			body["status"] = "DEGRADED"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}
