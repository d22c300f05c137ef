package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventhub/middlewares"
	"eventhub/models"
)

type transition func(ctx context.Context, eventID, userID string) (models.Event, error)

func (h *handlers) applyTransition(c *gin.Context, apply transition, message string) {
	eventID := c.Param("id")
	userID := c.GetString(middlewares.ContextUserID)

	event, err := apply(c.Request.Context(), eventID, userID)
	if err != nil {
		h.fail(c, err)
		return
	}

	// seat counts changed: drop the cached copies
	if h.Inv != nil {
		h.Inv.PurgeEvent(c.Request.Context(), eventID)
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "event": event})
}

// POST /events/:id/register
func (h *handlers) registerForEvent(c *gin.Context) {
	h.applyTransition(c, h.Ledger.Register, "Registered")
}

// POST /events/:id/cancel
func (h *handlers) cancelRegistration(c *gin.Context) {
	h.applyTransition(c, h.Ledger.Cancel, "Cancelled")
}
