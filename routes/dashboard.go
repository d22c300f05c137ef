package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventhub/middlewares"
)

// GET /dashboard/registered
func (h *handlers) dashboardRegistered(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.Users.GetByID(ctx, c.GetString(middlewares.ContextUserID))
	if err != nil {
		h.fail(c, err)
		return
	}

	events, err := h.Events.GetMany(ctx, user.RegisteredEvents)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// GET /dashboard/upcoming
//
// Lists every event after now, not only the caller's.
func (h *handlers) dashboardUpcoming(c *gin.Context) {
	events, err := h.Events.Upcoming(c.Request.Context(), h.Clock.Now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// GET /dashboard/past
func (h *handlers) dashboardPast(c *gin.Context) {
	events, err := h.Events.Past(c.Request.Context(), h.Clock.Now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
