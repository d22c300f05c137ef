package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"eventhub/models"
)

// parseDate accepts RFC 3339 or a bare YYYY-MM-DD (midnight UTC).
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

func filterFromQuery(c *gin.Context) (models.EventFilter, error) {
	f := models.EventFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Location: strings.TrimSpace(c.Query("location")),
		Category: strings.TrimSpace(c.Query("category")),
		Tags:     models.ParseTags(c.Query("tags")),
	}
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			return models.EventFilter{}, err
		}
		f.Date = &d
	}
	return f, nil
}

// GET /events
func (h *handlers) getEvents(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid date. Use YYYY-MM-DD or RFC 3339."})
		return
	}

	events, err := h.Events.Search(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// GET /events/:id
func (h *handlers) getEvent(c *gin.Context) {
	event, err := h.Events.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// POST /events
func (h *handlers) createEvent(c *gin.Context) {
	var in models.Event
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not parse request data."})
		return
	}
	in.ID = ""

	event, err := models.NewEvent(in)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Events.Create(c.Request.Context(), &event); err != nil {
		h.fail(c, err)
		return
	}

	if h.Inv != nil {
		h.Inv.PurgeEventsList(c.Request.Context())
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Event created", "event": event})
}
