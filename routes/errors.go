package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventhub/models"
)

var errorMessages = map[error]string{
	models.ErrEventNotFound:      "Event not found",
	models.ErrUserNotFound:       "User not found",
	models.ErrAlreadyRegistered:  "Already registered",
	models.ErrNotRegistered:      "Not registered",
	models.ErrSeatsExhausted:     "No seats available",
	models.ErrInvalidCredentials: "Invalid email or password",
	models.ErrEmailTaken:         "Email already registered",
}

// statusFor maps a domain error to its HTTP status and client message.
// Anything unrecognised is a 500 with an opaque message.
func statusFor(err error) (int, string) {
	msg := "Server error"
	for target, m := range errorMessages {
		if errors.Is(err, target) {
			msg = m
			break
		}
	}

	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, msg
	case errors.Is(err, models.ErrInvalidState):
		return http.StatusBadRequest, msg
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized, msg
	case errors.Is(err, models.ErrEmailTaken):
		return http.StatusConflict, msg
	case errors.Is(err, models.ErrInvalidEvent):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "Server error"
	}
}

func (h *handlers) fail(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"message": msg})
}
