package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"washroom-tracker-client/internal/notification"
)

// PostPush accepts a push payload from a local relay and hands it to the bridge.
// The origin is read from the "origin" query parameter.
func (h *Handler) PostPush(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil || len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	origin := notification.ParseOrigin(c.Query("origin"))
	ev, err := h.push.Publish(c.Request.Context(), origin, raw)
	switch {
	case errors.Is(err, notification.ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid push payload"})
	case errors.Is(err, notification.ErrDuplicate):
		c.JSON(http.StatusOK, gin.H{"status": "duplicate", "kind": ev.Kind, "stall_id": ev.StallID})
	case err != nil:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push handling unavailable"})
	default:
		c.JSON(http.StatusAccepted, gin.H{"status": "queued", "kind": ev.Kind, "stall_id": ev.StallID})
	}
}

// GetPushToken returns the token this device registers for push delivery.
func (h *Handler) GetPushToken(c *gin.Context) {
	if h.tokens == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push registration is not configured"})
		return
	}
	token, err := h.tokens.Token(c.Request.Context())
	if errors.Is(err, notification.ErrNoPushToken) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no push token"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read push token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
