package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventsHandler streams config and status change events. An optional
// device_id query narrows the subscription to one device.
func EventsHandler(c *gin.Context) {
	var deviceFilter *uuid.UUID
	if raw := c.Query("device_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid device_id"})
			return
		}
		deviceFilter = &id
	}

	client := hub.AddClient(deviceFilter, c.Writer)
	if client == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "streaming unavailable"})
		return
	}
	defer hub.RemoveClient(client.ID)

	select {
	case <-client.Done:
	case <-c.Request.Context().Done():
	}
}
