package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmitchellscott/marquee/internal/database"
)

// CreateScreenHandler adds a screen to a device.
func CreateScreenHandler(c *gin.Context) {
	device := requireDevice(c)
	if device == nil {
		return
	}

	var req struct {
		Name       string `json:"name" binding:"required"`
		GridPreset string `json:"grid_preset"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	db := database.GetDB()
	screen, err := database.NewScreenService(db).CreateScreen(device.ID, req.Name, req.GridPreset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create screen"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"screen": screen})
}

// UpdateScreenHandler changes screen fields. active_playlist_id set to the
// nil uuid clears the pin.
func UpdateScreenHandler(c *gin.Context) {
	screenID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Name             *string    `json:"name"`
		GridPreset       *string    `json:"grid_preset"`
		ActivePlaylistID *uuid.UUID `json:"active_playlist_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	db := database.GetDB()
	screen, err := database.NewScreenService(db).UpdateScreen(screenID, req.Name, req.GridPreset, req.ActivePlaylistID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "screen not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update screen"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"screen": screen})
}

// DeleteScreenHandler removes a screen and its playlists and schedules.
func DeleteScreenHandler(c *gin.Context) {
	screenID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := database.GetDB()
	if err := database.NewScreenService(db).DeleteScreen(screenID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete screen"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// CreatePlaylistHandler creates a playlist on a screen.
func CreatePlaylistHandler(c *gin.Context) {
	var req struct {
		ScreenID    uuid.UUID `json:"screen_id" binding:"required"`
		Name        string    `json:"name" binding:"required"`
		IsFlashSale bool      `json:"is_flash_sale"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	db := database.GetDB()
	playlist, err := database.NewPlaylistService(db).CreatePlaylist(req.ScreenID, req.Name, req.IsFlashSale)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create playlist"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"playlist": playlist})
}

// GetPlaylistHandler returns a playlist with items in play order.
func GetPlaylistHandler(c *gin.Context) {
	playlistID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := database.GetDB()
	playlist, err := database.NewPlaylistService(db).GetPlaylistByID(playlistID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "playlist not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch playlist"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlist": playlist})
}

// ReplacePlaylistItemsHandler swaps a playlist's full item list.
func ReplacePlaylistItemsHandler(c *gin.Context) {
	playlistID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Items []struct {
			MediaID     uuid.UUID `json:"media_id" binding:"required"`
			DurationSec int       `json:"duration_sec"`
			Enabled     *bool     `json:"enabled"`
		} `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	items := make([]database.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		enabled := true
		if item.Enabled != nil {
			enabled = *item.Enabled
		}
		items = append(items, database.ItemInput{
			MediaID:     item.MediaID,
			DurationSec: item.DurationSec,
			Enabled:     enabled,
		})
	}

	db := database.GetDB()
	if err := database.NewPlaylistService(db).ReplaceItems(playlistID, items); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to replace items"})
		return
	}

	playlist, err := database.NewPlaylistService(db).GetPlaylistByID(playlistID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch playlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlist": playlist})
}

// DeletePlaylistHandler removes a playlist, its items and schedules, and
// clears any screen pin pointing at it.
func DeletePlaylistHandler(c *gin.Context) {
	playlistID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := database.GetDB()
	if err := database.NewPlaylistService(db).DeletePlaylist(playlistID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete playlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// CreateScheduleHandler adds a recurring slot. Overlapping slots within one
// screen and day are rejected with 409.
func CreateScheduleHandler(c *gin.Context) {
	var req struct {
		ScreenID   uuid.UUID `json:"screen_id" binding:"required"`
		PlaylistID uuid.UUID `json:"playlist_id" binding:"required"`
		DayOfWeek  *int      `json:"day_of_week" binding:"required"`
		StartTime  string    `json:"start_time" binding:"required"`
		EndTime    string    `json:"end_time" binding:"required"`
		Note       *string   `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	db := database.GetDB()
	schedule, err := database.NewScheduleService(db).CreateSchedule(
		req.ScreenID, req.PlaylistID, *req.DayOfWeek, req.StartTime, req.EndTime, req.Note)
	if err != nil {
		if errors.Is(err, database.ErrScheduleOverlap) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"schedule": schedule})
}

// ListSchedulesHandler returns the schedules of one screen.
func ListSchedulesHandler(c *gin.Context) {
	screenID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := database.GetDB()
	schedules, err := database.NewScheduleService(db).GetSchedulesByScreenID(screenID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch schedules"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules})
}

// DeleteScheduleHandler removes one schedule slot.
func DeleteScheduleHandler(c *gin.Context) {
	scheduleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := database.GetDB()
	if err := database.NewScheduleService(db).DeleteSchedule(scheduleID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete schedule"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
