package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rmitchellscott/marquee/internal/auth"
	"github.com/rmitchellscott/marquee/internal/database"
)

// RegisterDeviceHandler creates a device with its default screen. The
// calling account, when present, becomes the owner.
func RegisterDeviceHandler(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Location    string `json:"location"`
		Orientation string `json:"orientation"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	db := database.GetDB()
	deviceService := database.NewDeviceService(db)

	device, err := deviceService.RegisterDevice(req.Name, req.Location, req.Orientation, auth.Account(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register device"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"device": device})
}

// ListDevicesHandler returns devices visible to the calling account.
func ListDevicesHandler(c *gin.Context) {
	db := database.GetDB()
	deviceService := database.NewDeviceService(db)

	devices, err := deviceService.ListDevices(auth.Account(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch devices"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

// GetDeviceHandler returns one device with its screens.
func GetDeviceHandler(c *gin.Context) {
	device := requireDevice(c)
	if device == nil {
		return
	}

	db := database.GetDB()
	screens, err := database.NewScreenService(db).GetScreensByDeviceID(device.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch screens"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"device": device, "screens": screens})
}

// DeviceConfigHandler returns the full config document a display needs to
// run: the device, its screens, their schedules, every playlist those
// screens or schedules reference, and the media rows behind the playlist
// items.
func DeviceConfigHandler(c *gin.Context) {
	device := requireDevice(c)
	if device == nil {
		return
	}

	db := database.GetDB()
	screens, err := database.NewScreenService(db).GetScreensByDeviceID(device.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch screens"})
		return
	}

	screenIDs := make([]uuid.UUID, 0, len(screens))
	for _, screen := range screens {
		screenIDs = append(screenIDs, screen.ID)
	}

	schedules, err := database.NewScheduleService(db).GetSchedulesByScreenIDs(screenIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch schedules"})
		return
	}

	playlistService := database.NewPlaylistService(db)
	playlists, err := playlistService.GetPlaylistsByScreenIDs(screenIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch playlists"})
		return
	}

	// Schedules and pins can reference playlists owned by other devices.
	seen := make(map[uuid.UUID]struct{}, len(playlists))
	for _, playlist := range playlists {
		seen[playlist.ID] = struct{}{}
	}
	var extraIDs []uuid.UUID
	for _, schedule := range schedules {
		if _, ok := seen[schedule.PlaylistID]; !ok {
			seen[schedule.PlaylistID] = struct{}{}
			extraIDs = append(extraIDs, schedule.PlaylistID)
		}
	}
	for _, screen := range screens {
		if screen.ActivePlaylistID != nil {
			if _, ok := seen[*screen.ActivePlaylistID]; !ok {
				seen[*screen.ActivePlaylistID] = struct{}{}
				extraIDs = append(extraIDs, *screen.ActivePlaylistID)
			}
		}
	}
	if len(extraIDs) > 0 {
		extra, err := playlistService.GetPlaylistsByIDs(extraIDs)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch playlists"})
			return
		}
		playlists = append(playlists, extra...)
	}

	mediaSeen := make(map[uuid.UUID]struct{})
	var mediaIDs []uuid.UUID
	for _, playlist := range playlists {
		for _, item := range playlist.Items {
			if _, ok := mediaSeen[item.MediaID]; !ok {
				mediaSeen[item.MediaID] = struct{}{}
				mediaIDs = append(mediaIDs, item.MediaID)
			}
		}
	}
	media, err := database.NewMediaService(db).GetMediaByIDs(mediaIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch media"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"device":    device,
		"screens":   screens,
		"schedules": schedules,
		"playlists": playlists,
		"media":     media,
	})
}

// UpdateDeviceHandler changes mutable device fields.
func UpdateDeviceHandler(c *gin.Context) {
	device := requireDevice(c)
	if device == nil {
		return
	}

	var req struct {
		Orientation string `json:"orientation" binding:"required,oneof=portrait landscape"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	db := database.GetDB()
	if err := database.NewDeviceService(db).UpdateOrientation(device.ID, req.Orientation); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update device"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// HeartbeatHandler stamps lastSeen and flips the device online.
func HeartbeatHandler(c *gin.Context) {
	device := requireDevice(c)
	if device == nil {
		return
	}

	db := database.GetDB()
	if err := database.NewDeviceService(db).Heartbeat(device.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record heartbeat"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReportCacheHandler stores the device-reported cached media id set. The
// list is free-form; it is never validated against the media table.
func ReportCacheHandler(c *gin.Context) {
	device := requireDevice(c)
	if device == nil {
		return
	}

	var req struct {
		MediaIDs []string `json:"media_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	db := database.GetDB()
	if err := database.NewDeviceService(db).ReportMediaCache(device.ID, req.MediaIDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store cache report"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "count": len(req.MediaIDs)})
}

// DeleteDeviceHandler removes a device and everything hanging off it.
func DeleteDeviceHandler(c *gin.Context) {
	device := requireDevice(c)
	if device == nil {
		return
	}

	db := database.GetDB()
	if err := database.NewDeviceService(db).DeleteDevice(device.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete device"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// DeviceStatsHandler returns fleet-wide device counters.
func DeviceStatsHandler(c *gin.Context) {
	db := database.GetDB()
	stats, err := database.NewDeviceService(db).GetDeviceStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
