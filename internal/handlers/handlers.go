package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmitchellscott/marquee/internal/auth"
	"github.com/rmitchellscott/marquee/internal/database"
	"github.com/rmitchellscott/marquee/internal/sse"
	"github.com/rmitchellscott/marquee/internal/storage"
	"github.com/rmitchellscott/marquee/internal/sync"
)

// Process-owned collaborators, injected once at startup. The sync service
// must be a singleton: its per-device locks serialize plan persistence
// against progress reports.
var (
	hub         *sse.Service
	syncService *sync.Service
	mediaFiles  *storage.MediaStorage
)

// Initialize wires the handler package to the process's hub and database.
func Initialize(sseHub *sse.Service) {
	hub = sseHub
	syncService = sync.NewService(database.GetDB())
	mediaFiles = storage.GetDefaultMediaStorage()
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// requireDevice loads the device and enforces account ownership. On failure
// it writes the response and returns nil.
func requireDevice(c *gin.Context) *database.Device {
	deviceID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}

	db := database.GetDB()
	deviceService := database.NewDeviceService(db)
	device, err := deviceService.GetDeviceByID(deviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load device"})
		}
		return nil
	}

	if err := auth.EnforceDeviceOwner(c, deviceService, device); err != nil {
		if errors.Is(err, auth.ErrOwnershipConflict) {
			c.JSON(http.StatusForbidden, gin.H{"error": "device belongs to a different account"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check device ownership"})
		}
		return nil
	}
	return device
}

// bindErrorMessage turns a request binding error into something a caller can
// act on. Validation failures name the offending field and rule.
func bindErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, ve := range verrs {
			switch ve.Tag() {
			case "required":
				return fmt.Sprintf("field %s is required", ve.Field())
			case "oneof":
				return fmt.Sprintf("field %s must be one of: %s", ve.Field(), ve.Param())
			case "min":
				return fmt.Sprintf("field %s must be at least %s", ve.Field(), ve.Param())
			case "max":
				return fmt.Sprintf("field %s must be at most %s", ve.Field(), ve.Param())
			default:
				return fmt.Sprintf("field %s failed %s validation", ve.Field(), ve.Tag())
			}
		}
	}
	return "invalid request body"
}

// respondSyncError maps sync-layer errors onto HTTP statuses. Guard
// rejections carry their diagnostic payload at 409.
func respondSyncError(c *gin.Context, err error) {
	var rejection *sync.GuardRejection
	switch {
	case errors.As(err, &rejection):
		c.JSON(http.StatusConflict, gin.H{
			"error":      "ack guard rejected",
			"diagnostic": rejection,
		})
	case errors.Is(err, sync.ErrRevisionRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
