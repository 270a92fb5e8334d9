package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rmitchellscott/marquee/internal/database"
	"github.com/rmitchellscott/marquee/internal/flashsale"
	"github.com/rmitchellscott/marquee/internal/utils"
)

// GetFlashSaleHandler returns the stored config plus its resolved runtime
// and guarded display state.
func GetFlashSaleHandler(c *gin.Context) {
	device := requireDevice(c)
	if device == nil {
		return
	}

	db := database.GetDB()
	cfg, err := database.NewFlashSaleService(db).GetByDeviceID(device.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load flash sale config"})
		return
	}

	guarded, err := syncService.GuardedFlashSaleRuntime(device, utils.Now())
	if err != nil {
		respondSyncError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": cfg, "guarded_runtime": guarded})
}

// FlashSaleRuntimeHandler returns only the guarded runtime. Devices poll it
// to decide whether the sale layout may show.
func FlashSaleRuntimeHandler(c *gin.Context) {
	device := requireDevice(c)
	if device == nil {
		return
	}

	guarded, err := syncService.GuardedFlashSaleRuntime(device, utils.Now())
	if err != nil {
		respondSyncError(c, err)
		return
	}
	c.JSON(http.StatusOK, guarded)
}

// UpsertFlashSaleHandler writes a campaign config. Validation here is
// strict, unlike the lenient read path: malformed products, unknown media
// ids, bad clock strings and out-of-range days or warmup all reject with the
// offending field.
func UpsertFlashSaleHandler(c *gin.Context) {
	device := requireDevice(c)
	if device == nil {
		return
	}

	var req struct {
		Note          *string         `json:"note"`
		CountdownSec  *int            `json:"countdown_sec"`
		Products      json.RawMessage `json:"products" binding:"required"`
		ScheduleDays  *string         `json:"schedule_days"`
		StartTime     *string         `json:"start_time"`
		EndTime       *string         `json:"end_time"`
		WarmupMinutes *int            `json:"warmup_minutes"`
		IsDraft       bool            `json:"is_draft"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	products, err := flashsale.ParseProducts(req.Products)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "products"})
		return
	}

	db := database.GetDB()
	missing, err := database.NewMediaService(db).MissingMediaIDs(flashsale.ProductMediaIDs(products))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate product media"})
		return
	}
	if len(missing) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("unknown media ids: %s", strings.Join(missing, ", ")),
			"field": "products",
		})
		return
	}

	update := database.ConfigUpdate{
		Note:         req.Note,
		CountdownSec: req.CountdownSec,
		IsDraft:      req.IsDraft,
	}
	update.ProductsJSON, err = flashsale.EncodeProducts(products)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode products"})
		return
	}

	if req.CountdownSec != nil && *req.CountdownSec < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "countdown_sec must be positive", "field": "countdown_sec"})
		return
	}

	scheduled := req.ScheduleDays != nil || req.StartTime != nil || req.EndTime != nil
	if scheduled {
		if req.ScheduleDays == nil || req.StartTime == nil || req.EndTime == nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "schedule_days, start_time and end_time must be set together",
				"field": "schedule_days",
			})
			return
		}
		if _, err := flashsale.ParseScheduleDays(*req.ScheduleDays); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "schedule_days"})
			return
		}
		_, start, err := utils.ParseClock(*req.StartTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "start_time"})
			return
		}
		_, end, err := utils.ParseClock(*req.EndTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "end_time"})
			return
		}
		update.ScheduleDays = req.ScheduleDays
		update.StartTime = &start
		update.EndTime = &end
	}

	if req.WarmupMinutes != nil {
		if *req.WarmupMinutes < flashsale.MinWarmupMinutes || *req.WarmupMinutes > flashsale.MaxWarmupMinutes {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("warmup_minutes must be between %d and %d",
					flashsale.MinWarmupMinutes, flashsale.MaxWarmupMinutes),
				"field": "warmup_minutes",
			})
			return
		}
		update.WarmupMinutes = req.WarmupMinutes
	}

	cfg, err := database.NewFlashSaleService(db).Upsert(device.ID, update)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save flash sale config"})
		return
	}

	if hub != nil {
		hub.Publish("flash_sale_updated", &device.ID, gin.H{"device_id": device.ID, "is_draft": cfg.IsDraft})
	}
	c.JSON(http.StatusOK, gin.H{"config": cfg})
}

// DisableFlashSaleHandler turns the campaign off, keeping its config.
func DisableFlashSaleHandler(c *gin.Context) {
	device := requireDevice(c)
	if device == nil {
		return
	}

	db := database.GetDB()
	if err := database.NewFlashSaleService(db).Disable(device.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to disable flash sale"})
		return
	}

	if hub != nil {
		hub.Publish("flash_sale_updated", &device.ID, gin.H{"device_id": device.ID, "enabled": false})
	}
	c.JSON(http.StatusOK, gin.H{"status": "disabled"})
}
