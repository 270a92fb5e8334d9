package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rmitchellscott/marquee/internal/sync"
	"github.com/rmitchellscott/marquee/internal/utils"
)

// BuildPlanHandler computes the device's current plan without persisting it.
func BuildPlanHandler(c *gin.Context) {
	device := requireDevice(c)
	if device == nil {
		return
	}

	plan, err := syncService.Builder().BuildPlan(device, utils.Now())
	if err != nil {
		respondSyncError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

// PersistPlanHandler builds the plan and makes it the device's current one.
func PersistPlanHandler(c *gin.Context) {
	device := requireDevice(c)
	if device == nil {
		return
	}

	plan, err := syncService.Builder().BuildPlan(device, utils.Now())
	if err != nil {
		respondSyncError(c, err)
		return
	}
	summary, err := syncService.PersistPlan(device.ID, plan)
	if err != nil {
		respondSyncError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan, "state": summary})
}

// DownloadChunkHandler serves one page of the device's download queue. Each
// call rebuilds and re-persists the plan, then slices it.
func DownloadChunkHandler(c *gin.Context) {
	device := requireDevice(c)
	if device == nil {
		return
	}

	cursor, _ := strconv.Atoi(c.DefaultQuery("cursor", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	includeSkipped := c.DefaultQuery("include_skipped", "false") == "true"

	chunk, err := syncService.GetDownloadChunk(device, cursor, limit, includeSkipped)
	if err != nil {
		respondSyncError(c, err)
		return
	}
	c.JSON(http.StatusOK, chunk)
}

// ReportProgressHandler ingests a partial device progress report.
func ReportProgressHandler(c *gin.Context) {
	device := requireDevice(c)
	if device == nil {
		return
	}

	var report sync.ProgressReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	summary, err := syncService.ReportProgress(device.ID, &report)
	if err != nil {
		respondSyncError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": summary})
}

// SyncStatusHandler returns the device's current queue state.
func SyncStatusHandler(c *gin.Context) {
	device := requireDevice(c)
	if device == nil {
		return
	}

	summary, err := syncService.GetSyncStatus(device.ID)
	if err != nil {
		respondSyncError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": summary})
}

// AckHandler handles a device's completion claim. Guard rejections come back
// as 409 with the diagnostic payload.
func AckHandler(c *gin.Context) {
	device := requireDevice(c)
	if device == nil {
		return
	}

	var req struct {
		PlanRevision string `json:"plan_revision"`
		Source       string `json:"source"`
		Reason       string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	summary, err := syncService.Ack(device.ID, req.PlanRevision, req.Source, req.Reason)
	if err != nil {
		respondSyncError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": summary})
}

// CacheStatusHandler diffs the device's requirements against its reported
// cache.
func CacheStatusHandler(c *gin.Context) {
	device := requireDevice(c)
	if device == nil {
		return
	}

	status, err := syncService.GetCacheStatus(device, utils.Now())
	if err != nil {
		respondSyncError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
