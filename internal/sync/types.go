package sync

import (
	"time"

	"github.com/google/uuid"
)

// Priority lanes, ordered P0 < P1 < P2 < P3. Lower rank wins ties and is
// never downgraded once assigned.
const (
	PriorityP0 = "P0"
	PriorityP1 = "P1"
	PriorityP2 = "P2"
	PriorityP3 = "P3"
)

// Reason tags recorded on each plan item.
const (
	ReasonFlashSaleActive    = "flash_sale_active"
	ReasonPlaylistActive     = "playlist_active"
	ReasonScheduleUpcoming   = "schedule_upcoming"
	ReasonBackgroundRequired = "background_required"
)

// Item actions. Skip means the device already reported the media cached.
const (
	ActionDownload = "download"
	ActionSkip     = "skip"
)

// Queue statuses for the per-device sync state.
const (
	QueueStatusIdle              = "idle"
	QueueStatusQueued            = "queued"
	QueueStatusReady             = "ready"
	QueueStatusDownloading       = "downloading"
	QueueStatusVerifying         = "verifying"
	QueueStatusReadyWithWarnings = "ready_with_warnings"
	QueueStatusFailed            = "failed"
)

// Per-item statuses. Queued, downloading and verifying are blocking states;
// skipped is terminal and counted as completed.
const (
	ItemStatusQueued      = "queued"
	ItemStatusDownloading = "downloading"
	ItemStatusVerifying   = "verifying"
	ItemStatusCompleted   = "completed"
	ItemStatusSkipped     = "skipped"
	ItemStatusFailed      = "failed"
)

func priorityRank(priority string) int {
	switch priority {
	case PriorityP0:
		return 0
	case PriorityP1:
		return 1
	case PriorityP2:
		return 2
	default:
		return 3
	}
}

func isCriticalPriority(priority string) bool {
	return priorityRank(priority) <= 1
}

func isBlockingStatus(status string) bool {
	switch status {
	case ItemStatusQueued, ItemStatusDownloading, ItemStatusVerifying:
		return true
	}
	return false
}

// PlanItem is one media entry in a computed download plan.
type PlanItem struct {
	MediaID    uuid.UUID `json:"media_id"`
	Priority   string    `json:"priority"`
	RequiredBy string    `json:"required_by"`
	Action     string    `json:"action"`
	SizeBytes  int64     `json:"size_bytes"`
	Path       string    `json:"path"`
	Checksum   string    `json:"checksum"`
	MediaType  string    `json:"media_type"`
}

// Plan is one deterministic, ordered download plan for a device. Building a
// plan has no side effects; PersistPlan makes it the device's current plan.
type Plan struct {
	DeviceID      uuid.UUID  `json:"device_id"`
	Revision      string     `json:"revision"`
	GeneratedAt   time.Time  `json:"generated_at"`
	Items         []PlanItem `json:"items"`
	TotalCount    int        `json:"total_count"`
	TotalBytes    int64      `json:"total_bytes"`
	DownloadCount int        `json:"download_count"`
	DownloadBytes int64      `json:"download_bytes"`
	SkipCount     int        `json:"skip_count"`
	QueueStatus   string     `json:"queue_status"`
}

// StateSummary is the externally visible view of a device's sync state.
type StateSummary struct {
	DeviceID        uuid.UUID  `json:"device_id"`
	PlanRevision    string     `json:"plan_revision,omitempty"`
	QueueStatus     string     `json:"queue_status"`
	DownloadedBytes int64      `json:"downloaded_bytes"`
	TotalBytes      int64      `json:"total_bytes"`
	CompletedCount  int        `json:"completed_count"`
	FailedCount     int        `json:"failed_count"`
	EtaSec          *int       `json:"eta_sec,omitempty"`
	CurrentMediaID  *string    `json:"current_media_id,omitempty"`
	LastError       *string    `json:"last_error,omitempty"`
	LastReportAt    *time.Time `json:"last_report_at,omitempty"`
	AckSource       *string    `json:"ack_source,omitempty"`
	AckReason       *string    `json:"ack_reason,omitempty"`
	AckAt           *time.Time `json:"ack_at,omitempty"`
}
