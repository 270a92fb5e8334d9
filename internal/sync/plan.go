package sync

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmitchellscott/marquee/internal/database"
	"github.com/rmitchellscott/marquee/internal/logging"
	"github.com/rmitchellscott/marquee/internal/utils"
)

// Builder turns a device's requirement set into a deterministic, ordered
// download plan.
type Builder struct {
	resolver *Resolver
	media    *database.MediaService
}

func NewBuilder(db *gorm.DB) *Builder {
	return &Builder{
		resolver: NewResolver(db),
		media:    database.NewMediaService(db),
	}
}

// NewRevision returns an opaque plan revision token. Tokens are zero-padded
// nanosecond timestamps so successive revisions for one device sort
// lexicographically in build order.
func NewRevision(now time.Time) string {
	return fmt.Sprintf("%020d", now.UnixNano())
}

type classification struct {
	priority   string
	requiredBy string
}

// BuildPlan computes the current plan for a device without persisting it.
// Classification runs highest lane first; once an id holds a lane it is
// never downgraded by a later rule.
func (b *Builder) BuildPlan(device *database.Device, now time.Time) (*Plan, error) {
	req, err := b.resolver.Resolve(device, now)
	if err != nil {
		return nil, err
	}

	lanes := make(map[uuid.UUID]classification, len(req.All))
	assign := func(ids []uuid.UUID, priority, reason string) {
		for _, id := range ids {
			if _, ok := lanes[id]; ok {
				continue
			}
			lanes[id] = classification{priority: priority, requiredBy: reason}
		}
	}
	assign(req.FlashSale, PriorityP0, ReasonFlashSaleActive)
	assign(req.ActivePlaylist, PriorityP1, ReasonPlaylistActive)
	assign(req.ScheduleUpcoming, PriorityP2, ReasonScheduleUpcoming)
	assign(req.All, PriorityP3, ReasonBackgroundRequired)

	rows, err := b.media.GetMediaByIDs(req.All)
	if err != nil {
		return nil, fmt.Errorf("failed to load media: %w", err)
	}
	mediaByID := make(map[uuid.UUID]*database.Media, len(rows))
	for i := range rows {
		mediaByID[rows[i].ID] = &rows[i]
	}

	cached := database.CachedMediaSet(device)

	plan := &Plan{
		DeviceID:    device.ID,
		Revision:    NewRevision(now),
		GeneratedAt: now,
	}
	for id, lane := range lanes {
		media, ok := mediaByID[id]
		if !ok {
			// Dangling reference, nothing downloadable to plan for it.
			logging.DebugWithComponent(logging.ComponentSync, "required media id has no media row",
				"device_id", device.ID, "media_id", id)
			continue
		}
		item := PlanItem{
			MediaID:    id,
			Priority:   lane.priority,
			RequiredBy: lane.requiredBy,
			Action:     ActionDownload,
			SizeBytes:  media.SizeBytes,
			Path:       media.Path,
			Checksum:   media.Checksum,
			MediaType:  media.Type,
		}
		if _, ok := cached[id.String()]; ok {
			item.Action = ActionSkip
		}
		plan.Items = append(plan.Items, item)
	}

	sort.Slice(plan.Items, func(i, j int) bool {
		ri, rj := priorityRank(plan.Items[i].Priority), priorityRank(plan.Items[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return plan.Items[i].MediaID.String() < plan.Items[j].MediaID.String()
	})

	for _, item := range plan.Items {
		plan.TotalCount++
		plan.TotalBytes += item.SizeBytes
		if item.Action == ActionDownload {
			plan.DownloadCount++
			plan.DownloadBytes += item.SizeBytes
		} else {
			plan.SkipCount++
		}
	}
	if plan.DownloadCount > 0 {
		plan.QueueStatus = QueueStatusQueued
	} else {
		plan.QueueStatus = QueueStatusReady
	}
	return plan, nil
}

// BuildPlanNow is BuildPlan anchored at the configured display clock.
func (b *Builder) BuildPlanNow(device *database.Device) (*Plan, error) {
	return b.BuildPlan(device, utils.Now())
}
