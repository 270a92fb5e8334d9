package sync

import (
	"strings"

	"github.com/google/uuid"

	"github.com/rmitchellscott/marquee/internal/config"
	"github.com/rmitchellscott/marquee/internal/database"
	"github.com/rmitchellscott/marquee/internal/utils"
)

const (
	defaultChunkLimit = 20
	maxChunkLimit     = 100
)

// DownloadItem is one plan entry expanded with absolute fetch URLs. URLs are
// ordered primary first, then the mirror when one is configured.
type DownloadItem struct {
	MediaID    uuid.UUID `json:"media_id"`
	Priority   string    `json:"priority"`
	RequiredBy string    `json:"required_by"`
	Action     string    `json:"action"`
	SizeBytes  int64     `json:"size_bytes"`
	Checksum   string    `json:"checksum"`
	MediaType  string    `json:"media_type"`
	URLs       []string  `json:"urls"`
}

// DownloadChunk is one cursor-limited page of a device's download plan.
type DownloadChunk struct {
	PlanRevision string         `json:"plan_revision"`
	Items        []DownloadItem `json:"items"`
	NextCursor   int            `json:"next_cursor"`
	HasMore      bool           `json:"has_more"`
	TotalItems   int            `json:"total_items"`
	Policy       DownloadPolicy `json:"policy"`
}

// GetDownloadChunk rebuilds and re-persists the device's plan, then serves a
// page of its download-only items (or all items when includeSkipped is set).
// Cursor clamps to >= 0; limit clamps into [1,100] with a default when
// unset.
func (s *Service) GetDownloadChunk(device *database.Device, cursor, limit int, includeSkipped bool) (*DownloadChunk, error) {
	if cursor < 0 {
		cursor = 0
	}
	if limit < 1 {
		limit = defaultChunkLimit
	}
	if limit > maxChunkLimit {
		limit = maxChunkLimit
	}

	plan, err := s.builder.BuildPlan(device, utils.Now())
	if err != nil {
		return nil, err
	}
	if _, err := s.PersistPlan(device.ID, plan); err != nil {
		return nil, err
	}

	var eligible []PlanItem
	for _, item := range plan.Items {
		if item.Action == ActionSkip && !includeSkipped {
			continue
		}
		eligible = append(eligible, item)
	}

	chunk := &DownloadChunk{
		PlanRevision: plan.Revision,
		Items:        []DownloadItem{},
		TotalItems:   len(eligible),
		Policy:       s.policy,
	}

	if cursor >= len(eligible) {
		chunk.NextCursor = len(eligible)
		return chunk, nil
	}
	end := cursor + limit
	if end > len(eligible) {
		end = len(eligible)
	}

	base := config.Get("MEDIA_BASE_URL", "http://localhost:8080/media")
	mirror := config.Get("MEDIA_MIRROR_URL", "")
	for _, item := range eligible[cursor:end] {
		chunk.Items = append(chunk.Items, DownloadItem{
			MediaID:    item.MediaID,
			Priority:   item.Priority,
			RequiredBy: item.RequiredBy,
			Action:     item.Action,
			SizeBytes:  item.SizeBytes,
			Checksum:   item.Checksum,
			MediaType:  item.MediaType,
			URLs:       expandURLs(item.Path, base, mirror),
		})
	}
	chunk.NextCursor = end
	chunk.HasMore = end < len(eligible)
	return chunk, nil
}

func expandURLs(path, base, mirror string) []string {
	urls := []string{joinURL(base, path)}
	if mirror != "" {
		urls = append(urls, joinURL(mirror, path))
	}
	return urls
}

func joinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
