package sync

import (
	"sort"

	"github.com/rmitchellscott/marquee/internal/database"
)

// Download statuses derived from the required/cached diff.
const (
	CacheStatusNoContent   = "no_content"
	CacheStatusNotReported = "not_reported"
	CacheStatusCompleted   = "completed"
	CacheStatusInProgress  = "in_progress"
)

// CacheStatus is the diff between what a device must have and what it last
// reported having.
type CacheStatus struct {
	RequiredCount  int      `json:"required_count"`
	CachedCount    int      `json:"cached_count"`
	MissingIDs     []string `json:"missing_ids"`
	ExtraIDs       []string `json:"extra_ids"`
	Ready          bool     `json:"ready"`
	DownloadStatus string   `json:"download_status"`
}

// ComputeCacheStatus diffs requiredIDs against the device's reported cache
// set. Missing is always required minus cached; extra is cached ids the
// device no longer needs.
func ComputeCacheStatus(device *database.Device, requiredIDs []string) *CacheStatus {
	cached := database.CachedMediaSet(device)

	status := &CacheStatus{
		RequiredCount: len(requiredIDs),
		MissingIDs:    []string{},
		ExtraIDs:      []string{},
	}

	required := make(map[string]struct{}, len(requiredIDs))
	for _, id := range requiredIDs {
		required[id] = struct{}{}
		if _, ok := cached[id]; ok {
			status.CachedCount++
		} else {
			status.MissingIDs = append(status.MissingIDs, id)
		}
	}
	for id := range cached {
		if _, ok := required[id]; !ok {
			status.ExtraIDs = append(status.ExtraIDs, id)
		}
	}
	sort.Strings(status.MissingIDs)
	sort.Strings(status.ExtraIDs)

	status.Ready = len(status.MissingIDs) == 0
	switch {
	case len(requiredIDs) == 0:
		status.DownloadStatus = CacheStatusNoContent
	case device.MediaCacheUpdatedAt == nil:
		status.DownloadStatus = CacheStatusNotReported
	case status.Ready:
		status.DownloadStatus = CacheStatusCompleted
	default:
		status.DownloadStatus = CacheStatusInProgress
	}
	return status
}
