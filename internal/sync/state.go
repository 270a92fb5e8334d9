package sync

import (
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmitchellscott/marquee/internal/database"
	"github.com/rmitchellscott/marquee/internal/flashsale"
	"github.com/rmitchellscott/marquee/internal/logging"
	"github.com/rmitchellscott/marquee/internal/utils"
)

// ErrRevisionRequired is returned by Ack when the caller omits the plan
// revision it is acknowledging.
var ErrRevisionRequired = errors.New("plan_revision is required")

// GuardRejection is the structured diagnostic returned when an ack fails its
// preconditions. The device's queue status is forced to failed; no other
// state advances.
type GuardRejection struct {
	DeviceID          uuid.UUID `json:"device_id"`
	RequestedRevision string    `json:"requested_revision"`
	CurrentRevision   string    `json:"current_revision"`
	Failures          int       `json:"failures"`
	CriticalFailures  int       `json:"critical_failures"`
	Blocking          int       `json:"blocking"`
	CriticalBlocking  int       `json:"critical_blocking"`
	CriticalCompleted int       `json:"critical_completed"`
	CriticalTotal     int       `json:"critical_total"`
	CacheMissing      int       `json:"cache_missing"`
}

func (g *GuardRejection) Error() string {
	if g.RequestedRevision != g.CurrentRevision {
		return fmt.Sprintf("ack guard rejected: revision %s is not the current plan %s",
			g.RequestedRevision, g.CurrentRevision)
	}
	return fmt.Sprintf("ack guard rejected: failures=%d critical_failures=%d blocking=%d critical_completed=%d/%d cache_missing=%d",
		g.Failures, g.CriticalFailures, g.Blocking, g.CriticalCompleted, g.CriticalTotal, g.CacheMissing)
}

// FailedItem is one failed download reported by a device.
type FailedItem struct {
	MediaID string `json:"media_id"`
	Error   string `json:"error"`
	Retried bool   `json:"retried"`
}

// ProgressReport is a partial device progress update. Nil scalar fields are
// left untouched; present ones win, last writer wins across reports.
type ProgressReport struct {
	PlanRevision    string       `json:"plan_revision"`
	QueueStatus     *string      `json:"queue_status,omitempty"`
	DownloadedBytes *int64       `json:"downloaded_bytes,omitempty"`
	CurrentMediaID  *string      `json:"current_media_id,omitempty"`
	EtaSec          *int         `json:"eta_sec,omitempty"`
	CompletedIDs    []string     `json:"completed_ids,omitempty"`
	FailedItems     []FailedItem `json:"failed_items,omitempty"`
}

// Service owns all durable sync state for the fleet. Mutation is serialized
// per device: plan persistence is a destructive full replace of the device's
// items and must never interleave with a progress report for the same
// device.
type Service struct {
	db       *gorm.DB
	builder  *Builder
	resolver *Resolver
	flash    *database.FlashSaleService
	policy   DownloadPolicy

	mu    gosync.Mutex
	locks map[uuid.UUID]*gosync.Mutex
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		db:       db,
		builder:  NewBuilder(db),
		resolver: NewResolver(db),
		flash:    database.NewFlashSaleService(db),
		policy:   LoadPolicy(),
		locks:    make(map[uuid.UUID]*gosync.Mutex),
	}
}

// Builder exposes the plan builder for pure plan computation.
func (s *Service) Builder() *Builder {
	return s.builder
}

func (s *Service) deviceLock(deviceID uuid.UUID) *gosync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[deviceID]
	if !ok {
		lock = &gosync.Mutex{}
		s.locks[deviceID] = lock
	}
	return lock
}

// PersistPlan makes the plan the device's current one: every existing item
// row for the device is replaced and the state row is reset to the plan's
// totals. Skipped items start terminal and count as completed.
func (s *Service) PersistPlan(deviceID uuid.UUID, plan *Plan) (*StateSummary, error) {
	lock := s.deviceLock(deviceID)
	lock.Lock()
	defer lock.Unlock()

	var state *database.DeviceSyncState
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device_id = ?", deviceID).Delete(&database.DeviceSyncItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear sync items: %w", err)
		}

		rows := make([]database.DeviceSyncItem, 0, len(plan.Items))
		for _, item := range plan.Items {
			status := ItemStatusQueued
			if item.Action == ActionSkip {
				status = ItemStatusSkipped
			}
			rows = append(rows, database.DeviceSyncItem{
				DeviceID:     deviceID,
				PlanRevision: plan.Revision,
				MediaID:      item.MediaID,
				Priority:     item.Priority,
				RequiredBy:   item.RequiredBy,
				Status:       status,
			})
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to insert sync items: %w", err)
			}
		}

		var err error
		state, err = loadOrCreateState(tx, deviceID)
		if err != nil {
			return err
		}
		state.PlanRevision = plan.Revision
		state.QueueStatus = plan.QueueStatus
		state.TotalBytes = plan.TotalBytes
		state.DownloadedBytes = plan.TotalBytes - plan.DownloadBytes
		state.CompletedCount = plan.SkipCount
		state.FailedCount = 0
		state.EtaSec = nil
		state.CurrentMediaID = nil
		state.LastError = nil
		state.AckSource = nil
		state.AckReason = nil
		state.AckAt = nil
		return tx.Save(state).Error
	})
	if err != nil {
		return nil, err
	}

	logging.InfoWithComponent(logging.ComponentSync, "persisted sync plan",
		"device_id", deviceID, "revision", plan.Revision,
		"downloads", plan.DownloadCount, "skips", plan.SkipCount,
		"download_bytes", plan.DownloadBytes)
	return summaryFromState(state), nil
}

// ReportProgress ingests a device progress report. Scalar fields are applied
// unconditionally last-writer-wins; item updates apply only when the report
// references the current plan revision, keyed by (device, revision, media)
// so duplicate or reordered delivery is harmless.
func (s *Service) ReportProgress(deviceID uuid.UUID, report *ProgressReport) (*StateSummary, error) {
	lock := s.deviceLock(deviceID)
	lock.Lock()
	defer lock.Unlock()

	var state *database.DeviceSyncState
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		state, err = loadOrCreateState(tx, deviceID)
		if err != nil {
			return err
		}

		now := utils.Now()
		state.LastReportAt = &now
		if report.DownloadedBytes != nil {
			state.DownloadedBytes = *report.DownloadedBytes
		}
		if report.CurrentMediaID != nil {
			state.CurrentMediaID = report.CurrentMediaID
		}
		if report.EtaSec != nil {
			state.EtaSec = report.EtaSec
		}

		if report.PlanRevision != "" && report.PlanRevision == state.PlanRevision {
			if err := s.applyItemUpdates(tx, deviceID, state.PlanRevision, report); err != nil {
				return err
			}
			if len(report.FailedItems) > 0 {
				last := report.FailedItems[len(report.FailedItems)-1].Error
				state.LastError = &last
			}
			if report.QueueStatus != nil {
				state.QueueStatus = *report.QueueStatus
			}

			totals, err := computeTotals(tx, deviceID, state.PlanRevision)
			if err != nil {
				return err
			}
			state.CompletedCount = totals.completed
			state.FailedCount = totals.failed
			switch {
			case totals.blocking == 0 && totals.failed == 0:
				state.QueueStatus = QueueStatusReady
			case totals.blocking == 0 && totals.critFailed == 0:
				state.QueueStatus = QueueStatusReadyWithWarnings
			case totals.failed > 0:
				state.QueueStatus = QueueStatusFailed
			}
			// Blocking items and no failures: the device-reported status
			// (downloading, verifying) stands.
		}

		return tx.Save(state).Error
	})
	if err != nil {
		return nil, err
	}
	return summaryFromState(state), nil
}

func (s *Service) applyItemUpdates(tx *gorm.DB, deviceID uuid.UUID, revision string, report *ProgressReport) error {
	for _, raw := range report.CompletedIDs {
		mediaID, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		err = tx.Model(&database.DeviceSyncItem{}).
			Where("device_id = ? AND plan_revision = ? AND media_id = ?", deviceID, revision, mediaID).
			Updates(map[string]interface{}{"status": ItemStatusCompleted, "error": nil}).Error
		if err != nil {
			return fmt.Errorf("failed to mark item completed: %w", err)
		}
	}
	for _, failed := range report.FailedItems {
		mediaID, err := uuid.Parse(failed.MediaID)
		if err != nil {
			continue
		}
		updates := map[string]interface{}{"status": ItemStatusFailed, "error": failed.Error}
		if failed.Retried {
			updates["retry_count"] = gorm.Expr("retry_count + 1")
		}
		err = tx.Model(&database.DeviceSyncItem{}).
			Where("device_id = ? AND plan_revision = ? AND media_id = ?", deviceID, revision, mediaID).
			Updates(updates).Error
		if err != nil {
			return fmt.Errorf("failed to mark item failed: %w", err)
		}
	}
	return nil
}

// Ack handles a device's completion claim. The full-ready path requires a
// clean critical lane, no blocking items, no failures anywhere, and a cache
// report with zero missing ids. Non-critical failures downgrade to
// ready_with_warnings. Anything else is rejected: status is forced to failed
// and the caller gets the diagnostic, with no further state advanced.
func (s *Service) Ack(deviceID uuid.UUID, planRevision, source, reason string) (*StateSummary, error) {
	if planRevision == "" {
		return nil, ErrRevisionRequired
	}

	lock := s.deviceLock(deviceID)
	lock.Lock()
	defer lock.Unlock()

	var device database.Device
	if err := s.db.First(&device, "id = ?", deviceID).Error; err != nil {
		return nil, fmt.Errorf("device not found: %w", err)
	}
	var state database.DeviceSyncState
	if err := s.db.First(&state, "device_id = ?", deviceID).Error; err != nil {
		return nil, fmt.Errorf("no sync state for device: %w", err)
	}

	totals, err := computeTotals(s.db, deviceID, state.PlanRevision)
	if err != nil {
		return nil, err
	}

	req, err := s.resolver.Resolve(&device, utils.Now())
	if err != nil {
		return nil, err
	}
	requiredIDs := make([]string, 0, len(req.All))
	for _, id := range req.All {
		requiredIDs = append(requiredIDs, id.String())
	}
	cache := ComputeCacheStatus(&device, requiredIDs)

	rejection := &GuardRejection{
		DeviceID:          deviceID,
		RequestedRevision: planRevision,
		CurrentRevision:   state.PlanRevision,
		Failures:          totals.failed,
		CriticalFailures:  totals.critFailed,
		Blocking:          totals.blocking,
		CriticalBlocking:  totals.critBlocking,
		CriticalCompleted: totals.critCompleted,
		CriticalTotal:     totals.critTotal,
		CacheMissing:      len(cache.MissingIDs),
	}

	revisionCurrent := planRevision == state.PlanRevision
	criticalClean := totals.critFailed == 0 && totals.critBlocking == 0 &&
		totals.critCompleted == totals.critTotal

	var accepted string
	switch {
	case revisionCurrent && totals.failed == 0 && totals.blocking == 0 &&
		criticalClean && len(cache.MissingIDs) == 0:
		accepted = QueueStatusReady
	case revisionCurrent && totals.blocking == 0 && criticalClean && totals.failed > 0:
		// Non-critical failures only; their media may legitimately still be
		// missing from the cache.
		accepted = QueueStatusReadyWithWarnings
	default:
		msg := rejection.Error()
		updates := map[string]interface{}{
			"queue_status": QueueStatusFailed,
			"last_error":   msg,
		}
		if err := s.db.Model(&state).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to record ack rejection: %w", err)
		}
		logging.WarnWithComponent(logging.ComponentSync, "ack rejected",
			"device_id", deviceID, "revision", planRevision, "diagnostic", msg)
		return nil, rejection
	}

	now := utils.Now()
	state.QueueStatus = accepted
	state.CompletedCount = totals.completed
	state.FailedCount = totals.failed
	state.AckAt = &now
	if source != "" {
		state.AckSource = &source
	}
	if reason != "" {
		state.AckReason = &reason
	}
	if accepted == QueueStatusReady {
		state.LastError = nil
	}
	if err := s.db.Save(&state).Error; err != nil {
		return nil, fmt.Errorf("failed to save ack: %w", err)
	}

	logging.InfoWithComponent(logging.ComponentSync, "ack accepted",
		"device_id", deviceID, "revision", planRevision, "status", accepted)
	return summaryFromState(&state), nil
}

// GetSyncStatus returns the device's current state summary. Devices that
// have never synced get an idle summary; no row is created.
func (s *Service) GetSyncStatus(deviceID uuid.UUID) (*StateSummary, error) {
	var state database.DeviceSyncState
	err := s.db.First(&state, "device_id = ?", deviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &StateSummary{DeviceID: deviceID, QueueStatus: QueueStatusIdle}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}
	return summaryFromState(&state), nil
}

// GetCacheStatus resolves the device's full requirement set and diffs it
// against the reported cache.
func (s *Service) GetCacheStatus(device *database.Device, now time.Time) (*CacheStatus, error) {
	req, err := s.resolver.Resolve(device, now)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(req.All))
	for _, id := range req.All {
		ids = append(ids, id.String())
	}
	return ComputeCacheStatus(device, ids), nil
}

// GuardedFlashSaleRuntime resolves the device's campaign and gates display
// on cache completeness and the sync queue's health.
func (s *Service) GuardedFlashSaleRuntime(device *database.Device, now time.Time) (*flashsale.GuardedRuntime, error) {
	cfg, err := s.flash.GetByDeviceID(device.ID)
	if err != nil {
		return nil, err
	}
	info := flashsale.Resolve(cfg, now)

	syncFailed := false
	var state database.DeviceSyncState
	err = s.db.First(&state, "device_id = ?", device.ID).Error
	if err == nil {
		syncFailed = state.QueueStatus == QueueStatusFailed
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}

	return flashsale.Guard(info, database.CachedMediaSet(device), syncFailed), nil
}

type laneTotals struct {
	total, completed, failed, blocking   int
	critTotal, critCompleted, critFailed int
	critBlocking                         int
}

func computeTotals(tx *gorm.DB, deviceID uuid.UUID, revision string) (laneTotals, error) {
	var items []database.DeviceSyncItem
	err := tx.Where("device_id = ? AND plan_revision = ?", deviceID, revision).Find(&items).Error
	if err != nil {
		return laneTotals{}, fmt.Errorf("failed to load sync items: %w", err)
	}

	var t laneTotals
	for _, item := range items {
		critical := isCriticalPriority(item.Priority)
		t.total++
		if critical {
			t.critTotal++
		}
		switch {
		case item.Status == ItemStatusCompleted || item.Status == ItemStatusSkipped:
			t.completed++
			if critical {
				t.critCompleted++
			}
		case item.Status == ItemStatusFailed:
			t.failed++
			if critical {
				t.critFailed++
			}
		case isBlockingStatus(item.Status):
			t.blocking++
			if critical {
				t.critBlocking++
			}
		}
	}
	return t, nil
}

func loadOrCreateState(tx *gorm.DB, deviceID uuid.UUID) (*database.DeviceSyncState, error) {
	var state database.DeviceSyncState
	err := tx.First(&state, "device_id = ?", deviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		state = database.DeviceSyncState{DeviceID: deviceID, QueueStatus: QueueStatusIdle}
		if err := tx.Create(&state).Error; err != nil {
			return nil, fmt.Errorf("failed to create sync state: %w", err)
		}
		return &state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}
	return &state, nil
}

func summaryFromState(state *database.DeviceSyncState) *StateSummary {
	return &StateSummary{
		DeviceID:        state.DeviceID,
		PlanRevision:    state.PlanRevision,
		QueueStatus:     state.QueueStatus,
		DownloadedBytes: state.DownloadedBytes,
		TotalBytes:      state.TotalBytes,
		CompletedCount:  state.CompletedCount,
		FailedCount:     state.FailedCount,
		EtaSec:          state.EtaSec,
		CurrentMediaID:  state.CurrentMediaID,
		LastError:       state.LastError,
		LastReportAt:    state.LastReportAt,
		AckSource:       state.AckSource,
		AckReason:       state.AckReason,
		AckAt:           state.AckAt,
	}
}
