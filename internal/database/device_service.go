package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rmitchellscott/marquee/internal/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DeviceService handles device-related database operations
type DeviceService struct {
	db *gorm.DB
}

// NewDeviceService creates a new device service
func NewDeviceService(db *gorm.DB) *DeviceService {
	return &DeviceService{db: db}
}

// RegisterDevice creates a new device together with its default "Main"
// screen. The device starts online with last_seen set to now.
func (ds *DeviceService) RegisterDevice(name, location, orientation string, ownerAccount *string) (*Device, error) {
	if orientation == "" {
		orientation = "portrait"
	}
	now := utils.Now()

	device := &Device{
		Name:         name,
		Location:     location,
		OwnerAccount: ownerAccount,
		Orientation:  orientation,
		Status:       DeviceStatusOnline,
		LastSeen:     &now,
	}

	err := ds.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(device).Error; err != nil {
			return err
		}
		screen := &Screen{DeviceID: device.ID, Name: "Main"}
		return tx.Create(screen).Error
	})
	if err != nil {
		return nil, err
	}
	return device, nil
}

// GetDeviceByID returns a device by its ID
func (ds *DeviceService) GetDeviceByID(deviceID uuid.UUID) (*Device, error) {
	var device Device
	if err := ds.db.First(&device, "id = ?", deviceID).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

// ListDevices returns all devices visible to an account: unbound devices plus
// devices bound to that account. A nil account sees everything.
func (ds *DeviceService) ListDevices(account *string) ([]Device, error) {
	var devices []Device
	q := ds.db.Order("created_at DESC")
	if account != nil && *account != "" {
		q = q.Where("owner_account IS NULL OR owner_account = '' OR owner_account = ?", *account)
	}
	err := q.Find(&devices).Error
	return devices, err
}

// UpdateOrientation updates only the orientation for a device
func (ds *DeviceService) UpdateOrientation(deviceID uuid.UUID, orientation string) error {
	return ds.db.Model(&Device{}).Where("id = ?", deviceID).Update("orientation", orientation).Error
}

// BindOwner binds an unowned device to an account. No-op when the device is
// already bound; ownership conflicts are caught before reaching here.
func (ds *DeviceService) BindOwner(deviceID uuid.UUID, account string) error {
	return ds.db.Model(&Device{}).
		Where("id = ? AND (owner_account IS NULL OR owner_account = '')", deviceID).
		Update("owner_account", account).Error
}

// Heartbeat marks a device as seen just now
func (ds *DeviceService) Heartbeat(deviceID uuid.UUID) error {
	now := utils.Now()
	return ds.db.Model(&Device{}).Where("id = ?", deviceID).Updates(map[string]interface{}{
		"last_seen": &now,
		"status":    DeviceStatusOnline,
	}).Error
}

// ReportMediaCache stores the device-reported flat set of cached media ids.
// The set is free-form and never validated against actual device storage.
func (ds *DeviceService) ReportMediaCache(deviceID uuid.UUID, mediaIDs []string) error {
	if mediaIDs == nil {
		mediaIDs = []string{}
	}
	raw, err := json.Marshal(mediaIDs)
	if err != nil {
		return fmt.Errorf("encode cached media ids: %w", err)
	}
	now := utils.Now()
	return ds.db.Model(&Device{}).Where("id = ?", deviceID).Updates(map[string]interface{}{
		"cached_media_ids":       datatypes.JSON(raw),
		"media_cache_updated_at": &now,
	}).Error
}

// CachedMediaSet decodes the device-reported cache into a lookup set. A
// missing or malformed report yields an empty set rather than an error.
func CachedMediaSet(device *Device) map[string]struct{} {
	set := make(map[string]struct{})
	if device == nil || len(device.CachedMediaIDs) == 0 {
		return set
	}
	var ids []string
	if err := json.Unmarshal(device.CachedMediaIDs, &ids); err != nil {
		return set
	}
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// DeleteDevice removes a device and everything hanging off it: screens,
// playlists, playlist items, schedules, flash-sale config and sync rows.
func (ds *DeviceService) DeleteDevice(deviceID uuid.UUID) error {
	return ds.db.Transaction(func(tx *gorm.DB) error {
		var screenIDs []uuid.UUID
		if err := tx.Model(&Screen{}).Where("device_id = ?", deviceID).Pluck("id", &screenIDs).Error; err != nil {
			return err
		}

		if len(screenIDs) > 0 {
			var playlistIDs []uuid.UUID
			if err := tx.Model(&Playlist{}).Where("screen_id IN ?", screenIDs).Pluck("id", &playlistIDs).Error; err != nil {
				return err
			}
			if len(playlistIDs) > 0 {
				if err := tx.Where("playlist_id IN ?", playlistIDs).Delete(&Schedule{}).Error; err != nil {
					return err
				}
				if err := tx.Where("playlist_id IN ?", playlistIDs).Delete(&PlaylistItem{}).Error; err != nil {
					return err
				}
				if err := tx.Where("id IN ?", playlistIDs).Delete(&Playlist{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("screen_id IN ?", screenIDs).Delete(&Schedule{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", screenIDs).Delete(&Screen{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("device_id = ?", deviceID).Delete(&FlashSaleConfig{}).Error; err != nil {
			return err
		}
		if err := tx.Where("device_id = ?", deviceID).Delete(&DeviceSyncItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("device_id = ?", deviceID).Delete(&DeviceSyncState{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Device{}, "id = ?", deviceID).Error
	})
}

// MarkStaleDevicesOffline flips devices to offline when their last_seen is
// older than the threshold, returning the devices whose status changed.
func (ds *DeviceService) MarkStaleDevicesOffline(staleAfter time.Duration) ([]Device, error) {
	cutoff := utils.Now().Add(-staleAfter)

	var stale []Device
	err := ds.db.Where("status = ? AND (last_seen IS NULL OR last_seen < ?)", DeviceStatusOnline, cutoff).
		Find(&stale).Error
	if err != nil {
		return nil, err
	}
	if len(stale) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(stale))
	for _, d := range stale {
		ids = append(ids, d.ID)
	}
	if err := ds.db.Model(&Device{}).Where("id IN ?", ids).Update("status", DeviceStatusOffline).Error; err != nil {
		return nil, err
	}
	for i := range stale {
		stale[i].Status = DeviceStatusOffline
	}
	return stale, nil
}

// GetDeviceStats returns fleet-level device counts
func (ds *DeviceService) GetDeviceStats() (map[string]interface{}, error) {
	var total, online int64
	if err := ds.db.Model(&Device{}).Count(&total).Error; err != nil {
		return nil, err
	}
	if err := ds.db.Model(&Device{}).Where("status = ?", DeviceStatusOnline).Count(&online).Error; err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"total_devices":   total,
		"online_devices":  online,
		"offline_devices": total - online,
	}, nil
}
