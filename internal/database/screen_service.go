package database

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScreenService handles screen-related database operations
type ScreenService struct {
	db *gorm.DB
}

// NewScreenService creates a new screen service
func NewScreenService(db *gorm.DB) *ScreenService {
	return &ScreenService{db: db}
}

// CreateScreen creates a new screen for a device
func (ss *ScreenService) CreateScreen(deviceID uuid.UUID, name, gridPreset string) (*Screen, error) {
	if gridPreset == "" {
		gridPreset = "1x1"
	}
	screen := &Screen{
		DeviceID:   deviceID,
		Name:       name,
		GridPreset: gridPreset,
	}
	if err := ss.db.Create(screen).Error; err != nil {
		return nil, err
	}
	return screen, nil
}

// GetScreenByID returns a screen by its ID
func (ss *ScreenService) GetScreenByID(screenID uuid.UUID) (*Screen, error) {
	var screen Screen
	if err := ss.db.First(&screen, "id = ?", screenID).Error; err != nil {
		return nil, err
	}
	return &screen, nil
}

// GetScreensByDeviceID returns all screens owned by a device
func (ss *ScreenService) GetScreensByDeviceID(deviceID uuid.UUID) ([]Screen, error) {
	var screens []Screen
	err := ss.db.Where("device_id = ?", deviceID).Order("created_at ASC").Find(&screens).Error
	return screens, err
}

// UpdateScreen updates screen fields. A nil activePlaylistID leaves the pin
// untouched; pass a pointer to uuid.Nil to clear it.
func (ss *ScreenService) UpdateScreen(screenID uuid.UUID, name, gridPreset *string, activePlaylistID *uuid.UUID) (*Screen, error) {
	updates := map[string]interface{}{}
	if name != nil {
		updates["name"] = *name
	}
	if gridPreset != nil {
		updates["grid_preset"] = *gridPreset
	}
	if activePlaylistID != nil {
		if *activePlaylistID == uuid.Nil {
			updates["active_playlist_id"] = nil
		} else {
			updates["active_playlist_id"] = *activePlaylistID
		}
	}
	if len(updates) > 0 {
		if err := ss.db.Model(&Screen{}).Where("id = ?", screenID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return ss.GetScreenByID(screenID)
}

// DeleteScreen removes a screen and its playlists and schedules
func (ss *ScreenService) DeleteScreen(screenID uuid.UUID) error {
	return ss.db.Transaction(func(tx *gorm.DB) error {
		var playlistIDs []uuid.UUID
		if err := tx.Model(&Playlist{}).Where("screen_id = ?", screenID).Pluck("id", &playlistIDs).Error; err != nil {
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
		if err := tx.Where("screen_id = ?", screenID).Delete(&Schedule{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Screen{}, "id = ?", screenID).Error
	})
}
