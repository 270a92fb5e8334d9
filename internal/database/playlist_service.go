package database

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlaylistService handles playlist-related database operations
type PlaylistService struct {
	db *gorm.DB
}

// NewPlaylistService creates a new playlist service
func NewPlaylistService(db *gorm.DB) *PlaylistService {
	return &PlaylistService{db: db}
}

// CreatePlaylist creates a new playlist on a screen
func (pls *PlaylistService) CreatePlaylist(screenID uuid.UUID, name string, isFlashSale bool) (*Playlist, error) {
	playlist := &Playlist{
		ScreenID:    screenID,
		Name:        name,
		IsFlashSale: isFlashSale,
	}
	if err := pls.db.Create(playlist).Error; err != nil {
		return nil, err
	}
	return playlist, nil
}

// GetPlaylistByID returns a playlist with its items in play order
func (pls *PlaylistService) GetPlaylistByID(playlistID uuid.UUID) (*Playlist, error) {
	var playlist Playlist
	err := pls.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_index ASC")
	}).First(&playlist, "id = ?", playlistID).Error
	if err != nil {
		return nil, err
	}
	return &playlist, nil
}

// GetPlaylistsByScreenIDs returns all playlists belonging to any of the given
// screens, items preloaded in play order
func (pls *PlaylistService) GetPlaylistsByScreenIDs(screenIDs []uuid.UUID) ([]Playlist, error) {
	if len(screenIDs) == 0 {
		return nil, nil
	}
	var playlists []Playlist
	err := pls.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_index ASC")
	}).Where("screen_id IN ?", screenIDs).Find(&playlists).Error
	return playlists, err
}

// GetPlaylistsByIDs returns the playlists with the given ids, items preloaded.
// Used for the second resolution pass over shared/central playlists.
func (pls *PlaylistService) GetPlaylistsByIDs(playlistIDs []uuid.UUID) ([]Playlist, error) {
	if len(playlistIDs) == 0 {
		return nil, nil
	}
	var playlists []Playlist
	err := pls.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_index ASC")
	}).Where("id IN ?", playlistIDs).Find(&playlists).Error
	return playlists, err
}

// ItemInput describes one playlist entry for ReplaceItems
type ItemInput struct {
	MediaID     uuid.UUID
	DurationSec int
	Enabled     bool
}

// ReplaceItems swaps the full item list of a playlist in one transaction
func (pls *PlaylistService) ReplaceItems(playlistID uuid.UUID, items []ItemInput) error {
	return pls.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", playlistID).Delete(&PlaylistItem{}).Error; err != nil {
			return err
		}
		for i, item := range items {
			duration := item.DurationSec
			if duration <= 0 {
				duration = 10
			}
			row := &PlaylistItem{
				PlaylistID:  playlistID,
				MediaID:     item.MediaID,
				OrderIndex:  i,
				DurationSec: duration,
				Enabled:     item.Enabled,
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdatePlaylist updates mutable playlist fields
func (pls *PlaylistService) UpdatePlaylist(playlistID uuid.UUID, name *string, isFlashSale *bool) (*Playlist, error) {
	updates := map[string]interface{}{}
	if name != nil {
		updates["name"] = *name
	}
	if isFlashSale != nil {
		updates["is_flash_sale"] = *isFlashSale
	}
	if len(updates) > 0 {
		if err := pls.db.Model(&Playlist{}).Where("id = ?", playlistID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return pls.GetPlaylistByID(playlistID)
}

// DeletePlaylist removes a playlist, its items, schedules referencing it, and
// clears any screen pin pointing at it
func (pls *PlaylistService) DeletePlaylist(playlistID uuid.UUID) error {
	return pls.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", playlistID).Delete(&Schedule{}).Error; err != nil {
			return err
		}
		if err := tx.Where("playlist_id = ?", playlistID).Delete(&PlaylistItem{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&Screen{}).Where("active_playlist_id = ?", playlistID).
			Update("active_playlist_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&Playlist{}, "id = ?", playlistID).Error
	})
}
