package database

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MediaService handles media-record database operations
type MediaService struct {
	db *gorm.DB
}

// NewMediaService creates a new media service
func NewMediaService(db *gorm.DB) *MediaService {
	return &MediaService{db: db}
}

// CreateMedia records an uploaded media file
func (ms *MediaService) CreateMedia(name, mediaType, path string, sizeBytes int64, checksum string, durationSec int) (*Media, error) {
	if durationSec <= 0 {
		durationSec = 10
	}
	media := &Media{
		Name:        name,
		Type:        mediaType,
		Path:        path,
		SizeBytes:   sizeBytes,
		Checksum:    checksum,
		DurationSec: durationSec,
	}
	if err := ms.db.Create(media).Error; err != nil {
		return nil, err
	}
	return media, nil
}

// GetMediaByID returns a media record by its ID
func (ms *MediaService) GetMediaByID(mediaID uuid.UUID) (*Media, error) {
	var media Media
	if err := ms.db.First(&media, "id = ?", mediaID).Error; err != nil {
		return nil, err
	}
	return &media, nil
}

// GetMediaByIDs returns the media rows matching the given ids
func (ms *MediaService) GetMediaByIDs(mediaIDs []uuid.UUID) ([]Media, error) {
	if len(mediaIDs) == 0 {
		return nil, nil
	}
	var media []Media
	err := ms.db.Where("id IN ?", mediaIDs).Find(&media).Error
	return media, err
}

// ListMedia returns all media records, newest first
func (ms *MediaService) ListMedia() ([]Media, error) {
	var media []Media
	err := ms.db.Order("created_at DESC").Find(&media).Error
	return media, err
}

// MissingMediaIDs returns the subset of ids with no matching media row.
// Used to validate flash-sale product references on write.
func (ms *MediaService) MissingMediaIDs(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []string
	if err := ms.db.Model(&Media{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	foundSet := make(map[string]struct{}, len(found))
	for _, id := range found {
		foundSet[id] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := foundSet[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// DeleteMedia removes a media record and any playlist items referencing it
func (ms *MediaService) DeleteMedia(mediaID uuid.UUID) error {
	return ms.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("media_id = ?", mediaID).Delete(&PlaylistItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Media{}, "id = ?", mediaID).Error
	})
}
