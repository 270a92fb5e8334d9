package database

import (
	"errors"

	"github.com/google/uuid"
	"github.com/rmitchellscott/marquee/internal/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FlashSaleService handles flash-sale config persistence
type FlashSaleService struct {
	db *gorm.DB
}

// NewFlashSaleService creates a new flash-sale service
func NewFlashSaleService(db *gorm.DB) *FlashSaleService {
	return &FlashSaleService{db: db}
}

// GetByDeviceID returns the device's flash-sale config, or nil when none exists
func (fss *FlashSaleService) GetByDeviceID(deviceID uuid.UUID) (*FlashSaleConfig, error) {
	var cfg FlashSaleConfig
	err := fss.db.First(&cfg, "device_id = ?", deviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (fss *FlashSaleService) findOrCreate(tx *gorm.DB, deviceID uuid.UUID) (*FlashSaleConfig, error) {
	var cfg FlashSaleConfig
	err := tx.First(&cfg, "device_id = ?", deviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg = FlashSaleConfig{DeviceID: deviceID, Enabled: true}
		if err := tx.Create(&cfg).Error; err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigUpdate carries validated fields for an upsert. ProductsJSON is the
// normalized product array; schedule fields are nil for "now" mode.
type ConfigUpdate struct {
	Note          *string
	CountdownSec  *int
	ProductsJSON  []byte
	ScheduleDays  *string
	StartTime     *string
	EndTime       *string
	WarmupMinutes *int
	IsDraft       bool
}

// Upsert activates a campaign config with the given fields. "Now" mode clears
// schedule columns; schedule mode sets them. ActivatedAt is re-anchored on
// every upsert.
func (fss *FlashSaleService) Upsert(deviceID uuid.UUID, update ConfigUpdate) (*FlashSaleConfig, error) {
	var out *FlashSaleConfig
	err := fss.db.Transaction(func(tx *gorm.DB) error {
		cfg, err := fss.findOrCreate(tx, deviceID)
		if err != nil {
			return err
		}
		now := utils.Now()
		cfg.Enabled = true
		cfg.IsDraft = update.IsDraft
		cfg.Note = update.Note
		cfg.CountdownSec = update.CountdownSec
		cfg.ProductsJSON = datatypes.JSON(update.ProductsJSON)
		cfg.ScheduleDays = update.ScheduleDays
		cfg.ScheduleStartTime = update.StartTime
		cfg.ScheduleEndTime = update.EndTime
		cfg.WarmupMinutes = update.WarmupMinutes
		cfg.ActivatedAt = &now
		cfg.UpdatedAt = now
		out = cfg
		return tx.Save(cfg).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Disable turns a campaign off without discarding its configuration
func (fss *FlashSaleService) Disable(deviceID uuid.UUID) error {
	result := fss.db.Model(&FlashSaleConfig{}).Where("device_id = ?", deviceID).
		Updates(map[string]interface{}{
			"enabled":    false,
			"updated_at": utils.Now(),
		})
	return result.Error
}
