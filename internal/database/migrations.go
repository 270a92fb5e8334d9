package database

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/rmitchellscott/marquee/internal/logging"
	"gorm.io/gorm"
)

// RunMigrations runs versioned migrations followed by an auto-migration pass
// that picks up column-level drift on the current models.
func RunMigrations() error {
	logging.InfoWithComponent(logging.ComponentDatabase, "Running database migrations")

	m := gormigrate.New(DB, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202506010000_initial_schema",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(GetAllModels()...)
			},
			Rollback: func(tx *gorm.DB) error {
				for _, model := range GetAllModels() {
					if err := tx.Migrator().DropTable(model); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			ID: "202507120000_add_is_draft_to_flash_sale",
			Migrate: func(tx *gorm.DB) error {
				if tx.Migrator().HasColumn(&FlashSaleConfig{}, "is_draft") {
					return nil
				}
				return tx.Migrator().AddColumn(&FlashSaleConfig{}, "IsDraft")
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropColumn(&FlashSaleConfig{}, "IsDraft")
			},
		},
		{
			ID: "202507200000_add_device_media_cache",
			Migrate: func(tx *gorm.DB) error {
				if !tx.Migrator().HasColumn(&Device{}, "cached_media_ids") {
					if err := tx.Migrator().AddColumn(&Device{}, "CachedMediaIDs"); err != nil {
						return err
					}
				}
				if !tx.Migrator().HasColumn(&Device{}, "media_cache_updated_at") {
					if err := tx.Migrator().AddColumn(&Device{}, "MediaCacheUpdatedAt"); err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				if err := tx.Migrator().DropColumn(&Device{}, "CachedMediaIDs"); err != nil {
					return err
				}
				return tx.Migrator().DropColumn(&Device{}, "MediaCacheUpdatedAt")
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("gormigrate: %w", err)
	}

	// Auto-migrate catches model changes not yet captured in a versioned step.
	for _, model := range GetAllModels() {
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("auto-migrate %T: %w", model, err)
		}
	}

	return nil
}
