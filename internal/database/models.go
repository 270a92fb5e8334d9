package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Device statuses derived from last_seen staleness.
const (
	DeviceStatusOnline  = "online"
	DeviceStatusOffline = "offline"
)

// Device represents an unattended display unit in the fleet
type Device struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Location     string    `gorm:"size:255" json:"location,omitempty"`
	OwnerAccount *string   `gorm:"size:255;index" json:"owner_account,omitempty"` // Nullable until first authenticated request binds it
	Orientation  string    `gorm:"size:20;default:'portrait'" json:"orientation"`
	Status       string    `gorm:"size:20;default:'offline'" json:"status"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`

	// Device-reported media cache. A flat set of media ids, free-form: the
	// server never validates it against what the device actually stores.
	CachedMediaIDs      datatypes.JSON `gorm:"column:cached_media_ids" json:"cached_media_ids,omitempty"`
	MediaCacheUpdatedAt *time.Time     `json:"media_cache_updated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Screens []Screen `gorm:"foreignKey:DeviceID;constraint:OnDelete:CASCADE" json:"-"`
}

func (d *Device) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Screen represents one display surface owned by a device
type Screen struct {
	ID                    uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceID              uuid.UUID  `gorm:"type:uuid;not null;index" json:"device_id"`
	Name                  string     `gorm:"size:255;not null" json:"name"`
	ActivePlaylistID      *uuid.UUID `gorm:"type:uuid" json:"active_playlist_id,omitempty"` // Manually pinned "now showing" playlist
	GridPreset            string     `gorm:"size:16;default:'1x1'" json:"grid_preset"`
	TransitionDurationSec int        `gorm:"default:1" json:"transition_duration_sec"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`

	// Associations
	Device Device `gorm:"foreignKey:DeviceID" json:"-"`
}

func (s *Screen) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Playlist represents an ordered list of media assigned to a screen.
// IsFlashSale is a UI hint only; flash-sale runtime behavior is driven by
// FlashSaleConfig, never by this flag.
type Playlist struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ScreenID    uuid.UUID `gorm:"type:uuid;not null;index" json:"screen_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	IsFlashSale bool      `gorm:"default:false" json:"is_flash_sale"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Associations
	Items []PlaylistItem `gorm:"foreignKey:PlaylistID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (p *Playlist) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PlaylistItem represents one media entry within a playlist
type PlaylistItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PlaylistID  uuid.UUID `gorm:"type:uuid;not null;index" json:"playlist_id"`
	MediaID     uuid.UUID `gorm:"type:uuid;not null;index" json:"media_id"`
	OrderIndex  int       `gorm:"not null" json:"order_index"`
	DurationSec int       `gorm:"default:10" json:"duration_sec"`
	Enabled     bool      `gorm:"default:true" json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Associations
	Playlist Playlist `gorm:"foreignKey:PlaylistID" json:"-"`
	Media    Media    `gorm:"foreignKey:MediaID" json:"-"`
}

func (pi *PlaylistItem) BeforeCreate(tx *gorm.DB) error {
	if pi.ID == uuid.Nil {
		pi.ID = uuid.New()
	}
	return nil
}

// Schedule represents a recurring time slot during which a playlist should
// play on a screen. Slots within one screen+day must not overlap.
type Schedule struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ScreenID   uuid.UUID `gorm:"type:uuid;not null;index" json:"screen_id"`
	PlaylistID uuid.UUID `gorm:"type:uuid;not null;index" json:"playlist_id"`
	DayOfWeek  int       `gorm:"not null" json:"day_of_week"`          // 0=Monday .. 6=Sunday
	StartTime  string    `gorm:"size:8;not null" json:"start_time"`    // HH:MM:SS
	EndTime    string    `gorm:"size:8;not null" json:"end_time"`      // HH:MM:SS
	Note       *string   `gorm:"size:255" json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Associations
	Screen   Screen   `gorm:"foreignKey:ScreenID" json:"-"`
	Playlist Playlist `gorm:"foreignKey:PlaylistID" json:"-"`
}

func (s *Schedule) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Media represents one stored media file (image or video)
type Media struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Type        string    `gorm:"size:20;not null" json:"type"` // image, video
	Path        string    `gorm:"size:1000;not null" json:"path"`
	DurationSec int       `gorm:"default:10" json:"duration_sec"`
	SizeBytes   int64     `gorm:"not null" json:"size_bytes"`
	Checksum    string    `gorm:"size:64;not null" json:"checksum"` // SHA-256 hex
	CreatedAt   time.Time `json:"created_at"`
}

func (m *Media) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// FlashSaleConfig holds the one-per-device flash-sale campaign configuration.
// Draft configs must never be treated as live regardless of Enabled.
type FlashSaleConfig struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceID          uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"device_id"`
	Enabled           bool           `gorm:"default:true" json:"enabled"`
	IsDraft           bool           `gorm:"default:false" json:"is_draft"`
	Note              *string        `gorm:"size:255" json:"note,omitempty"`
	CountdownSec      *int           `json:"countdown_sec,omitempty"`
	ProductsJSON      datatypes.JSON `gorm:"column:products_json" json:"products_json,omitempty"`
	ScheduleDays      *string        `gorm:"size:32" json:"schedule_days,omitempty"`       // CSV of 0-6
	ScheduleStartTime *string        `gorm:"size:8" json:"schedule_start_time,omitempty"`  // HH:MM:SS
	ScheduleEndTime   *string        `gorm:"size:8" json:"schedule_end_time,omitempty"`    // HH:MM:SS
	WarmupMinutes     *int           `json:"warmup_minutes,omitempty"`                     // 1-240, preload lead time
	ActivatedAt       *time.Time     `json:"activated_at,omitempty"`
	UpdatedAt         time.Time      `json:"updated_at"`

	// Associations
	Device Device `gorm:"foreignKey:DeviceID" json:"-"`
}

func (f *FlashSaleConfig) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// DeviceSyncState is the one-per-device download queue state. Created lazily
// on first plan or progress call, updated in place afterwards.
type DeviceSyncState struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"device_id"`
	PlanRevision    string     `gorm:"size:64" json:"plan_revision,omitempty"`
	QueueStatus     string     `gorm:"size:32;not null;default:'idle'" json:"queue_status"`
	DownloadedBytes int64      `gorm:"not null;default:0" json:"downloaded_bytes"`
	TotalBytes      int64      `gorm:"not null;default:0" json:"total_bytes"`
	CompletedCount  int        `gorm:"not null;default:0" json:"completed_count"`
	FailedCount     int        `gorm:"not null;default:0" json:"failed_count"`
	EtaSec          *int       `json:"eta_sec,omitempty"`
	CurrentMediaID  *string    `gorm:"size:36" json:"current_media_id,omitempty"`
	LastError       *string    `gorm:"type:text" json:"last_error,omitempty"`
	LastReportAt    *time.Time `json:"last_report_at,omitempty"`
	AckSource       *string    `gorm:"size:64" json:"ack_source,omitempty"`
	AckReason       *string    `gorm:"type:text" json:"ack_reason,omitempty"`
	AckAt           *time.Time `json:"ack_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Associations
	Device Device `gorm:"foreignKey:DeviceID" json:"-"`
}

func (s *DeviceSyncState) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// DeviceSyncItem is one row per (device, plan revision, media). The whole set
// for a device is replaced when a new plan is persisted; individual rows are
// mutated by progress reports that reference the current revision.
type DeviceSyncItem struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceID     uuid.UUID `gorm:"type:uuid;not null;index:idx_sync_item_key,unique" json:"device_id"`
	PlanRevision string    `gorm:"size:64;not null;index:idx_sync_item_key,unique" json:"plan_revision"`
	MediaID      uuid.UUID `gorm:"type:uuid;not null;index:idx_sync_item_key,unique" json:"media_id"`
	Priority     string    `gorm:"size:16;not null;default:'P3'" json:"priority"`
	RequiredBy   string    `gorm:"size:64;not null;default:'background_required'" json:"required_by"`
	Status       string    `gorm:"size:32;not null;default:'queued'" json:"status"`
	RetryCount   int       `gorm:"not null;default:0" json:"retry_count"`
	Error        *string   `gorm:"type:text" json:"error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Associations
	Device Device `gorm:"foreignKey:DeviceID" json:"-"`
}

func (i *DeviceSyncItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// GetAllModels returns all models for auto-migration
func GetAllModels() []interface{} {
	return []interface{}{
		&Device{},
		&Screen{},
		&Playlist{},
		&PlaylistItem{},
		&Schedule{},
		&Media{},
		&FlashSaleConfig{},
		&DeviceSyncState{},
		&DeviceSyncItem{},
	}
}
