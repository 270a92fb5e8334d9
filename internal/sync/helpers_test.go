package sync

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rmitchellscott/marquee/internal/database"
)

// fixture wires one device with one screen against a fresh in-memory
// database.
type fixture struct {
	db      *gorm.DB
	svc     *Service
	devices *database.DeviceService
	device  *database.Device
	screen  *database.Screen
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := database.NewTestDB(t)

	device := &database.Device{Name: "lobby-display", Status: database.DeviceStatusOnline}
	if err := db.Create(device).Error; err != nil {
		t.Fatalf("create device: %v", err)
	}
	screen := &database.Screen{DeviceID: device.ID, Name: "Main"}
	if err := db.Create(screen).Error; err != nil {
		t.Fatalf("create screen: %v", err)
	}

	return &fixture{
		db:      db,
		svc:     NewService(db),
		devices: database.NewDeviceService(db),
		device:  device,
		screen:  screen,
	}
}

func (f *fixture) addMedia(t *testing.T, name string, sizeBytes int64) *database.Media {
	t.Helper()
	media := &database.Media{
		Name:      name,
		Type:      "image",
		Path:      "media/" + name + ".jpg",
		SizeBytes: sizeBytes,
		Checksum:  fmt.Sprintf("%064x", sizeBytes),
	}
	if err := f.db.Create(media).Error; err != nil {
		t.Fatalf("create media: %v", err)
	}
	return media
}

// addPlaylist attaches a playlist with one enabled item per media id to the
// given screen.
func (f *fixture) addPlaylist(t *testing.T, screenID uuid.UUID, name string, mediaIDs ...uuid.UUID) *database.Playlist {
	t.Helper()
	playlist := &database.Playlist{ScreenID: screenID, Name: name}
	if err := f.db.Create(playlist).Error; err != nil {
		t.Fatalf("create playlist: %v", err)
	}
	for i, id := range mediaIDs {
		item := &database.PlaylistItem{
			PlaylistID: playlist.ID,
			MediaID:    id,
			OrderIndex: i,
			Enabled:    true,
		}
		if err := f.db.Create(item).Error; err != nil {
			t.Fatalf("create playlist item: %v", err)
		}
	}
	return playlist
}

func (f *fixture) pinPlaylist(t *testing.T, playlistID uuid.UUID) {
	t.Helper()
	err := f.db.Model(&database.Screen{}).Where("id = ?", f.screen.ID).
		Update("active_playlist_id", playlistID).Error
	if err != nil {
		t.Fatalf("pin playlist: %v", err)
	}
}

func (f *fixture) addSchedule(t *testing.T, playlistID uuid.UUID, day int, start, end string) {
	t.Helper()
	schedule := &database.Schedule{
		ScreenID:   f.screen.ID,
		PlaylistID: playlistID,
		DayOfWeek:  day,
		StartTime:  start,
		EndTime:    end,
	}
	if err := f.db.Create(schedule).Error; err != nil {
		t.Fatalf("create schedule: %v", err)
	}
}

// addFlashSale stores an always-on enabled campaign whose products reference
// the given media ids.
func (f *fixture) addFlashSale(t *testing.T, mediaIDs ...uuid.UUID) *database.FlashSaleConfig {
	t.Helper()
	products := make([]map[string]string, 0, len(mediaIDs))
	for i, id := range mediaIDs {
		products = append(products, map[string]string{
			"name":     fmt.Sprintf("Product %d", i+1),
			"media_id": id.String(),
		})
	}
	raw, err := json.Marshal(products)
	if err != nil {
		t.Fatalf("marshal products: %v", err)
	}
	now := time.Now()
	cfg := &database.FlashSaleConfig{
		DeviceID:     f.device.ID,
		Enabled:      true,
		ProductsJSON: datatypes.JSON(raw),
		ActivatedAt:  &now,
	}
	if err := f.db.Create(cfg).Error; err != nil {
		t.Fatalf("create flash sale config: %v", err)
	}
	return cfg
}

func (f *fixture) reportCache(t *testing.T, mediaIDs ...uuid.UUID) {
	t.Helper()
	ids := make([]string, 0, len(mediaIDs))
	for _, id := range mediaIDs {
		ids = append(ids, id.String())
	}
	if err := f.devices.ReportMediaCache(f.device.ID, ids); err != nil {
		t.Fatalf("report media cache: %v", err)
	}
	f.reloadDevice(t)
}

func (f *fixture) reloadDevice(t *testing.T) {
	t.Helper()
	var device database.Device
	if err := f.db.First(&device, "id = ?", f.device.ID).Error; err != nil {
		t.Fatalf("reload device: %v", err)
	}
	f.device = &device
}

func (f *fixture) buildPlan(t *testing.T, now time.Time) *Plan {
	t.Helper()
	plan, err := f.svc.Builder().BuildPlan(f.device, now)
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	return plan
}
