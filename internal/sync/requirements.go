package sync

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmitchellscott/marquee/internal/config"
	"github.com/rmitchellscott/marquee/internal/database"
	"github.com/rmitchellscott/marquee/internal/flashsale"
	"github.com/rmitchellscott/marquee/internal/logging"
	"github.com/rmitchellscott/marquee/internal/utils"
)

const defaultPreloadWindowMinutes = 120

// Requirements is the full media requirement set for one device at one
// instant, split by the rule that produced each id. One id may appear in
// several slices; priority classification happens in the plan builder.
type Requirements struct {
	FlashSale        []uuid.UUID
	ActivePlaylist   []uuid.UUID
	ScheduleUpcoming []uuid.UUID
	All              []uuid.UUID
	Runtime          *flashsale.RuntimeInfo
}

// Resolver computes which media a device must eventually have cached.
type Resolver struct {
	screens       *database.ScreenService
	playlists     *database.PlaylistService
	schedules     *database.ScheduleService
	flash         *database.FlashSaleService
	preloadWindow time.Duration
}

func NewResolver(db *gorm.DB) *Resolver {
	minutes := config.GetInt("SYNC_PRELOAD_WINDOW_MINUTES", defaultPreloadWindowMinutes)
	if minutes < 1 {
		minutes = defaultPreloadWindowMinutes
	}
	return &Resolver{
		screens:       database.NewScreenService(db),
		playlists:     database.NewPlaylistService(db),
		schedules:     database.NewScheduleService(db),
		flash:         database.NewFlashSaleService(db),
		preloadWindow: time.Duration(minutes) * time.Minute,
	}
}

// Resolve gathers every media id the device needs. Playlists pinned by a
// screen or referenced by a schedule may live outside the device's own
// screens, so any reference not covered by the first lookup is fetched in a
// second pass and unioned in.
func (r *Resolver) Resolve(device *database.Device, now time.Time) (*Requirements, error) {
	screens, err := r.screens.GetScreensByDeviceID(device.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load screens: %w", err)
	}

	screenIDs := make([]uuid.UUID, 0, len(screens))
	for _, s := range screens {
		screenIDs = append(screenIDs, s.ID)
	}

	owned, err := r.playlists.GetPlaylistsByScreenIDs(screenIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlists: %w", err)
	}

	schedules, err := r.schedules.GetSchedulesByScreenIDs(screenIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}

	byID := make(map[uuid.UUID]*database.Playlist, len(owned))
	for i := range owned {
		byID[owned[i].ID] = &owned[i]
	}

	// Second pass: shared/central playlists referenced by pins or schedules
	// but not owned by any of the device's screens.
	var missingRefs []uuid.UUID
	seenRef := make(map[uuid.UUID]struct{})
	addRef := func(id uuid.UUID) {
		if _, ok := byID[id]; ok {
			return
		}
		if _, ok := seenRef[id]; ok {
			return
		}
		seenRef[id] = struct{}{}
		missingRefs = append(missingRefs, id)
	}
	for _, s := range screens {
		if s.ActivePlaylistID != nil && *s.ActivePlaylistID != uuid.Nil {
			addRef(*s.ActivePlaylistID)
		}
	}
	for _, sch := range schedules {
		addRef(sch.PlaylistID)
	}
	if len(missingRefs) > 0 {
		shared, err := r.playlists.GetPlaylistsByIDs(missingRefs)
		if err != nil {
			return nil, fmt.Errorf("failed to load referenced playlists: %w", err)
		}
		for i := range shared {
			byID[shared[i].ID] = &shared[i]
		}
	}

	req := &Requirements{}
	all := make(map[uuid.UUID]struct{})
	collect := func(dst *[]uuid.UUID, playlistID uuid.UUID) {
		pl, ok := byID[playlistID]
		if !ok {
			return
		}
		for _, item := range pl.Items {
			if !item.Enabled {
				continue
			}
			if dst != nil {
				*dst = appendUnique(*dst, item.MediaID)
			}
			all[item.MediaID] = struct{}{}
		}
	}

	for _, s := range screens {
		if s.ActivePlaylistID != nil && *s.ActivePlaylistID != uuid.Nil {
			collect(&req.ActivePlaylist, *s.ActivePlaylistID)
		}
	}
	for _, sch := range schedules {
		if r.startsWithinWindow(&sch, now) {
			collect(&req.ScheduleUpcoming, sch.PlaylistID)
		} else {
			collect(nil, sch.PlaylistID)
		}
	}
	for id := range byID {
		collect(nil, id)
	}

	cfg, err := r.flash.GetByDeviceID(device.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load flash sale config: %w", err)
	}
	req.Runtime = flashsale.Resolve(cfg, now)
	if req.Runtime != nil && req.Runtime.Enabled && req.Runtime.Active {
		for _, raw := range req.Runtime.ProductMediaIDs() {
			// Product media ids are device-free-form on the read side; ids
			// that are not valid media references contribute nothing.
			id, err := uuid.Parse(raw)
			if err != nil {
				logging.DebugWithComponent(logging.ComponentSync, "ignoring non-uuid product media id",
					"device_id", device.ID, "media_id", raw)
				continue
			}
			req.FlashSale = appendUnique(req.FlashSale, id)
			all[id] = struct{}{}
		}
	}

	req.All = make([]uuid.UUID, 0, len(all))
	for id := range all {
		req.All = append(req.All, id)
	}
	return req, nil
}

// startsWithinWindow reports whether the schedule's next computed start lies
// in [now, now+preloadWindow]. Both today's and tomorrow's instance of the
// schedule's day are probed so windows straddling midnight preload correctly.
func (r *Resolver) startsWithinWindow(sch *database.Schedule, now time.Time) bool {
	startSec, _, err := utils.ParseClock(sch.StartTime)
	if err != nil {
		return false
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for offset := 0; offset <= 1; offset++ {
		day := midnight.AddDate(0, 0, offset)
		if utils.WeekdayIndex(day) != sch.DayOfWeek {
			continue
		}
		start := day.Add(time.Duration(startSec) * time.Second)
		if !start.Before(now) && !start.After(now.Add(r.preloadWindow)) {
			return true
		}
	}
	return false
}

func appendUnique(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
