package flashsale

import (
	"time"

	"github.com/rmitchellscott/marquee/internal/database"
	"github.com/rmitchellscott/marquee/internal/utils"
)

// Warm-up lead time applied when a scheduled config doesn't set its own.
const defaultWarmupMinutes = 30

// WarmupMinutes bounds, enforced on writes and clamped on reads.
const (
	MinWarmupMinutes = 1
	MaxWarmupMinutes = 240
)

// RuntimeInfo is the resolved runtime view of a flash-sale config at one
// instant. All times are naive wall-clock in the configured display zone.
type RuntimeInfo struct {
	Enabled      bool       `json:"enabled"`
	Draft        bool       `json:"draft"`
	Active       bool       `json:"active"`
	WarmupActive bool       `json:"warmup_active"`
	RuntimeStart *time.Time `json:"runtime_start,omitempty"`
	RuntimeEnd   *time.Time `json:"runtime_end,omitempty"`
	CountdownEnd *time.Time `json:"countdown_end,omitempty"`
	Products     []Product  `json:"products,omitempty"`
	Note         *string    `json:"note,omitempty"`
}

// ProductMediaIDs returns the distinct media ids the campaign needs cached.
func (r *RuntimeInfo) ProductMediaIDs() []string {
	if r == nil {
		return nil
	}
	return ProductMediaIDs(r.Products)
}

// Resolve computes the runtime state of a flash-sale config at `now`.
// Returns nil when there is no config. A draft config is never live, whatever
// its stored enabled flag says.
func Resolve(cfg *database.FlashSaleConfig, now time.Time) *RuntimeInfo {
	if cfg == nil {
		return nil
	}

	info := &RuntimeInfo{
		Draft:    cfg.IsDraft,
		Enabled:  cfg.Enabled && !cfg.IsDraft,
		Note:     cfg.Note,
		Products: LenientProducts(cfg.ProductsJSON),
	}

	if !hasSchedule(cfg) {
		// Always-on once enabled, anchored at activation.
		info.RuntimeStart = cfg.ActivatedAt
		info.Active = info.Enabled
	} else {
		resolveScheduled(cfg, now, info)
	}

	applyCountdown(cfg, now, info)
	return info
}

func hasSchedule(cfg *database.FlashSaleConfig) bool {
	return cfg.ScheduleDays != nil && *cfg.ScheduleDays != "" &&
		cfg.ScheduleStartTime != nil && cfg.ScheduleEndTime != nil
}

func resolveScheduled(cfg *database.FlashSaleConfig, now time.Time, info *RuntimeInfo) {
	days := lenientScheduleDays(*cfg.ScheduleDays)
	startSec, _, errStart := utils.ParseClock(*cfg.ScheduleStartTime)
	endSec, _, errEnd := utils.ParseClock(*cfg.ScheduleEndTime)
	if errStart != nil || errEnd != nil || len(days) == 0 {
		// Write-side validation should make this unreachable; degrade to
		// inactive rather than propagating a read failure.
		return
	}

	windowSec := endSec - startSec
	if windowSec <= 0 {
		// End at or before start means the window crosses midnight.
		windowSec += 24 * 3600
	}

	// A window that started yesterday can still cover now, and tomorrow's
	// window can already be in warm-up, so probe all three day anchors.
	type window struct{ start, end time.Time }
	var windows []window
	for offset := -1; offset <= 1; offset++ {
		anchor := now.AddDate(0, 0, offset)
		if _, ok := days[utils.WeekdayIndex(anchor)]; !ok {
			continue
		}
		start := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, now.Location()).
			Add(time.Duration(startSec) * time.Second)
		windows = append(windows, window{start: start, end: start.Add(time.Duration(windowSec) * time.Second)})
	}

	if !info.Enabled {
		return
	}

	for _, w := range windows {
		if !now.Before(w.start) && now.Before(w.end) {
			start, end := w.start, w.end
			info.Active = true
			info.RuntimeStart = &start
			info.RuntimeEnd = &end
			return
		}
	}

	warmup := warmupDuration(cfg)
	for _, w := range windows {
		if now.Before(w.start) && !now.Before(w.start.Add(-warmup)) {
			start, end := w.start, w.end
			info.WarmupActive = true
			info.RuntimeStart = &start
			info.RuntimeEnd = &end
			return
		}
	}
}

func warmupDuration(cfg *database.FlashSaleConfig) time.Duration {
	minutes := defaultWarmupMinutes
	if cfg.WarmupMinutes != nil {
		minutes = *cfg.WarmupMinutes
		if minutes < MinWarmupMinutes {
			minutes = MinWarmupMinutes
		}
		if minutes > MaxWarmupMinutes {
			minutes = MaxWarmupMinutes
		}
	}
	return time.Duration(minutes) * time.Minute
}

// applyCountdown force-expires a campaign once the countdown anchored at
// runtime start has elapsed, even inside an open schedule window.
func applyCountdown(cfg *database.FlashSaleConfig, now time.Time, info *RuntimeInfo) {
	if cfg.CountdownSec == nil || *cfg.CountdownSec <= 0 || info.RuntimeStart == nil {
		return
	}
	end := info.RuntimeStart.Add(time.Duration(*cfg.CountdownSec) * time.Second)
	if info.RuntimeEnd != nil && end.After(*info.RuntimeEnd) {
		end = *info.RuntimeEnd
	}
	info.CountdownEnd = &end
	if !now.Before(end) {
		info.Active = false
	}
}
