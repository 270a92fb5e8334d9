package pollers

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/rmitchellscott/marquee/internal/config"
	"github.com/rmitchellscott/marquee/internal/database"
	"github.com/rmitchellscott/marquee/internal/logging"
	"github.com/rmitchellscott/marquee/internal/sse"
)

// StatusSweepPoller recomputes device online/offline status from heartbeat
// staleness and publishes the changed-device batch to subscribers. Firing is
// fire-and-forget: request handling never waits on a sweep.
type StatusSweepPoller struct {
	*BasePoller
	devices    *database.DeviceService
	hub        *sse.Service
	staleAfter time.Duration
}

func NewStatusSweepPoller(db *gorm.DB, hub *sse.Service) *StatusSweepPoller {
	interval := config.GetDuration("DEVICE_STATUS_SWEEP_INTERVAL", time.Minute)
	staleAfter := config.GetDuration("DEVICE_OFFLINE_AFTER", 5*time.Minute)

	p := &StatusSweepPoller{
		devices:    database.NewDeviceService(db),
		hub:        hub,
		staleAfter: staleAfter,
	}
	p.BasePoller = NewBasePoller(DefaultConfig("device_status_sweep", interval), p.sweep)
	return p
}

func (p *StatusSweepPoller) sweep(ctx context.Context) error {
	changed, err := p.devices.MarkStaleDevicesOffline(p.staleAfter)
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return nil
	}

	batch := make([]map[string]interface{}, 0, len(changed))
	for _, device := range changed {
		batch = append(batch, map[string]interface{}{
			"device_id": device.ID,
			"status":    device.Status,
			"last_seen": device.LastSeen,
		})
	}

	logging.InfoWithComponent(logging.ComponentStatusSweep, "devices went offline", "count", len(changed))
	if p.hub != nil {
		p.hub.PublishBroadcast("device_status_changed", batch)
	}
	return nil
}
