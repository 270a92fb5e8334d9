package flashsale

import (
	"sort"
)

// Runtime display states produced by the preload guard. A campaign may be
// schedule-active while the device is still forbidden to show it.
const (
	StateLive                  = "live"
	StateWarmup                = "warmup"
	StatePreparing             = "preparing"
	StateBlockedDraft          = "blocked:draft"
	StateBlockedDisabled       = "blocked:disabled"
	StateBlockedInactiveWindow = "blocked:inactive_window"
	StateBlockedNoProducts     = "blocked:no_products"
	StateBlockedSyncFailed     = "blocked:sync_failed"
)

// GuardedRuntime enriches a resolved runtime with the device-side display
// decision. DisplayActive is true only in the live state.
type GuardedRuntime struct {
	Runtime         *RuntimeInfo `json:"runtime,omitempty"`
	RuntimeState    string       `json:"runtime_state"`
	DisplayActive   bool         `json:"display_active"`
	RequiredCount   int          `json:"required_count"`
	CachedCount     int          `json:"cached_count"`
	MissingMediaIDs []string     `json:"missing_media_ids,omitempty"`
}

// Guard gates campaign display on local cache completeness. cached is the
// device-reported media set; syncFailed reflects the device's current sync
// queue status.
func Guard(info *RuntimeInfo, cached map[string]struct{}, syncFailed bool) *GuardedRuntime {
	out := &GuardedRuntime{Runtime: info, RuntimeState: StateBlockedDisabled}
	if info == nil {
		return out
	}

	required := info.ProductMediaIDs()
	out.RequiredCount = len(required)
	var missing []string
	for _, id := range required {
		if _, ok := cached[id]; ok {
			out.CachedCount++
		} else {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	out.MissingMediaIDs = missing

	switch {
	case info.Draft:
		out.RuntimeState = StateBlockedDraft
	case !info.Enabled:
		out.RuntimeState = StateBlockedDisabled
	case len(required) == 0:
		out.RuntimeState = StateBlockedNoProducts
	case (info.Active || info.WarmupActive) && len(missing) > 0 && syncFailed:
		out.RuntimeState = StateBlockedSyncFailed
	case info.Active && len(missing) == 0:
		out.RuntimeState = StateLive
		out.DisplayActive = true
	case info.Active:
		out.RuntimeState = StatePreparing
	case info.WarmupActive:
		out.RuntimeState = StateWarmup
	default:
		out.RuntimeState = StateBlockedInactiveWindow
	}
	return out
}
