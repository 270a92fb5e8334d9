package flashsale

import (
	"fmt"
	"testing"
	"time"

	"github.com/rmitchellscott/marquee/internal/database"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// wallClock builds a naive local time on a fixed date whose weekday is known:
// 2025-06-02 is a Monday (day index 0).
func wallClock(dayOffset int, clock string) time.Time {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, dayOffset)
	var h, m int
	fmt.Sscanf(clock, "%d:%d", &h, &m)
	return base.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func scheduledConfig(days, start, end string) *database.FlashSaleConfig {
	return &database.FlashSaleConfig{
		Enabled:           true,
		ScheduleDays:      strPtr(days),
		ScheduleStartTime: strPtr(start),
		ScheduleEndTime:   strPtr(end),
	}
}

func TestResolveNoConfig(t *testing.T) {
	if got := Resolve(nil, wallClock(0, "12:00")); got != nil {
		t.Fatalf("Resolve(nil) = %+v, want nil", got)
	}
}

func TestResolveDraftNeverLive(t *testing.T) {
	activated := wallClock(0, "08:00")
	cfg := &database.FlashSaleConfig{Enabled: true, IsDraft: true, ActivatedAt: &activated}

	info := Resolve(cfg, wallClock(0, "12:00"))
	if info == nil {
		t.Fatal("Resolve returned nil for existing config")
	}
	if info.Enabled || info.Active {
		t.Errorf("draft config resolved enabled=%v active=%v, want both false", info.Enabled, info.Active)
	}
	if !info.Draft {
		t.Error("Draft flag not carried through")
	}
}

func TestResolveAlwaysOn(t *testing.T) {
	activated := wallClock(0, "08:00")
	cfg := &database.FlashSaleConfig{Enabled: true, ActivatedAt: &activated}

	info := Resolve(cfg, wallClock(0, "09:00"))
	if !info.Active {
		t.Error("enabled schedule-less config should be active immediately")
	}
	if info.RuntimeStart == nil || !info.RuntimeStart.Equal(activated) {
		t.Errorf("RuntimeStart = %v, want activation time %v", info.RuntimeStart, activated)
	}

	cfg.Enabled = false
	if info := Resolve(cfg, wallClock(0, "09:00")); info.Active {
		t.Error("disabled config must not be active")
	}
}

func TestResolveScheduleWindow(t *testing.T) {
	tests := []struct {
		name       string
		days       string
		start, end string
		now        time.Time
		active     bool
	}{
		{"inside window", "0", "09:00:00", "17:00:00", wallClock(0, "12:00"), true},
		{"before window", "0", "09:00:00", "17:00:00", wallClock(0, "08:00"), false},
		{"at start boundary", "0", "09:00:00", "17:00:00", wallClock(0, "09:00"), true},
		{"at end boundary", "0", "09:00:00", "17:00:00", wallClock(0, "17:00"), false},
		{"wrong day", "1", "09:00:00", "17:00:00", wallClock(0, "12:00"), false},
		// end <= start crosses midnight: 22:00 Monday runs to 02:00 Tuesday
		{"midnight cross, evening side", "0", "22:00:00", "02:00:00", wallClock(0, "23:30"), true},
		{"midnight cross, morning side", "0", "22:00:00", "02:00:00", wallClock(1, "01:30"), true},
		{"midnight cross, after end", "0", "22:00:00", "02:00:00", wallClock(1, "03:00"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Resolve(scheduledConfig(tt.days, tt.start, tt.end), tt.now)
			if info.Active != tt.active {
				t.Errorf("active at %v = %v, want %v", tt.now, info.Active, tt.active)
			}
		})
	}
}

func TestResolveWarmup(t *testing.T) {
	cfg := scheduledConfig("0", "09:00:00", "17:00:00")
	cfg.WarmupMinutes = intPtr(30)

	tests := []struct {
		clock  string
		warmup bool
	}{
		{"08:45", true},
		{"08:30", true},
		{"08:00", false},
		{"09:30", false}, // inside window, not warm-up
	}
	for _, tt := range tests {
		info := Resolve(cfg, wallClock(0, tt.clock))
		if info.WarmupActive != tt.warmup {
			t.Errorf("warmupActive at %s = %v, want %v", tt.clock, info.WarmupActive, tt.warmup)
		}
	}
}

func TestResolveWarmupDefaultsWhenUnset(t *testing.T) {
	cfg := scheduledConfig("0", "09:00:00", "17:00:00")
	if info := Resolve(cfg, wallClock(0, "08:45")); !info.WarmupActive {
		t.Error("default warm-up window should cover 30 minutes before start")
	}
	if info := Resolve(cfg, wallClock(0, "08:00")); info.WarmupActive {
		t.Error("default warm-up window should not stretch an hour before start")
	}
}

func TestResolveCountdownPreemptsWindow(t *testing.T) {
	activated := wallClock(0, "08:00")
	cfg := &database.FlashSaleConfig{
		Enabled:      true,
		ActivatedAt:  &activated,
		CountdownSec: intPtr(60),
	}

	if info := Resolve(cfg, activated.Add(30*time.Second)); !info.Active {
		t.Error("active during countdown")
	}
	if info := Resolve(cfg, activated.Add(61*time.Second)); info.Active {
		t.Error("countdown expiry must force active=false")
	}
}

func TestResolveCountdownClampedToWindowEnd(t *testing.T) {
	cfg := scheduledConfig("0", "09:00:00", "10:00:00")
	cfg.CountdownSec = intPtr(7200) // longer than the one-hour window

	info := Resolve(cfg, wallClock(0, "09:30"))
	if info.CountdownEnd == nil {
		t.Fatal("CountdownEnd not set")
	}
	if info.RuntimeEnd == nil || info.CountdownEnd.After(*info.RuntimeEnd) {
		t.Errorf("CountdownEnd %v exceeds window end %v", info.CountdownEnd, info.RuntimeEnd)
	}
}

func TestResolveMalformedProductsSwallowed(t *testing.T) {
	activated := wallClock(0, "08:00")
	cfg := &database.FlashSaleConfig{
		Enabled:      true,
		ActivatedAt:  &activated,
		ProductsJSON: []byte(`{"not":"an array`),
	}
	info := Resolve(cfg, wallClock(0, "09:00"))
	if len(info.Products) != 0 {
		t.Errorf("malformed products should contribute nothing, got %d", len(info.Products))
	}
	if !info.Active {
		t.Error("malformed products must not disable the campaign itself")
	}
}

func TestResolveOutOfRangeDaysIgnored(t *testing.T) {
	cfg := scheduledConfig("0,9,-1", "09:00:00", "17:00:00")
	if info := Resolve(cfg, wallClock(0, "12:00")); !info.Active {
		t.Error("valid day 0 should survive out-of-range siblings")
	}
	cfg = scheduledConfig("9", "09:00:00", "17:00:00")
	if info := Resolve(cfg, wallClock(0, "12:00")); info.Active {
		t.Error("a day set with only invalid entries can never be active")
	}
}
