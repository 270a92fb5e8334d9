package utils

import (
	"fmt"
	"sync"
	"time"

	"github.com/rmitchellscott/marquee/internal/config"
)

// All wall-clock decisions (flash-sale windows, schedule preloading, device
// liveness) use one configured time zone so persisted naive times compare
// directly against "now". Default matches the original deployment region.
const defaultTimezone = "Asia/Jakarta"

var (
	locOnce sync.Once
	loc     *time.Location
)

// ValidateTimezone checks a timezone string against the IANA database.
func ValidateTimezone(timezone string) error {
	if timezone == "" {
		return fmt.Errorf("timezone cannot be empty")
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return fmt.Errorf("invalid timezone: %s", timezone)
	}
	return nil
}

// Location returns the configured display time zone (TIMEZONE env var),
// falling back to the default when unset or invalid.
func Location() *time.Location {
	locOnce.Do(func() {
		name := config.Get("TIMEZONE", defaultTimezone)
		l, err := time.LoadLocation(name)
		if err != nil {
			l, err = time.LoadLocation(defaultTimezone)
			if err != nil {
				l = time.UTC
			}
		}
		loc = l
	})
	return loc
}

// Now returns the current time in the configured display time zone.
func Now() time.Time {
	return time.Now().In(Location())
}
