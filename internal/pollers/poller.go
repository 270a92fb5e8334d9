package pollers

import (
	"context"
	"time"
)

// Poller is a cancellable fixed-interval background job.
type Poller interface {
	// Name identifies the poller in logs and the manager registry.
	Name() string

	// Start begins the polling loop in a goroutine.
	Start(ctx context.Context) error

	// Stop cancels the loop and waits for the in-flight run to drain.
	Stop() error

	// IsRunning reports whether the loop is active.
	IsRunning() bool

	// GetInterval returns the polling interval.
	GetInterval() time.Duration

	// SetInterval updates the polling interval for subsequent ticks.
	SetInterval(interval time.Duration)
}

// PollerConfig holds configuration for a poller.
type PollerConfig struct {
	Name       string
	Interval   time.Duration
	Enabled    bool
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// DefaultConfig returns a poller configuration with standard retry behavior.
func DefaultConfig(name string, interval time.Duration) PollerConfig {
	return PollerConfig{
		Name:       name,
		Interval:   interval,
		Enabled:    true,
		MaxRetries: 3,
		RetryDelay: 15 * time.Second,
		Timeout:    60 * time.Second,
	}
}
