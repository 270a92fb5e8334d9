package pollers

import (
	"context"
	"sync"
	"time"

	"github.com/rmitchellscott/marquee/internal/logging"
)

// BasePoller runs a poll function on a fixed interval with per-run timeout
// and retry. Concrete pollers embed it and supply the function.
type BasePoller struct {
	config   PollerConfig
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex
	pollFunc func(ctx context.Context) error
}

func NewBasePoller(config PollerConfig, pollFunc func(ctx context.Context) error) *BasePoller {
	return &BasePoller{
		config:   config,
		pollFunc: pollFunc,
	}
}

func (p *BasePoller) Name() string {
	return p.config.Name
}

// Start begins the polling loop. Starting a running poller is a no-op.
func (p *BasePoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	if !p.config.Enabled {
		logging.InfoWithComponent(logging.ComponentPoller, "poller disabled, not starting", "name", p.config.Name)
		return nil
	}

	logging.InfoWithComponent(logging.ComponentPoller, "starting poller",
		"name", p.config.Name, "interval", p.config.Interval)

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	p.wg.Add(1)
	go p.pollLoop()
	return nil
}

// Stop cancels the loop and blocks until the current run finishes.
func (p *BasePoller) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}

	p.cancel()
	p.wg.Wait()
	p.running = false

	logging.InfoWithComponent(logging.ComponentPoller, "poller stopped", "name", p.config.Name)
	return nil
}

func (p *BasePoller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

func (p *BasePoller) GetInterval() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config.Interval
}

func (p *BasePoller) SetInterval(interval time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.Interval = interval
}

func (p *BasePoller) pollLoop() {
	defer p.wg.Done()

	// First run happens immediately, not one interval in.
	p.executeWithRetry()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.executeWithRetry()
		}
	}
}

func (p *BasePoller) executeWithRetry() {
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		if p.ctx.Err() != nil {
			return
		}

		ctx, cancel := context.WithTimeout(p.ctx, p.config.Timeout)
		err := p.pollFunc(ctx)
		cancel()

		if err == nil {
			return
		}

		logging.WarnWithComponent(logging.ComponentPoller, "poll attempt failed",
			"name", p.config.Name, "attempt", attempt+1, "max", p.config.MaxRetries, "error", err)

		if attempt < p.config.MaxRetries-1 {
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(p.config.RetryDelay):
			}
		}
	}

	logging.ErrorWithComponent(logging.ComponentPoller, "poll gave up",
		"name", p.config.Name, "attempts", p.config.MaxRetries)
}
