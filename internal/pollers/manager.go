package pollers

import (
	"context"
	"sync"

	"github.com/rmitchellscott/marquee/internal/logging"
)

// Manager owns the process's background pollers and stops them together on
// shutdown.
type Manager struct {
	pollers map[string]Poller
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

func NewManager() *Manager {
	return &Manager{
		pollers: make(map[string]Poller),
	}
}

func (m *Manager) Register(poller Poller) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollers[poller.Name()] = poller
}

// Start launches every registered poller. A poller that fails to start does
// not prevent the others from running.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.running = true

	logging.InfoWithComponent(logging.ComponentPoller, "starting pollers", "count", len(m.pollers))
	for name, poller := range m.pollers {
		if err := poller.Start(m.ctx); err != nil {
			logging.ErrorWithComponent(logging.ComponentPoller, "failed to start poller",
				"name", name, "error", err)
		}
	}
	return nil
}

// Stop drains all pollers concurrently and waits for them.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	var wg sync.WaitGroup
	for name, poller := range m.pollers {
		if !poller.IsRunning() {
			continue
		}
		wg.Add(1)
		go func(name string, p Poller) {
			defer wg.Done()
			if err := p.Stop(); err != nil {
				logging.WarnWithComponent(logging.ComponentPoller, "error stopping poller",
					"name", name, "error", err)
			}
		}(name, poller)
	}

	wg.Wait()
	m.cancel()
	m.running = false

	logging.InfoWithComponent(logging.ComponentPoller, "all pollers stopped")
	return nil
}

func (m *Manager) GetPoller(name string) (Poller, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	poller, exists := m.pollers[name]
	return poller, exists
}

func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}
