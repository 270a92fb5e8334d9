package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rmitchellscott/marquee/internal/logging"
	"github.com/rmitchellscott/marquee/internal/utils"
)

// Event is one server-sent event. Revision is a process-wide monotonic
// counter stamped on publish so subscribers can detect gaps after a
// reconnect.
type Event struct {
	Type     string      `json:"type"`
	Revision uint64      `json:"revision"`
	Data     interface{} `json:"data"`
}

// Client is one connected subscriber. A nil DeviceID filter receives every
// event.
type Client struct {
	ID       string
	DeviceID *uuid.UUID
	Writer   http.ResponseWriter
	Flusher  http.Flusher
	Done     chan struct{}
}

// Service is the process-owned pub-sub hub for config and status change
// notifications. It is created on startup and torn down on shutdown; nothing
// else holds connection state.
type Service struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	revision atomic.Uint64
	closed   bool
}

func NewService() *Service {
	return &Service{
		clients: make(map[string]*Client),
	}
}

// AddClient registers a subscriber. deviceID narrows the subscription to one
// device's events; nil subscribes to everything. Returns nil when the writer
// cannot stream or the hub is already shut down.
func (s *Service) AddClient(deviceID *uuid.UUID, w http.ResponseWriter) *Client {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientID := fmt.Sprintf("%s-%d", uuid.NewString(), time.Now().UnixNano())
	client := &Client{
		ID:       clientID,
		DeviceID: deviceID,
		Writer:   w,
		Flusher:  flusher,
		Done:     make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.clients[clientID] = client
	s.mu.Unlock()

	logging.DebugWithComponent(logging.ComponentSSE, "client connected", "client_id", clientID)

	s.sendToClient(client, Event{
		Type:     "connected",
		Revision: s.revision.Load(),
		Data: map[string]interface{}{
			"timestamp": utils.Now(),
		},
	})
	return client
}

// RemoveClient drops a subscriber and releases its Done channel.
func (s *Service) RemoveClient(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if client, exists := s.clients[clientID]; exists {
		close(client.Done)
		delete(s.clients, clientID)
		logging.DebugWithComponent(logging.ComponentSSE, "client disconnected", "client_id", clientID)
	}
}

// Publish stamps the event with the next revision and fans it out to every
// matching subscriber.
func (s *Service) Publish(eventType string, deviceID *uuid.UUID, data interface{}) uint64 {
	revision := s.revision.Add(1)
	event := Event{Type: eventType, Revision: revision, Data: data}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, client := range s.clients {
		if deviceID != nil && client.DeviceID != nil && *client.DeviceID != *deviceID {
			continue
		}
		if deviceID == nil && client.DeviceID != nil {
			continue
		}
		s.sendToClient(client, event)
	}
	return revision
}

// PublishBroadcast fans the event out to every subscriber regardless of
// device filters. Used for fleet-wide notifications like the status sweep.
func (s *Service) PublishBroadcast(eventType string, data interface{}) uint64 {
	revision := s.revision.Add(1)
	event := Event{Type: eventType, Revision: revision, Data: data}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, client := range s.clients {
		s.sendToClient(client, event)
	}
	return revision
}

// Revision returns the last published revision.
func (s *Service) Revision() uint64 {
	return s.revision.Load()
}

func (s *Service) sendToClient(client *Client, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logging.WarnWithComponent(logging.ComponentSSE, "failed to marshal event", "error", err)
		return
	}
	fmt.Fprintf(client.Writer, "data: %s\n\n", payload)
	client.Flusher.Flush()
}

// KeepAlive pings all subscribers on a fixed interval until the context is
// cancelled.
func (s *Service) KeepAlive(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.RLock()
			for _, client := range s.clients {
				s.sendToClient(client, Event{
					Type:     "ping",
					Revision: s.revision.Load(),
					Data:     map[string]interface{}{"timestamp": utils.Now()},
				})
			}
			s.mu.RUnlock()
		}
	}
}

// Shutdown disconnects every subscriber and refuses new ones.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, client := range s.clients {
		close(client.Done)
		delete(s.clients, id)
	}
	logging.InfoWithComponent(logging.ComponentSSE, "hub shut down")
}

// ClientCount returns the number of connected subscribers.
func (s *Service) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
