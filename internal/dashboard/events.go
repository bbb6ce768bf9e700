package dashboard

import "sync"

// EventType represents what changed on the dashboard
type EventType string

const (
	// EventSnapshot follows a committed aggregate poll
	EventSnapshot EventType = "snapshot"
	// EventSample follows a committed per-node poll
	EventSample EventType = "sample"
	// EventZoom follows a wheel gesture that changed a panel's window
	EventZoom EventType = "zoom"
	// EventPanelAdded follows the discovery of a new node
	EventPanelAdded EventType = "panel_added"
)

// Event is the payload pushed to stream subscribers
type Event struct {
	Type    EventType `json:"type"`
	NodeID  string    `json:"node_id,omitempty"`
	Version uint64    `json:"version"`
}

// subscriberBuffer bounds how far a slow subscriber may lag before events are dropped
const subscriberBuffer = 32

// Hub fans events out to subscribers without ever blocking the publisher.
type Hub struct {
	mu      sync.Mutex
	clients map[chan Event]struct{}
	dropped uint64
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[chan Event]struct{})}
}

// Subscribe registers a listener
func (h *Hub) Subscribe() chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	h.clients[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a listener and closes its channel
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

// Broadcast delivers ev to every subscriber with room in its buffer
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
			h.dropped++
		}
	}
}

// Subscribers returns the number of listeners
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many deliveries were skipped because a buffer was full
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// CloseAll closes every subscriber channel
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		close(ch)
	}
	h.clients = make(map[chan Event]struct{})
}
