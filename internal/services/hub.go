package services

import (
	"sync"

	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/logger"

	"go.uber.org/zap"
)

// Event types pushed to subscribed clients. Events are invalidation
// signals, not data: subscribers re-read the affected resource.
const (
	EventNewMessage    = "new_message"
	EventSessionStatus = "session_status_update"
)

// Event is the typed notification broadcast to a tenant's subscribers
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// Notifier publishes change notifications for a tenant
type Notifier interface {
	Notify(tenantID string, event Event)
}

// MultiNotifier fans one notification out to several sinks
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(tenantID string, event Event) {
	for _, n := range m {
		n.Notify(tenantID, event)
	}
}

// Hub maintains the registry of currently-subscribed client channels per
// tenant. Delivery is at-most-once: a slow subscriber's channel simply
// drops the event, since clients self-heal by polling.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
}

// NewHub creates an empty subscriber registry
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a new client channel for the tenant
func (h *Hub) Subscribe(tenantID string) chan Event {
	ch := make(chan Event, 16)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[tenantID] == nil {
		h.subscribers[tenantID] = make(map[chan Event]struct{})
	}
	h.subscribers[tenantID][ch] = struct{}{}

	return ch
}

// Unsubscribe removes a client channel and closes it
func (h *Hub) Unsubscribe(tenantID string, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[tenantID]
	if !ok {
		return
	}
	if _, ok := subs[ch]; !ok {
		return
	}

	delete(subs, ch)
	if len(subs) == 0 {
		delete(h.subscribers, tenantID)
	}
	close(ch)
}

// Notify broadcasts an event to all of the tenant's subscribers without
// ever blocking the caller.
func (h *Hub) Notify(tenantID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[tenantID] {
		select {
		case ch <- event:
		default:
			// Subscriber is not keeping up; it will catch up by polling
			logger.Debug("Dropped realtime event for slow subscriber",
				zap.String("tenant_id", tenantID),
				zap.String("event_type", event.Type),
			)
		}
	}
}

// SubscriberCount reports the number of channels registered for a tenant
func (h *Hub) SubscriberCount(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[tenantID])
}
