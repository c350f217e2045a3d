// Package hub implements the in-memory broadcast fan-out for live event
// delivery. The hub is not a durable queue: events published while no one is
// subscribed are lost, and the audit store remains the source of truth.
package hub

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jobtrace/jobtrace-gateway/internal/metrics"
	"github.com/jobtrace/jobtrace-gateway/internal/models"
)

// subscriberBuffer is the per-subscriber channel depth. A subscriber whose
// transport cannot keep up loses messages once the buffer fills; the
// publisher is never blocked.
const subscriberBuffer = 64

// Subscriber is one registered receiver. Read messages from C until it is
// closed (by Unsubscribe or hub shutdown).
type Subscriber struct {
	C chan models.StreamMessage
}

// Hub maintains the live subscriber registry and fans out published events.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	closed      bool
	logger      *slog.Logger
}

// New creates an empty hub.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a new subscriber. The returned handle receives every
// event published after this call, until Unsubscribe.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{C: make(chan models.StreamMessage, subscriberBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(s.C)
		return s
	}
	h.subscribers[s] = struct{}{}
	metrics.HubSubscribers.Set(float64(len(h.subscribers)))
	return s
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call more
// than once.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[s]; !ok {
		return
	}
	delete(h.subscribers, s)
	close(s.C)
	metrics.HubSubscribers.Set(float64(len(h.subscribers)))
}

// Publish delivers payload tagged with event to every subscriber registered
// at the time of the call. Delivery is best-effort per subscriber: a full
// buffer drops the message for that subscriber only and never blocks the
// publisher or delivery to others.
func (h *Hub) Publish(event string, payload interface{}) {
	msg := models.StreamMessage{
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subscribers {
		select {
		case s.C <- msg:
		default:
			metrics.HubDroppedMessagesTotal.Inc()
			h.logger.Debug("hub: dropped message for slow subscriber", "event", event)
		}
	}
}

// SubscriberCount returns the current number of registered subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close unregisters all subscribers and closes their channels. Subscribers
// obtained after Close receive an already-closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subscribers {
		delete(h.subscribers, s)
		close(s.C)
	}
	metrics.HubSubscribers.Set(0)
}
