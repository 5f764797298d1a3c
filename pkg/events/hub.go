package events

import (
	"sync"

	"github.com/vantage6/console/pkg/observability"
)

// Subscription is one client's view of the event stream.
type Subscription struct {
	id int64

	// C delivers events. It is closed by Unsubscribe.
	C chan Event
}

// Hub fans events out to subscribers. Delivery is best-effort: a subscriber
// whose channel is full misses the event rather than stalling the rest.
type Hub struct {
	mu      sync.Mutex
	nextID  int64
	subs    map[int64]*Subscription
	metrics *observability.Metrics
}

// NewHub returns an empty hub. metrics may be nil.
func NewHub(metrics *observability.Metrics) *Hub {
	return &Hub{
		subs:    make(map[int64]*Subscription),
		metrics: metrics,
	}
}

// Subscribe registers a new subscriber with the given channel buffer.
func (h *Hub) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id: h.nextID,
		C:  make(chan Event, buffer),
	}
	h.subs[sub.id] = sub
	if h.metrics != nil {
		h.metrics.EventStreamClients.Set(float64(len(h.subs)))
	}
	return sub
}

// Unsubscribe removes the subscriber and closes its channel. Safe to call
// more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	delete(h.subs, sub.id)
	close(sub.C)
	if h.metrics != nil {
		h.metrics.EventStreamClients.Set(float64(len(h.subs)))
	}
}

// Publish delivers the event to every subscriber without blocking. Slow
// subscribers drop the event.
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.EventsPublishedTotal.WithLabelValues(string(event.Type)).Inc()
	}

	for _, sub := range h.subs {
		select {
		case sub.C <- event:
		default:
			if h.metrics != nil {
				h.metrics.EventsDroppedTotal.Inc()
			}
		}
	}
}

// Clients returns the number of active subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
