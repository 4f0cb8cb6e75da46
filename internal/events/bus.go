package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler receives one published event. Handlers run on their own
// goroutines; a slow consumer never blocks the emitter.
type Handler func(*Event)

// Subscription identifies one registered handler so a consumer can detach
// when it disconnects.
type Subscription struct {
	eventType EventType
	id        uint64
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus fans events out to subscribers, keyed by event type. The engine's
// jobs emit onto the bus; the websocket stream and tests subscribe.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]subscriber
	lastID      uint64
	log         zerolog.Logger
}

// NewBus creates an empty bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[EventType][]subscriber),
		log:         log.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers handler for eventType and returns a Subscription
// for later detachment.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastID++
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriber{id: b.lastID, handler: handler})

	return Subscription{eventType: eventType, id: b.lastID}
}

// Unsubscribe detaches a previously registered handler. Safe to call more
// than once.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[sub.eventType]
	for i, s := range subs {
		if s.id == sub.id {
			b.subscribers[sub.eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subscribers[sub.eventType]) == 0 {
		delete(b.subscribers, sub.eventType)
	}
}

// Emit publishes an event to every subscriber of eventType. Each handler
// runs on its own goroutine; the handler list is snapshotted under the
// read lock so handlers may themselves subscribe or unsubscribe.
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	b.mu.RLock()
	subs := append([]subscriber(nil), b.subscribers[eventType]...)
	b.mu.RUnlock()

	for _, s := range subs {
		go s.handler(event)
	}

	b.log.Debug().
		Str("event_type", string(eventType)).
		Str("module", module).
		Int("subscribers", len(subs)).
		Msg("Event emitted")
}
