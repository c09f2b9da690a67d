// Package events provides an in-process broker for relation lifecycle
// events.
package events

import (
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventPeerJoined         EventType = "peer.joined"
	EventPeerDeparted       EventType = "peer.departed"
	EventHAReady            EventType = "ha.ready"
	EventResourcesPublished EventType = "resources.published"
	EventResourcesDeleted   EventType = "resources.deleted"
)

// Event represents a relation lifecycle event
type Event struct {
	Type      EventType
	Timestamp time.Time
	Relation  string
	Metadata  map[string]string
}

// Subscriber is a channel that receives events
type Subscriber chan Event

// Broker fans relation events out to subscribers. Delivery is best effort:
// a subscriber with a full buffer misses the event.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]bool
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{subscribers: make(map[Subscriber]bool)}
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 16)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription and closes its channel
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish delivers an event to all current subscribers
func (b *Broker) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
