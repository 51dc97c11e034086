package pubsub

import (
	"sync"
	"time"
)

// subscriberBuffer bounds how many undelivered events a slow subscriber can
// hold before further events are dropped for it. Delivery is best-effort.
const subscriberBuffer = 16

// Event records that an entity of some kind was created. It carries the
// fully resolved entity snapshot and exists only while being dispatched;
// nothing is persisted or replayed.
type Event struct {
	Kind    string
	At      time.Time
	Payload interface{}
}

// Bus is an in-process publish/subscribe registry. It is the only piece of
// process-wide mutable state besides the store pool, so every method is safe
// under concurrent use from many in-flight requests.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// Subscription is one listener registration on a topic. Close deregisters
// it deterministically; after Close the Events channel is closed.
type Subscription struct {
	bus   *Bus
	topic string
	ch    chan Event
	once  sync.Once
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers a new listener on topic. Events published before this
// call are never delivered to it.
func (b *Bus) Subscribe(topic string) *Subscription {
	s := &Subscription{
		bus:   b,
		topic: topic,
		ch:    make(chan Event, subscriberBuffer),
	}

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*Subscription]struct{})
	}
	b.subs[topic][s] = struct{}{}
	b.mu.Unlock()

	return s
}

// Publish hands ev to every listener currently registered on topic. The
// call never blocks on a slow subscriber: a full buffer drops the event for
// that subscriber only. Within one topic, delivery order matches publish
// order for each subscriber.
func (b *Bus) Publish(topic string, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for s := range b.subs[topic] {
		select {
		case s.ch <- ev:
		default:
		}
	}
}

// SubscriberCount reports how many listeners topic currently has.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Events is the stream of events delivered to this subscription.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close removes the subscription from the bus registry and closes the
// Events channel. Safe to call more than once. The write lock excludes any
// concurrent Publish, so no send can race the close.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs[s.topic], s)
		s.bus.mu.Unlock()
		close(s.ch)
	})
}
