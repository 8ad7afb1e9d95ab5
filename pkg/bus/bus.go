// Package bus is the in-process publish/subscribe hub that decouples the
// order lifecycle engine from the streaming layer. It is deliberately not a
// message queue: no buffering, no retry, no persistence. A topic with no
// listeners drops events silently.
package bus

import (
	"sync"

	"github.com/appetiteclub/apt"
	"github.com/curbsidehq/curbside/pkg/event"
)

// Listener receives events published on a subscribed topic. Listeners must
// not block; dispatch is synchronous on the publisher's goroutine.
type Listener func(evt *event.OrderEvent)

// Bus routes order events to listeners by topic string. Instances are built
// with New and injected; there is no package-level registry.
type Bus struct {
	logger apt.Logger

	mu     sync.RWMutex
	topics map[string][]*Subscription
}

// Subscription is the capability returned by Subscribe. Unsubscribe is
// idempotent and safe to call while a publish is in flight.
type Subscription struct {
	bus   *Bus
	topic string
	fn    Listener
	once  sync.Once
}

func New(logger apt.Logger) *Bus {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Bus{
		logger: logger,
		topics: make(map[string][]*Subscription),
	}
}

// Subscribe registers fn on topic. Listeners on one topic are invoked in
// subscription order.
func (b *Bus) Subscribe(topic string, fn Listener) *Subscription {
	sub := &Subscription{bus: b, topic: topic, fn: fn}

	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], sub)
	b.mu.Unlock()

	return sub
}

// Publish dispatches evt synchronously to every listener registered on topic
// at the moment Publish is called. A listener added mid-dispatch does not
// see the in-flight event; one removed mid-dispatch is skipped cleanly,
// because dispatch iterates over a snapshot of the listener list. A
// panicking listener never prevents delivery to the rest.
func (b *Bus) Publish(topic string, evt *event.OrderEvent) {
	b.mu.RLock()
	snapshot := make([]*Subscription, len(b.topics[topic]))
	copy(snapshot, b.topics[topic])
	b.mu.RUnlock()

	for _, sub := range snapshot {
		b.dispatch(topic, sub, evt)
	}
}

func (b *Bus) dispatch(topic string, sub *Subscription, evt *event.OrderEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked", "topic", topic, "event_type", evt.Type, "panic", r)
		}
	}()
	sub.fn(evt)
}

// ListenerCount reports how many listeners are currently registered on topic.
func (b *Bus) ListenerCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Unsubscribe removes the listener from its topic. Calling it more than once
// is a no-op.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		b := s.bus

		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.topics[s.topic]
		for i, sub := range subs {
			if sub == s {
				b.topics[s.topic] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(b.topics[s.topic]) == 0 {
			delete(b.topics, s.topic)
		}
	})
}
