// Package eventbus fans internal state changes out to whoever is listening.
//
// Delivery is lossy: Publish never waits, a subscriber whose buffer is full
// misses the event, and a subscriber sees nothing published before it
// subscribed. Consumers that need current state must read it themselves
// after subscribing.
package eventbus

import (
	"sync"
	"time"

	"github.com/nerrad567/wakelight/internal/infrastructure/metrics"
)

// Kind identifies an event.
type Kind string

// KindLightChanged is published whenever the strip turns on or off.
const KindLightChanged Kind = "light.changed"

// DefaultBuffer is the per-subscriber channel capacity used by Subscribe.
const DefaultBuffer = 16

// Event is a single notification.
type Event struct {
	Kind Kind
	On   bool
	At   time.Time
}

// LightChanged builds a KindLightChanged event stamped with now.
func LightChanged(on bool) Event {
	return Event{Kind: KindLightChanged, On: on, At: time.Now()}
}

// Bus is a broadcast channel. The zero value is not usable; call New.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscription receives events published after it was created.
type Subscription struct {
	bus  *Bus
	ch   chan Event
	once sync.Once
}

// C returns the receive channel. It is closed by Close or when the bus closes.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Close detaches the subscription and closes its channel. Safe to call twice.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	s.closeLocked()
}

func (s *Subscription) closeLocked() {
	s.once.Do(func() {
		delete(s.bus.subs, s)
		close(s.ch)
	})
}

// Subscribe registers a subscriber with DefaultBuffer capacity.
func (b *Bus) Subscribe() *Subscription {
	return b.SubscribeBuffer(DefaultBuffer)
}

// SubscribeBuffer registers a subscriber with the given channel capacity.
// On a closed bus the returned subscription's channel is already closed.
func (b *Bus) SubscribeBuffer(n int) *Subscription {
	if n < 1 {
		n = 1
	}
	s := &Subscription{bus: b, ch: make(chan Event, n)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.closeLocked()
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Publish delivers ev to every current subscriber without blocking and
// returns how many received it.
func (b *Bus) Publish(ev Event) int {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for s := range b.subs {
		select {
		case s.ch <- ev:
			delivered++
		default:
			metrics.EventsDropped.Inc()
		}
	}
	return delivered
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscription. Later Publish calls deliver to nobody.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for s := range b.subs {
		s.closeLocked()
	}
}
