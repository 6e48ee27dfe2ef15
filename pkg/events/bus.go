package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/storefront-sync/pkg/metrics"
)

// Kind is one of the closed set of change notifications accessors emit.
type Kind string

const (
	KindCartUpdated         Kind = "cartUpdated"
	KindWishlistUpdated     Kind = "wishlistUpdated"
	KindProductsUpdated     Kind = "productsUpdated"
	KindOrdersUpdated       Kind = "ordersUpdated"
	KindNewOrder            Kind = "newOrder"
	KindNewNotification     Kind = "newNotification"
	KindNotificationUpdated Kind = "notificationUpdated"
	KindCustomersUpdated    Kind = "customersUpdated"
)

var validKinds = []Kind{
	KindCartUpdated,
	KindWishlistUpdated,
	KindProductsUpdated,
	KindOrdersUpdated,
	KindNewOrder,
	KindNewNotification,
	KindNotificationUpdated,
	KindCustomersUpdated,
}

// IsValid reports whether the value is a known Kind.
func (k Kind) IsValid() bool {
	for _, candidate := range validKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseKind converts raw input into a Kind.
func ParseKind(value string) (Kind, error) {
	for _, candidate := range validKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event kind %q", value)
}

// Event is a change notification. Payload is advisory only; observers should
// re-read through the relevant accessor rather than trust it as state.
type Event struct {
	Kind    Kind
	Payload any
}

// Handler receives events synchronously on the publisher's goroutine.
type Handler func(ctx context.Context, evt Event)

// Relay forwards event kinds to peer processes. Payloads never cross the
// relay; peers re-derive from their own caches.
type Relay interface {
	Relay(ctx context.Context, kind Kind)
}

// Bus fans change notifications out to registered in-process observers and,
// when a relay is attached, to peers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Kind]map[int]Handler
	nextID int
	relay  Relay

	metrics *metrics.SyncMetrics
}

// NewBus builds an event bus. Metrics may be nil.
func NewBus(syncMetrics *metrics.SyncMetrics) *Bus {
	return &Bus{
		subs:    make(map[Kind]map[int]Handler),
		metrics: syncMetrics,
	}
}

// SetRelay attaches the cross-process relay. Pass nil to detach.
func (b *Bus) SetRelay(relay Relay) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.relay = relay
}

// Subscription identifies one registered handler.
type Subscription struct {
	bus  *Bus
	kind Kind
	id   int
}

// Cancel removes the handler. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if handlers, ok := s.bus.subs[s.kind]; ok {
		delete(handlers, s.id)
	}
	s.bus = nil
}

// Subscribe registers a handler for the given kind.
func (b *Bus) Subscribe(kind Kind, handler Handler) (*Subscription, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("invalid event kind %q", kind)
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[kind] == nil {
		b.subs[kind] = make(map[int]Handler)
	}
	b.nextID++
	id := b.nextID
	b.subs[kind][id] = handler
	return &Subscription{bus: b, kind: kind, id: id}, nil
}

// Publish delivers the event to local subscribers and relays the kind to
// peers. Fan-out is synchronous so writers know observers have seen the
// change before returning.
func (b *Bus) Publish(ctx context.Context, evt Event) {
	b.Deliver(ctx, evt)

	b.mu.RLock()
	relay := b.relay
	b.mu.RUnlock()
	if relay != nil {
		relay.Relay(ctx, evt.Kind)
	}
}

// Deliver fans the event out locally without touching the relay. The bridge
// uses this for inbound peer notifications so they do not echo back out.
func (b *Bus) Deliver(ctx context.Context, evt Event) {
	if !evt.Kind.IsValid() {
		return
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[evt.Kind]))
	for _, handler := range b.subs[evt.Kind] {
		handlers = append(handlers, handler)
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(ctx, evt)
	}
	b.metrics.IncEvent(string(evt.Kind))
}
