// Package events implements single-pass event dispatch to subscribers.
// Handlers observe events but never emit new ones back into the bus, so a
// dispatch cannot recurse.
package events

import "github.com/nathoo/cosmicisles/types"

// Any subscribes a handler to every event type.
const Any = "*"

// Handler observes one event.
type Handler func(types.Event)

// Bus delivers events to handlers in subscription order.
type Bus struct {
	handlers map[string][]Handler
	order    []subscription
}

type subscription struct {
	eventType string
	handler   Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: map[string][]Handler{}}
}

// Subscribe registers h for eventType, or for every type when eventType is Any.
func (b *Bus) Subscribe(eventType string, h Handler) {
	if h == nil {
		return
	}
	b.handlers[eventType] = append(b.handlers[eventType], h)
	b.order = append(b.order, subscription{eventType: eventType, handler: h})
}

// Dispatch runs every matching handler once per event. Single pass.
func (b *Bus) Dispatch(evs []types.Event) {
	if b == nil || len(b.order) == 0 {
		return
	}
	for _, e := range evs {
		for _, s := range b.order {
			if s.eventType == Any || s.eventType == e.Type {
				s.handler(e)
			}
		}
	}
}

// Count returns how many handlers are subscribed to eventType, wildcard
// handlers excluded.
func (b *Bus) Count(eventType string) int {
	return len(b.handlers[eventType])
}
