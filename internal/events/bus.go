// SPDX-License-Identifier: GPL-3.0-only

// Package events provides the in-process notification bus that connects the
// brightness engine to its observers (D-Bus, telemetry, persistence).
package events

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Type identifies a kind of event.
type Type string

const (
	TypeBrightnessChanged     Type = "brightness_changed"
	TypeScheduledChange       Type = "scheduled_change"
	TypePeriodChanged         Type = "period_changed"
	TypeScheduleConfigChanged Type = "schedule_config_changed"
	TypeDisplaysRefreshed     Type = "displays_refreshed"
	TypeApplyFailed           Type = "apply_failed"
)

// Event is implemented by every payload published on the bus.
type Event interface {
	Type() Type
}

// Handler receives events. Handlers run on the publisher's goroutine and must
// not block.
type Handler func(Event)

// Publisher is the narrow interface components use to emit events.
type Publisher interface {
	Publish(Event)
}

// Bus delivers events synchronously and in publish order to subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Type][]Handler)}
}

// Subscribe registers handler for events of type t.
func (b *Bus) Subscribe(t Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], handler)
}

// Publish delivers event to every handler subscribed to its type.
// A panicking handler is logged and does not affect the others.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.Type()]
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.dispatch(event, handler)
	}
}

func (b *Bus) dispatch(event Event, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("event_type", string(event.Type())).
				Msg("Event handler panicked")
		}
	}()
	handler(event)
}

// Clear removes all handlers.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[Type][]Handler)
}

// Discard is a Publisher that drops everything.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}
