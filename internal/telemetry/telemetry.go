// SPDX-License-Identifier: GPL-3.0-only

// Package telemetry forwards engine events to external metrics and state
// sinks. Every sink is optional and never blocks the event bus.
package telemetry

import (
	"errors"

	"github.com/shini4i/unblind-daemon/internal/events"
)

// observedTypes are the events every sink receives.
var observedTypes = []events.Type{
	events.TypeBrightnessChanged,
	events.TypePeriodChanged,
	events.TypeScheduleConfigChanged,
	events.TypeDisplaysRefreshed,
	events.TypeApplyFailed,
}

// Sink consumes events.
type Sink interface {
	Handle(events.Event)
	Close() error
}

// Attach subscribes sink to every observed event type on bus.
func Attach(bus *events.Bus, sink Sink) {
	for _, t := range observedTypes {
		bus.Subscribe(t, sink.Handle)
	}
}

// CloseAll closes every sink and joins the errors.
func CloseAll(sinks []Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
