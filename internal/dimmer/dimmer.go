// SPDX-License-Identifier: GPL-3.0-only

// Package dimmer interpolates display brightness one unit at a time.
package dimmer

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shini4i/unblind-daemon/internal/events"
)

// Status describes what the dimmer is doing.
type Status int

const (
	StatusIdle Status = iota
	StatusDimming
	StatusBrightening
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusDimming:
		return "dimming"
	case StatusBrightening:
		return "brightening"
	default:
		return "idle"
	}
}

// BrightnessChanged is published for every brightness the dimmer applies.
type BrightnessChanged struct {
	Brightness uint32
	Delta      int
}

// Type implements events.Event.
func (BrightnessChanged) Type() events.Type { return events.TypeBrightnessChanged }

// Applier receives every brightness value the dimmer produces.
type Applier interface {
	ApplyBrightness(value uint32)
}

// ApplierFunc adapts a function to Applier.
type ApplierFunc func(uint32)

// ApplyBrightness implements Applier.
func (f ApplierFunc) ApplyBrightness(v uint32) { f(v) }

// Dimmer moves brightness from a start value to a target value over a
// duration. Event handlers run while a tick is in progress and must not call
// back into the Dimmer.
type Dimmer struct {
	applier   Applier
	publisher events.Publisher

	// tickMu keeps ticks from overlapping with each other and with
	// AdjustBrightness/Stop. It also guards stop.
	tickMu sync.Mutex
	stop   chan struct{}

	mu      sync.Mutex
	current uint32
	target  uint32
	status  Status
}

// Option configures a Dimmer.
type Option func(*Dimmer)

// WithPublisher sets the event sink.
func WithPublisher(p events.Publisher) Option {
	return func(d *Dimmer) {
		d.publisher = p
	}
}

// New creates an idle dimmer at initial brightness.
func New(applier Applier, initial uint32, opts ...Option) *Dimmer {
	d := &Dimmer{
		applier:   applier,
		publisher: events.Discard,
		current:   initial,
		target:    initial,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AdjustBrightness starts a transition from start to target lasting duration,
// replacing any transition in progress. When start equals target or duration
// is not positive, target is applied immediately.
func (d *Dimmer) AdjustBrightness(start, target uint32, duration time.Duration) {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()
	d.adjustLocked(start, target, duration)
}

// AdjustTo starts a transition from the current brightness to target.
func (d *Dimmer) AdjustTo(target uint32, duration time.Duration) {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()
	d.adjustLocked(d.Current(), target, duration)
}

func (d *Dimmer) adjustLocked(start, target uint32, duration time.Duration) {
	d.stopLocked()

	if start == target || duration <= 0 {
		d.mu.Lock()
		d.current = target
		d.target = target
		d.status = StatusIdle
		d.mu.Unlock()

		d.applier.ApplyBrightness(target)
		d.publisher.Publish(BrightnessChanged{Brightness: target, Delta: int(target) - int(start)})
		return
	}

	steps := target - start
	status := StatusBrightening
	if target < start {
		steps = start - target
		status = StatusDimming
	}
	interval := duration / time.Duration(steps)
	if interval <= 0 {
		interval = time.Nanosecond
	}

	d.mu.Lock()
	d.current = start
	d.target = target
	d.status = status
	d.mu.Unlock()

	log.Debug().
		Uint32("start", start).
		Uint32("target", target).
		Dur("duration", duration).
		Dur("interval", interval).
		Str("status", status.String()).
		Msg("Brightness transition started")

	stop := make(chan struct{})
	d.stop = stop
	go d.run(interval, stop)
}

// Stop cancels the running transition and leaves current and target as they are.
func (d *Dimmer) Stop() {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()
	d.stopLocked()
}

func (d *Dimmer) stopLocked() {
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
	d.mu.Lock()
	d.status = StatusIdle
	d.mu.Unlock()
}

func (d *Dimmer) run(interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if d.tick(stop) {
				return
			}
		}
	}
}

// tick advances one step. It returns true when the transition is over.
func (d *Dimmer) tick(stop chan struct{}) bool {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()

	// Stop may have won the race for tickMu.
	select {
	case <-stop:
		return true
	default:
	}

	d.mu.Lock()
	delta := 1
	if d.current > d.target {
		delta = -1
	}
	if d.current != d.target {
		d.current = uint32(int(d.current) + delta)
	}
	value := d.current
	done := d.current == d.target
	if done {
		d.status = StatusIdle
	}
	d.mu.Unlock()

	d.applier.ApplyBrightness(value)
	d.publisher.Publish(BrightnessChanged{Brightness: value, Delta: delta})

	if done {
		d.stop = nil
		log.Debug().Uint32("brightness", value).Msg("Brightness transition finished")
	}
	return done
}

// Current returns the brightness most recently applied.
func (d *Dimmer) Current() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Target returns the brightness the dimmer is moving towards.
func (d *Dimmer) Target() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.target
}

// Status returns the current transition status.
func (d *Dimmer) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}
