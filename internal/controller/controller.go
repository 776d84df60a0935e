// SPDX-License-Identifier: GPL-3.0-only

// Package controller owns the display list and routes brightness values to
// every attached display through the change queue.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/shini4i/unblind-daemon/internal/changequeue"
	"github.com/shini4i/unblind-daemon/internal/display"
	"github.com/shini4i/unblind-daemon/internal/events"
)

// queryAttempts is the initial query plus one retry.
const queryAttempts = 2

// DisplaysRefreshed is published after every successful refresh.
type DisplaysRefreshed struct {
	Count      int
	Integrated bool
	Added      []string
	Removed    []string
}

// Type implements events.Event.
func (DisplaysRefreshed) Type() events.Type { return events.TypeDisplaysRefreshed }

// Controller is the single owner of the hardware backend, the current display
// list and the change queue.
type Controller struct {
	backend   display.Backend
	queue     *changequeue.Queue
	publisher events.Publisher

	// refreshMu serializes refreshes; nextID is only touched while holding it.
	refreshMu sync.Mutex
	nextID    uint32

	mu         sync.RWMutex
	displays   []*display.Display
	integrated bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithPublisher sets the event sink for the controller and its queue.
func WithPublisher(p events.Publisher) Option {
	return func(c *Controller) {
		c.publisher = p
	}
}

// New creates a controller for backend. Call Start before applying brightness.
func New(backend display.Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:   backend,
		publisher: events.Discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.queue = changequeue.New(backend, changequeue.WithPublisher(c.publisher))
	return c
}

// Start launches the change queue worker.
func (c *Controller) Start() {
	c.queue.Start()
}

// Refresh re-enumerates displays. Every display returned by a previous call
// is invalidated once the new list is in place.
func (c *Controller) Refresh() error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	handles, err := c.backend.ListDisplays()
	if err != nil {
		return fmt.Errorf("failed to enumerate displays: %w", err)
	}

	fresh := make([]*display.Display, 0, len(handles))
	for _, h := range handles {
		fresh = append(fresh, c.probe(h))
	}
	integrated := c.backend.IntegratedDisplaySupported()

	c.mu.Lock()
	old := c.displays
	c.displays = fresh
	c.integrated = integrated
	c.mu.Unlock()

	for _, d := range old {
		d.Invalidate()
	}

	added, removed := diff(old, fresh)
	for _, id := range added {
		log.Info().Str("display", id).Msg("Display connected")
	}
	for _, id := range removed {
		log.Info().Str("display", id).Msg("Display disconnected")
	}
	log.Info().Int("count", len(fresh)).Bool("integrated", integrated).Msg("Display list refreshed")

	c.publisher.Publish(DisplaysRefreshed{
		Count:      len(fresh),
		Integrated: integrated,
		Added:      added,
		Removed:    removed,
	})
	return nil
}

// probe queries a handle, degrading to zero values when the display does not answer.
func (c *Controller) probe(h display.Handle) *display.Display {
	caps, err := display.RetryValue(queryAttempts, func() (display.Capabilities, error) {
		return c.backend.QueryCapabilities(h)
	})
	if err != nil {
		log.Warn().Err(err).Str("display", h.ID()).Msg("Failed to query display capabilities")
		caps = display.Capabilities{}
	}

	r, err := display.RetryValue(queryAttempts, func() (display.BrightnessRange, error) {
		return c.backend.QueryBrightnessRange(h)
	})
	if err != nil {
		log.Warn().Err(err).Str("display", h.ID()).Msg("Failed to query display brightness range")
		r = display.BrightnessRange{}
	}

	c.nextID++
	return display.New(c.nextID, h, caps, r)
}

func diff(old, fresh []*display.Display) (added, removed []string) {
	before := make(map[string]bool, len(old))
	for _, d := range old {
		before[d.Handle.ID()] = true
	}
	after := make(map[string]bool, len(fresh))
	for _, d := range fresh {
		id := d.Handle.ID()
		after[id] = true
		if !before[id] {
			added = append(added, id)
		}
	}
	for id := range before {
		if !after[id] {
			removed = append(removed, id)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// ApplyBrightness submits value to every valid display and to the integrated
// panel when present. It never blocks on hardware.
func (c *Controller) ApplyBrightness(value uint32) {
	c.mu.RLock()
	displays := c.displays
	integrated := c.integrated
	c.mu.RUnlock()

	for _, d := range displays {
		if err := c.queue.Submit(d, value); err != nil && !errors.Is(err, display.ErrDisplayInvalid) {
			log.Debug().Err(err).Str("display", d.Handle.ID()).Msg("Brightness change not queued")
		}
	}
	if integrated {
		if err := c.queue.SubmitIntegrated(value); err != nil {
			log.Debug().Err(err).Msg("Integrated brightness change not queued")
		}
	}
}

// Displays returns the current display list.
func (c *Controller) Displays() []*display.Display {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*display.Display(nil), c.displays...)
}

// Count returns the number of physical displays.
func (c *Controller) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.displays)
}

// IntegratedSupported reports whether an integrated panel was found.
func (c *Controller) IntegratedSupported() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.integrated
}

// BrightnessLimits returns the brightness range every brightness-capable
// display accepts: the highest minimum and the lowest maximum. With no such
// display it returns 0-100.
func (c *Controller) BrightnessLimits() (uint32, uint32) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lo, hi := display.IntegratedMin, display.IntegratedMax
	found := false
	for _, d := range c.displays {
		if !d.SupportsBrightness() || d.MaxBrightness == 0 {
			continue
		}
		if !found {
			lo, hi = d.MinBrightness, d.MaxBrightness
			found = true
			continue
		}
		if d.MinBrightness > lo {
			lo = d.MinBrightness
		}
		if d.MaxBrightness < hi {
			hi = d.MaxBrightness
		}
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi
}

// NoSupportDetected reports whether any attached display lacks brightness control.
func (c *Controller) NoSupportDetected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.displays {
		if !d.SupportsBrightness() {
			return true
		}
	}
	return false
}

// MultipleDisplays reports whether more than one target receives brightness.
func (c *Controller) MultipleDisplays() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.displays) > 1 || (len(c.displays) == 1 && c.integrated)
}

// Close drains the change queue, invalidates every display and closes the backend.
func (c *Controller) Close(ctx context.Context) error {
	var errs []error
	if err := c.queue.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	c.mu.Lock()
	for _, d := range c.displays {
		d.Invalidate()
	}
	c.displays = nil
	c.integrated = false
	c.mu.Unlock()

	if err := c.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close backend: %w", err))
	}
	return errors.Join(errs...)
}
