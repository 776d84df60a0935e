// SPDX-License-Identifier: GPL-3.0-only

// Package changequeue serializes brightness writes to display hardware.
//
// Submissions never block the caller. Pending changes are coalesced per
// physical target so only the latest value for each display is written, and a
// single worker goroutine performs all device I/O.
package changequeue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/shini4i/unblind-daemon/internal/display"
	"github.com/shini4i/unblind-daemon/internal/events"
)

// ErrClosed is returned by Submit after Close has been called.
var ErrClosed = errors.New("change queue is closed")

// IntegratedTarget is the coalescing key of the integrated panel.
const IntegratedTarget = "integrated"

// attempts is the number of tries per change: the initial write plus one retry.
const attempts = 2

// ApplyFailed is published when a change could not be written after retrying.
type ApplyFailed struct {
	Target string
	Value  uint32
	Err    error
}

// Type implements events.Event.
func (ApplyFailed) Type() events.Type { return events.TypeApplyFailed }

type change struct {
	key     string
	display *display.Display // nil for the integrated panel
	value   uint32
}

// Queue is a coalescing single-worker queue of brightness changes.
type Queue struct {
	backend   display.Backend
	publisher events.Publisher

	mu      sync.Mutex
	pending []change
	closed  bool
	started bool

	wake chan struct{}
	done chan struct{}
}

// Option configures a Queue.
type Option func(*Queue)

// WithPublisher sets where ApplyFailed events are sent.
func WithPublisher(p events.Publisher) Option {
	return func(q *Queue) {
		q.publisher = p
	}
}

// New creates a queue writing to backend. Call Start to begin processing.
func New(backend display.Backend, opts ...Option) *Queue {
	q := &Queue{
		backend:   backend,
		publisher: events.Discard,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the worker goroutine. Subsequent calls are no-ops.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started || q.closed {
		return
	}
	q.started = true
	go q.run()
}

// Submit schedules value for d, clamped to the display's range. A pending
// change for the same physical target is replaced.
func (q *Queue) Submit(d *display.Display, value uint32) error {
	if !d.Valid() {
		return display.ErrDisplayInvalid
	}
	return q.enqueue(change{key: d.Handle.ID(), display: d, value: d.Clamp(value)})
}

// SubmitIntegrated schedules value for the integrated panel, clamped to 0-100.
func (q *Queue) SubmitIntegrated(value uint32) error {
	return q.enqueue(change{
		key:   IntegratedTarget,
		value: display.Clamp(value, display.IntegratedMin, display.IntegratedMax),
	})
}

func (q *Queue) enqueue(c change) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	replaced := false
	for i := range q.pending {
		if q.pending[i].key == c.key {
			q.pending[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		q.pending = append(q.pending, c)
	}

	// wake is only closed while holding mu with closed set, so this send is safe.
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of changes waiting for the worker.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops accepting changes, lets the worker write what is already pending
// and waits for it to exit or for ctx to expire.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.wake)
	started := q.started
	q.mu.Unlock()

	if !started {
		return nil
	}

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("change queue did not drain: %w", ctx.Err())
	}
}

func (q *Queue) run() {
	defer close(q.done)

	for range q.wake {
		for {
			c, ok := q.next()
			if !ok {
				break
			}
			q.apply(c)
		}
	}
	log.Debug().Msg("Change queue worker stopped")
}

func (q *Queue) next() (change, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return change{}, false
	}
	c := q.pending[0]
	q.pending = q.pending[1:]
	return c, true
}

func (q *Queue) apply(c change) {
	if c.display == nil {
		err := display.Retry(attempts, func() error {
			return q.backend.SetIntegratedBrightness(c.value)
		})
		q.report(c, err)
		return
	}

	if !c.display.Valid() {
		log.Debug().Str("target", c.key).Msg("Skipping change for invalidated display")
		return
	}

	err := display.Retry(attempts, func() error {
		return q.backend.SetBrightness(c.display.Handle, c.value)
	})
	if err == nil {
		// A refresh may have invalidated the display mid-write; the value is
		// still on the hardware, only the stale record is left untouched.
		_ = c.display.SetCurrentBrightness(c.value)
	}
	q.report(c, err)
}

func (q *Queue) report(c change, err error) {
	if err == nil {
		log.Debug().Str("target", c.key).Uint32("value", c.value).Msg("Brightness applied")
		return
	}
	log.Error().Err(err).Str("target", c.key).Uint32("value", c.value).Msg("Failed to apply brightness")
	q.publisher.Publish(ApplyFailed{Target: c.key, Value: c.value, Err: err})
}
