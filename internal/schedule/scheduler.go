// SPDX-License-Identifier: GPL-3.0-only

// Package schedule decides which brightness period is active and when the
// next day/night boundary occurs.
package schedule

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shini4i/unblind-daemon/internal/events"
)

// boundaryTolerance keeps clock jitter around a boundary from flipping the
// period back by a full day.
const boundaryTolerance = time.Millisecond

// boundaryDelay is added to the wake-up so it lands strictly after the boundary.
const boundaryDelay = time.Millisecond

// Period is the brightness regime currently in effect.
type Period int

const (
	PeriodUnknown Period = iota
	PeriodDay
	PeriodNight
)

// String implements fmt.Stringer.
func (p Period) String() string {
	switch p {
	case PeriodDay:
		return "day"
	case PeriodNight:
		return "night"
	default:
		return "unknown"
	}
}

// BrightnessChange is published on every recomputation: the brightness that
// should be reached and how much of the transition window is left.
type BrightnessChange struct {
	Target    uint32
	Remaining time.Duration
}

// Type implements events.Event.
func (BrightnessChange) Type() events.Type { return events.TypeScheduledChange }

// PeriodChanged is published when the active period differs from the previous
// computation.
type PeriodChanged struct {
	Period   Period
	Previous Period
}

// Type implements events.Event.
func (PeriodChanged) Type() events.Type { return events.TypePeriodChanged }

// ConfigChanged is published after a successful configuration mutation.
type ConfigChanged struct {
	Config Config
}

// Type implements events.Event.
func (ConfigChanged) Type() events.Type { return events.TypeScheduleConfigChanged }

// Timer is the subset of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// Plan is the outcome of evaluating a Config at an instant.
type Plan struct {
	Period         Period
	Target         uint32
	Remaining      time.Duration
	UntilNext      time.Duration
	NextTransition Period
}

// Evaluate computes the plan for cfg at now. It has no side effects.
func Evaluate(cfg Config, now time.Time) Plan {
	tod := TimeOfDay(now)

	untilNight := wrapForward(cfg.NighttimeStart - tod)
	untilDay := wrapForward(cfg.DaytimeStart - tod)

	// The boundary that is farther away is the one that started the current period.
	if untilDay < untilNight {
		return Plan{
			Period:         PeriodNight,
			Target:         cfg.NightBrightness,
			Remaining:      remaining(tod-cfg.NighttimeStart, cfg.DayToNight),
			UntilNext:      untilDay,
			NextTransition: PeriodDay,
		}
	}
	return Plan{
		Period:         PeriodDay,
		Target:         cfg.DayBrightness,
		Remaining:      remaining(tod-cfg.DaytimeStart, cfg.NightToDay),
		UntilNext:      untilNight,
		NextTransition: PeriodNight,
	}
}

func wrapForward(d time.Duration) time.Duration {
	if d <= -boundaryTolerance {
		d += day
	}
	return d
}

func remaining(sinceStart, transition time.Duration) time.Duration {
	elapsed := wrapForward(sinceStart)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed < transition {
		return transition - elapsed
	}
	return 0
}

// Scheduler tracks the active period and re-evaluates the schedule at every
// boundary and on every configuration change.
type Scheduler struct {
	publisher events.Publisher
	now       func() time.Time
	afterFunc func(time.Duration, func()) Timer

	// recomputeMu orders recomputations so their events are published in sequence.
	recomputeMu sync.Mutex

	mu         sync.Mutex
	cfg        Config
	period     Period
	timer      Timer
	generation uint64
	closed     bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPublisher sets the event sink.
func WithPublisher(p events.Publisher) Option {
	return func(s *Scheduler) {
		s.publisher = p
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithAfterFunc replaces time.AfterFunc.
func WithAfterFunc(fn func(time.Duration, func()) Timer) Option {
	return func(s *Scheduler) {
		s.afterFunc = fn
	}
}

// New creates a scheduler for cfg. Start must be called to arm it.
func New(cfg Config, opts ...Option) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		publisher: events.Discard,
		now:       time.Now,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		cfg: cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start performs the initial computation and arms the boundary timer.
func (s *Scheduler) Start() {
	s.Recompute()
}

// Recompute evaluates the schedule now, publishes the result and re-arms the
// boundary timer.
func (s *Scheduler) Recompute() {
	s.recomputeMu.Lock()
	defer s.recomputeMu.Unlock()
	s.recomputeLocked()
}

// recomputeLocked requires recomputeMu.
func (s *Scheduler) recomputeLocked() {
	now := s.now()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	plan := Evaluate(s.cfg, now)
	previous := s.period
	s.period = plan.Period

	if s.timer != nil {
		s.timer.Stop()
	}
	s.generation++
	gen := s.generation
	s.timer = s.afterFunc(plan.UntilNext+boundaryDelay, func() {
		s.onBoundary(gen)
	})
	s.mu.Unlock()

	log.Debug().
		Str("period", plan.Period.String()).
		Uint32("target", plan.Target).
		Dur("remaining", plan.Remaining).
		Dur("until_next", plan.UntilNext).
		Msg("Schedule recomputed")

	if previous != plan.Period {
		s.publisher.Publish(PeriodChanged{Period: plan.Period, Previous: previous})
	}
	s.publisher.Publish(BrightnessChange{Target: plan.Target, Remaining: plan.Remaining})
}

func (s *Scheduler) onBoundary(gen uint64) {
	s.mu.Lock()
	stale := gen != s.generation
	s.mu.Unlock()
	if stale {
		return
	}
	s.Recompute()
}

// Period returns the period found by the last computation.
func (s *Scheduler) Period() Period {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.period
}

// Config returns a copy of the current configuration.
func (s *Scheduler) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// TimeToNextPeriod returns the time left until the next boundary at now.
func (s *Scheduler) TimeToNextPeriod(now time.Time) time.Duration {
	return Evaluate(s.Config(), now).UntilNext
}

// SetConfig replaces the whole configuration.
func (s *Scheduler) SetConfig(cfg Config) error {
	return s.update(func(c *Config) { *c = cfg })
}

// SetDaytimeStart sets when the day period begins.
func (s *Scheduler) SetDaytimeStart(d time.Duration) error {
	return s.update(func(c *Config) { c.DaytimeStart = d })
}

// SetNighttimeStart sets when the night period begins.
func (s *Scheduler) SetNighttimeStart(d time.Duration) error {
	return s.update(func(c *Config) { c.NighttimeStart = d })
}

// SetStartTimes sets both boundaries in one step, so moving them past each
// other never passes through an invalid intermediate state.
func (s *Scheduler) SetStartTimes(daytime, nighttime time.Duration) error {
	return s.update(func(c *Config) {
		c.DaytimeStart = daytime
		c.NighttimeStart = nighttime
	})
}

// SetDayBrightness sets the day period brightness.
func (s *Scheduler) SetDayBrightness(v uint32) error {
	return s.update(func(c *Config) { c.DayBrightness = v })
}

// SetNightBrightness sets the night period brightness.
func (s *Scheduler) SetNightBrightness(v uint32) error {
	return s.update(func(c *Config) { c.NightBrightness = v })
}

// SetDayToNightTransition sets the duration of the evening transition.
func (s *Scheduler) SetDayToNightTransition(d time.Duration) error {
	return s.update(func(c *Config) { c.DayToNight = d })
}

// SetNightToDayTransition sets the duration of the morning transition.
func (s *Scheduler) SetNightToDayTransition(d time.Duration) error {
	return s.update(func(c *Config) { c.NightToDay = d })
}

// update holds recomputeMu through publishing so ConfigChanged events leave
// in the order the changes were committed.
func (s *Scheduler) update(mutate func(*Config)) error {
	s.recomputeMu.Lock()
	defer s.recomputeMu.Unlock()

	s.mu.Lock()
	cfg := s.cfg
	mutate(&cfg)
	if err := cfg.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	unchanged := cfg == s.cfg
	s.cfg = cfg
	s.mu.Unlock()

	if !unchanged {
		s.publisher.Publish(ConfigChanged{Config: cfg})
	}
	s.recomputeLocked()
	return nil
}

// Close disarms the boundary timer. Later calls to Recompute do nothing.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
