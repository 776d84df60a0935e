// SPDX-License-Identifier: GPL-3.0-only

package telemetry

import (
	"fmt"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"

	"github.com/shini4i/unblind-daemon/internal/changequeue"
	"github.com/shini4i/unblind-daemon/internal/controller"
	"github.com/shini4i/unblind-daemon/internal/dimmer"
	"github.com/shini4i/unblind-daemon/internal/events"
	"github.com/shini4i/unblind-daemon/internal/schedule"
)

// statsdClient is the part of *statsd.Client the sink uses.
type statsdClient interface {
	Gauge(name string, value float64, tags []string, rate float64) error
	Incr(name string, tags []string, rate float64) error
	Close() error
}

// StatsdSink emits DogStatsD gauges and counters.
type StatsdSink struct {
	client statsdClient
}

// NewStatsdSink connects to the agent at addr. Metric names are prefixed
// with namespace.
func NewStatsdSink(addr, namespace string) (*StatsdSink, error) {
	client, err := statsd.New(addr, statsd.WithNamespace(namespace))
	if err != nil {
		return nil, fmt.Errorf("failed to create statsd client: %w", err)
	}

	log.Info().Str("addr", addr).Str("namespace", namespace).Msg("Statsd metrics initialized")
	return &StatsdSink{client: client}, nil
}

func newStatsdSink(client statsdClient) *StatsdSink {
	return &StatsdSink{client: client}
}

// Handle implements Sink.
func (s *StatsdSink) Handle(e events.Event) {
	var err error
	switch ev := e.(type) {
	case dimmer.BrightnessChanged:
		err = s.client.Gauge("brightness", float64(ev.Brightness), nil, 1)
	case schedule.PeriodChanged:
		err = s.client.Gauge("period.day", boolGauge(ev.Period == schedule.PeriodDay), nil, 1)
		if err == nil {
			err = s.client.Incr("period.changes", []string{"period:" + ev.Period.String()}, 1)
		}
	case schedule.ConfigChanged:
		err = s.client.Gauge("schedule.day_brightness", float64(ev.Config.DayBrightness), nil, 1)
		if err == nil {
			err = s.client.Gauge("schedule.night_brightness", float64(ev.Config.NightBrightness), nil, 1)
		}
	case controller.DisplaysRefreshed:
		err = s.client.Gauge("displays", float64(ev.Count), nil, 1)
	case changequeue.ApplyFailed:
		err = s.client.Incr("apply.failures", []string{"target:" + ev.Target}, 1)
	}
	if err != nil {
		log.Warn().Err(err).Str("event", string(e.Type())).Msg("Failed to emit statsd metric")
	}
}

// Close implements Sink.
func (s *StatsdSink) Close() error {
	return s.client.Close()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
