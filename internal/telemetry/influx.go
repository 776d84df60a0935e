// SPDX-License-Identifier: GPL-3.0-only

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog/log"

	"github.com/shini4i/unblind-daemon/internal/changequeue"
	"github.com/shini4i/unblind-daemon/internal/controller"
	"github.com/shini4i/unblind-daemon/internal/dimmer"
	"github.com/shini4i/unblind-daemon/internal/events"
	"github.com/shini4i/unblind-daemon/internal/schedule"
)

const influxConnectTimeout = 10 * time.Second

// ErrInfluxUnhealthy is returned when the server answers the ping as unhealthy.
var ErrInfluxUnhealthy = errors.New("influxdb server not healthy")

// pointWriter is the part of api.WriteAPI the sink uses.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// InfluxConfig holds connection settings for NewInfluxSink.
type InfluxConfig struct {
	URL           string
	Token         string
	Org           string
	Bucket        string
	FlushInterval time.Duration
}

// InfluxSink writes points to InfluxDB v2 through the batching write API.
type InfluxSink struct {
	writer pointWriter
	close  func()
	now    func() time.Time
}

// NewInfluxSink connects and pings the server.
func NewInfluxSink(ctx context.Context, cfg InfluxConfig) (*InfluxSink, error) {
	opts := influxdb2.DefaultOptions()
	if cfg.FlushInterval > 0 {
		opts.SetFlushInterval(uint(cfg.FlushInterval.Milliseconds()))
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	pingCtx, cancel := context.WithTimeout(ctx, influxConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping influxdb: %w", err)
	}
	if !healthy {
		client.Close()
		return nil, ErrInfluxUnhealthy
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			log.Warn().Err(err).Msg("InfluxDB write failed")
		}
	}()

	log.Info().Str("url", cfg.URL).Str("bucket", cfg.Bucket).Msg("InfluxDB metrics initialized")
	return &InfluxSink{writer: writeAPI, close: client.Close, now: time.Now}, nil
}

func newInfluxSink(writer pointWriter, now func() time.Time) *InfluxSink {
	return &InfluxSink{writer: writer, close: func() {}, now: now}
}

// Handle implements Sink.
func (s *InfluxSink) Handle(e events.Event) {
	var (
		measurement string
		tags        map[string]string
		fields      map[string]interface{}
	)

	switch ev := e.(type) {
	case dimmer.BrightnessChanged:
		measurement = "brightness"
		fields = map[string]interface{}{"value": int64(ev.Brightness), "delta": int64(ev.Delta)}
	case schedule.PeriodChanged:
		measurement = "period"
		tags = map[string]string{"period": ev.Period.String()}
		fields = map[string]interface{}{"day": ev.Period == schedule.PeriodDay}
	case schedule.ConfigChanged:
		measurement = "schedule"
		fields = map[string]interface{}{
			"daytime_start_s":   int64(ev.Config.DaytimeStart / time.Second),
			"nighttime_start_s": int64(ev.Config.NighttimeStart / time.Second),
			"day_brightness":    int64(ev.Config.DayBrightness),
			"night_brightness":  int64(ev.Config.NightBrightness),
		}
	case controller.DisplaysRefreshed:
		measurement = "displays"
		fields = map[string]interface{}{"count": int64(ev.Count), "integrated": ev.Integrated}
	case changequeue.ApplyFailed:
		measurement = "apply_failure"
		tags = map[string]string{"target": ev.Target}
		fields = map[string]interface{}{"value": int64(ev.Value)}
	default:
		return
	}

	s.writer.WritePoint(write.NewPoint(measurement, tags, fields, s.now()))
}

// Close flushes pending points and closes the client.
func (s *InfluxSink) Close() error {
	s.writer.Flush()
	s.close()
	return nil
}
