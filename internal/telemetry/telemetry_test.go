// SPDX-License-Identifier: GPL-3.0-only

package telemetry

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shini4i/unblind-daemon/internal/changequeue"
	"github.com/shini4i/unblind-daemon/internal/controller"
	"github.com/shini4i/unblind-daemon/internal/dimmer"
	"github.com/shini4i/unblind-daemon/internal/events"
	"github.com/shini4i/unblind-daemon/internal/schedule"
)

type metric struct {
	kind  string
	name  string
	value float64
	tags  []string
}

type fakeStatsd struct {
	metrics []metric
	err     error
	closed  bool
}

func (f *fakeStatsd) Gauge(name string, value float64, tags []string, _ float64) error {
	f.metrics = append(f.metrics, metric{"gauge", name, value, tags})
	return f.err
}

func (f *fakeStatsd) Incr(name string, tags []string, _ float64) error {
	f.metrics = append(f.metrics, metric{"incr", name, 1, tags})
	return f.err
}

func (f *fakeStatsd) Close() error {
	f.closed = true
	return nil
}

type fakeWriter struct {
	points  []*write.Point
	flushed bool
}

func (f *fakeWriter) WritePoint(p *write.Point) { f.points = append(f.points, p) }
func (f *fakeWriter) Flush()                    { f.flushed = true }

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  interface{}
}

type fakeMQTT struct {
	mu       sync.Mutex
	messages []message
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message{topic, qos, retained, payload})
	return doneToken{}
}

func (f *fakeMQTT) last(t *testing.T) message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.messages)
	return f.messages[len(f.messages)-1]
}

func TestAttach_RoutesObservedEvents(t *testing.T) {
	bus := events.NewBus()
	client := &fakeStatsd{}
	Attach(bus, newStatsdSink(client))

	bus.Publish(dimmer.BrightnessChanged{Brightness: 40, Delta: -1})
	bus.Publish(schedule.BrightnessChange{Target: 40})

	require.Len(t, client.metrics, 1, "scheduled changes are not observed")
	assert.Equal(t, metric{"gauge", "brightness", 40, nil}, client.metrics[0])
}

func TestStatsdSink_Handle(t *testing.T) {
	tests := []struct {
		name  string
		event events.Event
		want  []metric
	}{
		{
			name:  "period",
			event: schedule.PeriodChanged{Period: schedule.PeriodDay, Previous: schedule.PeriodNight},
			want: []metric{
				{"gauge", "period.day", 1, nil},
				{"incr", "period.changes", 1, []string{"period:day"}},
			},
		},
		{
			name:  "config",
			event: schedule.ConfigChanged{Config: schedule.DefaultConfig()},
			want: []metric{
				{"gauge", "schedule.day_brightness", 90, nil},
				{"gauge", "schedule.night_brightness", 50, nil},
			},
		},
		{
			name:  "displays",
			event: controller.DisplaysRefreshed{Count: 2},
			want:  []metric{{"gauge", "displays", 2, nil}},
		},
		{
			name:  "apply failure",
			event: changequeue.ApplyFailed{Target: "hid:ABC", Value: 10, Err: errors.New("gone")},
			want:  []metric{{"incr", "apply.failures", 1, []string{"target:hid:ABC"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeStatsd{}
			newStatsdSink(client).Handle(tt.event)
			assert.Equal(t, tt.want, client.metrics)
		})
	}
}

func TestStatsdSink_ErrorsAreSwallowed(t *testing.T) {
	client := &fakeStatsd{err: errors.New("connection refused")}
	sink := newStatsdSink(client)

	assert.NotPanics(t, func() {
		sink.Handle(schedule.PeriodChanged{Period: schedule.PeriodNight})
	})
	assert.Len(t, client.metrics, 1, "second metric skipped after failure")

	require.NoError(t, CloseAll([]Sink{sink}))
	assert.True(t, client.closed)
}

func fieldMap(p *write.Point) map[string]interface{} {
	out := make(map[string]interface{})
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func tagMap(p *write.Point) map[string]string {
	out := make(map[string]string)
	for _, tag := range p.TagList() {
		out[tag.Key] = tag.Value
	}
	return out
}

func TestInfluxSink_Handle(t *testing.T) {
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	w := &fakeWriter{}
	sink := newInfluxSink(w, func() time.Time { return now })

	sink.Handle(dimmer.BrightnessChanged{Brightness: 55, Delta: 1})
	sink.Handle(schedule.PeriodChanged{Period: schedule.PeriodNight, Previous: schedule.PeriodDay})
	sink.Handle(changequeue.ApplyFailed{Target: "integrated", Value: 30})
	sink.Handle(schedule.BrightnessChange{Target: 1})

	require.Len(t, w.points, 3)

	assert.Equal(t, "brightness", w.points[0].Name())
	assert.Equal(t, now, w.points[0].Time())
	assert.Equal(t, map[string]interface{}{"value": int64(55), "delta": int64(1)}, fieldMap(w.points[0]))

	assert.Equal(t, "period", w.points[1].Name())
	assert.Equal(t, map[string]string{"period": "night"}, tagMap(w.points[1]))
	assert.Equal(t, map[string]interface{}{"day": false}, fieldMap(w.points[1]))

	assert.Equal(t, "apply_failure", w.points[2].Name())
	assert.Equal(t, map[string]string{"target": "integrated"}, tagMap(w.points[2]))

	require.NoError(t, sink.Close())
	assert.True(t, w.flushed)
}

func TestMQTTPublisher_Handle(t *testing.T) {
	client := &fakeMQTT{}
	p := newMQTTPublisher(client, "home/unblind", 1)

	p.Handle(dimmer.BrightnessChanged{Brightness: 70, Delta: 1})
	msg := client.last(t)
	assert.Equal(t, "home/unblind/brightness", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.True(t, msg.retained)
	assert.JSONEq(t, `{"brightness":70,"delta":1}`, string(msg.payload.([]byte)))

	p.Handle(schedule.PeriodChanged{Period: schedule.PeriodDay, Previous: schedule.PeriodUnknown})
	msg = client.last(t)
	assert.Equal(t, "home/unblind/period", msg.topic)
	assert.JSONEq(t, `{"period":"day","previous":"unknown"}`, string(msg.payload.([]byte)))

	p.Handle(schedule.ConfigChanged{Config: schedule.DefaultConfig()})
	msg = client.last(t)
	assert.Equal(t, "home/unblind/schedule", msg.topic)
	var sched schedulePayload
	require.NoError(t, json.Unmarshal(msg.payload.([]byte), &sched))
	assert.Equal(t, "07:00:00", sched.DaytimeStart)
	assert.Equal(t, "18:00:00", sched.NighttimeStart)
	assert.Equal(t, float64(1), sched.DayToNight)

	p.Handle(controller.DisplaysRefreshed{Count: 3, Integrated: true})
	msg = client.last(t)
	assert.Equal(t, "home/unblind/displays", msg.topic)
	assert.JSONEq(t, `{"count":3,"integrated":true}`, string(msg.payload.([]byte)))

	before := len(client.messages)
	p.Handle(changequeue.ApplyFailed{Target: "x"})
	assert.Len(t, client.messages, before, "apply failures are not state")

	assert.NoError(t, p.Close())
}

func TestClientID(t *testing.T) {
	assert.Equal(t, "desk", ClientID("desk"))

	generated := ClientID("")
	assert.True(t, strings.HasPrefix(generated, "unblind-"))
	assert.NotEqual(t, generated, ClientID(""))
}
