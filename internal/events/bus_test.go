// SPDX-License-Identifier: GPL-3.0-only

package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type testEvent struct {
	kind  Type
	value int
}

func (e testEvent) Type() Type { return e.kind }

func TestBus_PublishDeliversInOrder(t *testing.T) {
	bus := NewBus()

	var got []int
	bus.Subscribe(TypeBrightnessChanged, func(e Event) {
		got = append(got, e.(testEvent).value)
	})

	for i := 1; i <= 5; i++ {
		bus.Publish(testEvent{kind: TypeBrightnessChanged, value: i})
	}

	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
}

func TestBus_RoutesByType(t *testing.T) {
	bus := NewBus()

	var brightness, period int
	bus.Subscribe(TypeBrightnessChanged, func(Event) { brightness++ })
	bus.Subscribe(TypePeriodChanged, func(Event) { period++ })

	bus.Publish(testEvent{kind: TypeBrightnessChanged})
	bus.Publish(testEvent{kind: TypeBrightnessChanged})
	bus.Publish(testEvent{kind: TypePeriodChanged})
	bus.Publish(testEvent{kind: TypeDisplaysRefreshed})

	assert.Equal(t, 2, brightness)
	assert.Equal(t, 1, period)
}

func TestBus_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewBus()

	called := false
	bus.Subscribe(TypeScheduledChange, func(Event) { panic("boom") })
	bus.Subscribe(TypeScheduledChange, func(Event) { called = true })

	assert.NotPanics(t, func() {
		bus.Publish(testEvent{kind: TypeScheduledChange})
	})
	assert.True(t, called)
}

func TestBus_Clear(t *testing.T) {
	bus := NewBus()

	calls := 0
	bus.Subscribe(TypeApplyFailed, func(Event) { calls++ })
	bus.Clear()
	bus.Publish(testEvent{kind: TypeApplyFailed})

	assert.Zero(t, calls)
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard.Publish(testEvent{kind: TypeBrightnessChanged})
	})
}
