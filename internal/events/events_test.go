package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_FiltersByType(t *testing.T) {
	bus := NewBus(nil)
	var nodeEvents, all []Type
	bus.Subscribe(func(ev Event) { nodeEvents = append(nodeEvents, ev.Type) }, NodeAdded, NodeRemoved)
	bus.Subscribe(func(ev Event) { all = append(all, ev.Type) })

	bus.Publish(Event{Type: NodeAdded})
	bus.Publish(Event{Type: EdgeAdded})
	bus.Publish(Event{Type: NodeRemoved})

	assert.Equal(t, []Type{NodeAdded, NodeRemoved}, nodeEvents)
	assert.Equal(t, []Type{NodeAdded, EdgeAdded, NodeRemoved}, all)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)
	calls := 0
	unsubscribe := bus.Subscribe(func(Event) { calls++ })

	bus.Publish(Event{Type: GraphReset})
	unsubscribe()
	unsubscribe()
	bus.Publish(Event{Type: GraphReset})

	assert.Equal(t, 1, calls)
	assert.Zero(t, bus.HandlerCount())
}

func TestBus_PanickingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(nil)
	delivered := false
	bus.Subscribe(func(Event) { panic("boom") })
	bus.Subscribe(func(Event) { delivered = true })

	assert.NotPanics(t, func() { bus.Publish(Event{Type: GraphLoaded}) })
	assert.True(t, delivered)
}

func TestBus_HandlerMayPublish(t *testing.T) {
	bus := NewBus(nil)
	var seen []Type
	bus.Subscribe(func(ev Event) {
		seen = append(seen, ev.Type)
		if ev.Type == NodeRemoved {
			bus.Publish(Event{Type: SelectionChanged})
		}
	})

	bus.Publish(Event{Type: NodeRemoved})

	assert.Equal(t, []Type{NodeRemoved, SelectionChanged}, seen)
}

func TestBus_StampsTimestamp(t *testing.T) {
	bus := NewBus(nil)
	var got Event
	bus.Subscribe(func(ev Event) { got = ev })

	bus.Publish(Event{Type: TopicsChanged})

	assert.False(t, got.Timestamp.IsZero())
}
