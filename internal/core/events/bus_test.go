package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBus(t *testing.T) {
	t.Run("DeliversToMatchingTypeOnly", func(t *testing.T) {
		bus := NewBus()

		var spawned, destroyed int
		bus.Subscribe(EntitySpawned, func(Event) { spawned++ })
		bus.Subscribe(EntityDestroyed, func(Event) { destroyed++ })

		bus.Publish(Event{Type: EntitySpawned, EntityID: "e1"})
		bus.Publish(Event{Type: EntitySpawned, EntityID: "e2"})
		require.Equal(t, 2, spawned)
		require.Equal(t, 0, destroyed)
	})

	t.Run("MultipleHandlersPerType", func(t *testing.T) {
		bus := NewBus()

		var a, b int
		bus.Subscribe(ComponentAdded, func(Event) { a++ })
		bus.Subscribe(ComponentAdded, func(Event) { b++ })

		bus.Publish(Event{Type: ComponentAdded, EntityID: "e1", Component: "stats"})
		require.Equal(t, 1, a)
		require.Equal(t, 1, b)
	})

	t.Run("PublishWithoutSubscribersIsNoop", func(t *testing.T) {
		bus := NewBus()
		bus.Publish(Event{Type: EntityDestroyed, EntityID: "e1"})
	})

	t.Run("TimestampIsFilledWhenAbsent", func(t *testing.T) {
		bus := NewBus()
		var got Event
		bus.Subscribe(EntitySpawned, func(ev Event) { got = ev })
		bus.Publish(Event{Type: EntitySpawned, EntityID: "e1"})
		require.False(t, got.Timestamp.IsZero())
	})

	t.Run("CancelStopsDelivery", func(t *testing.T) {
		bus := NewBus()

		var calls int
		sub := bus.Subscribe(EntitySpawned, func(Event) { calls++ })
		require.NotEmpty(t, sub.ID())

		bus.Publish(Event{Type: EntitySpawned})
		sub.Cancel()
		sub.Cancel()
		bus.Publish(Event{Type: EntitySpawned})
		require.Equal(t, 1, calls)
	})
}
