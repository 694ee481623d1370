package entity

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftsync/driftsync/internal/core/events"
	"github.com/driftsync/driftsync/internal/core/geom"
	"github.com/driftsync/driftsync/internal/core/observability/log"
)

type statsComponent struct {
	owner  string
	fields map[string]any
	inited bool
	gone   bool
}

func (c *statsComponent) Type() string { return "stats" }

func (c *statsComponent) Serialize() map[string]any { return c.fields }

func (c *statsComponent) Init(*Entity) error {
	c.inited = true
	return nil
}

func (c *statsComponent) Destroy() { c.gone = true }

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(log.Nop(), events.NewBus())
	err := r.RegisterComponent("stats", func(ownerID string, data map[string]any) Component {
		return &statsComponent{owner: ownerID, fields: data}
	})
	require.NoError(t, err)
	return r
}

func TestComponents(t *testing.T) {
	t.Run("AddAndLookup", func(t *testing.T) {
		r := newTestRegistry(t)
		e := r.Spawn("bob", "player")

		c, err := e.AddComponent("stats", map[string]any{"hp": 10})
		require.NoError(t, err)
		require.True(t, e.HasComponent("stats"))
		require.True(t, c.(*statsComponent).inited)
		require.Equal(t, e.ID(), c.(*statsComponent).owner)

		got, ok := e.GetComponent("stats")
		require.True(t, ok)
		require.Same(t, c, got)
	})

	t.Run("DuplicateAddIsIdempotent", func(t *testing.T) {
		r := newTestRegistry(t)
		e := r.Spawn("bob", "player")

		first, err := e.AddComponent("stats", map[string]any{"hp": 10})
		require.NoError(t, err)
		second, err := e.AddComponent("stats", map[string]any{"hp": 99})
		require.NoError(t, err)
		require.Same(t, first, second)
		require.Len(t, e.ComponentTypes(), 1)
	})

	t.Run("UnknownTypeFailsHard", func(t *testing.T) {
		r := newTestRegistry(t)
		e := r.Spawn("bob", "player")
		_, err := e.AddComponent("inventory", nil)
		require.ErrorIs(t, err, ErrUnknownComponentType)
	})

	t.Run("RemoveAbsentIsNoop", func(t *testing.T) {
		r := newTestRegistry(t)
		e := r.Spawn("bob", "player")
		e.RemoveComponent("stats")
		require.False(t, e.HasComponent("stats"))
	})

	t.Run("RemoveCallsDestroyHook", func(t *testing.T) {
		r := newTestRegistry(t)
		e := r.Spawn("bob", "player")
		c, err := e.AddComponent("stats", nil)
		require.NoError(t, err)
		e.RemoveComponent("stats")
		require.True(t, c.(*statsComponent).gone)
		require.False(t, e.HasComponent("stats"))
	})

	t.Run("DuplicateFactoryRegistration", func(t *testing.T) {
		r := newTestRegistry(t)
		err := r.RegisterComponent("stats", func(string, map[string]any) Component { return nil })
		require.ErrorIs(t, err, ErrFactoryRegistered)
	})
}

func TestLifecycleEvents(t *testing.T) {
	bus := events.NewBus()
	r := NewRegistry(log.Nop(), bus)
	require.NoError(t, r.RegisterComponent("stats", func(ownerID string, data map[string]any) Component {
		return &statsComponent{owner: ownerID, fields: data}
	}))

	var seen []events.Type
	for _, typ := range []events.Type{events.EntitySpawned, events.ComponentAdded, events.ComponentRemoved, events.EntityDestroyed} {
		bus.Subscribe(typ, func(ev events.Event) { seen = append(seen, ev.Type) })
	}

	e := r.Spawn("bob", "player")
	_, err := e.AddComponent("stats", nil)
	require.NoError(t, err)
	e.Destroy(false)

	require.Equal(t, []events.Type{
		events.EntitySpawned,
		events.ComponentAdded,
		events.ComponentRemoved,
		events.EntityDestroyed,
	}, seen)
}

func TestDestroy(t *testing.T) {
	t.Run("RemovesEverythingAndDetaches", func(t *testing.T) {
		r := newTestRegistry(t)
		e := r.Spawn("bob", "player")
		_, err := e.AddComponent("stats", nil)
		require.NoError(t, err)

		e.Destroy(false)
		require.False(t, e.Active())
		require.False(t, e.HasComponent("stats"))
		_, ok := r.Get(e.ID())
		require.False(t, ok)
		require.Empty(t, r.DrainRemovals())
	})

	t.Run("SecondDestroyIsNoop", func(t *testing.T) {
		r := newTestRegistry(t)
		e := r.Spawn("bob", "player")
		e.Destroy(true)
		e.Destroy(true)
		require.Equal(t, []string{e.ID()}, r.DrainRemovals())
	})

	t.Run("LocalDestroyQueuesRemovalNotice", func(t *testing.T) {
		r := newTestRegistry(t)
		e := r.Spawn("bob", "player")
		e.Destroy(true)
		require.Equal(t, []string{e.ID()}, r.DrainRemovals())
		require.Empty(t, r.DrainRemovals())
	})

	t.Run("AddComponentAfterDestroyFails", func(t *testing.T) {
		r := newTestRegistry(t)
		e := r.Spawn("bob", "player")
		e.Destroy(false)
		_, err := e.AddComponent("stats", nil)
		require.ErrorIs(t, err, ErrEntityDestroyed)
	})
}

type recordingBody struct {
	position geom.Vector3
	rotation geom.Quaternion
	scale    geom.Vector3
	syncs    int
}

func (b *recordingBody) SyncTransform(p geom.Vector3, r geom.Quaternion, s geom.Vector3) {
	b.position, b.rotation, b.scale = p, r, s
	b.syncs++
}

func TestTransform(t *testing.T) {
	t.Run("SettersSyncPhysicsBodyInSameCall", func(t *testing.T) {
		r := newTestRegistry(t)
		e := r.Spawn("bob", "player")

		body := &recordingBody{}
		e.AttachBody(body)
		require.Equal(t, 1, body.syncs)

		e.SetPosition(geom.Vector3{X: 1, Y: 2, Z: 3})
		require.Equal(t, geom.Vector3{X: 1, Y: 2, Z: 3}, body.position)

		e.SetScale(geom.Vector3{X: 2, Y: 2, Z: 2})
		require.Equal(t, geom.Vector3{X: 2, Y: 2, Z: 2}, body.scale)
		require.Equal(t, 3, body.syncs)
	})

	t.Run("FlagBits", func(t *testing.T) {
		r := newTestRegistry(t)
		e := r.Spawn("bob", "player")

		e.SetFlag(0x01, true)
		e.SetFlag(0x04, true)
		require.Equal(t, uint8(0x05), e.Flags())
		e.SetFlag(0x01, false)
		require.Equal(t, uint8(0x04), e.Flags())
	})
}

func TestSerialize(t *testing.T) {
	r := newTestRegistry(t)
	e := r.Spawn("bob", "player")
	e.SetData("guild", "north")
	e.SetPosition(geom.Vector3{Y: 43.869})
	_, err := e.AddComponent("stats", map[string]any{"hp": 10})
	require.NoError(t, err)

	out := e.Serialize()
	require.Equal(t, e.ID(), out["id"])
	require.Equal(t, "bob", out["name"])
	require.Equal(t, "player", out["type"])
	require.Equal(t, "north", out["guild"])
	require.Equal(t, geom.Vector3{Y: 43.869}, out["position"])

	components, ok := out["components"].(map[string]map[string]any)
	require.True(t, ok)
	require.Equal(t, 10, components["stats"]["hp"])
}
