// Package entity implements the simulation's ownership model: a registry
// of entities addressed by opaque string ids, each entity exclusively
// owning a set of typed components. Worlds mutate entities inside the
// fixed-update phase; the replication system observes the results.
package entity

import (
	"fmt"

	"github.com/driftsync/driftsync/internal/core/events"
	"github.com/driftsync/driftsync/internal/core/geom"
)

// PhysicsBody is the visual-to-physics bridge. When attached, transform
// setters push the new transform into the body in the same call, so there
// is no staleness window between the two representations.
type PhysicsBody interface {
	SyncTransform(position geom.Vector3, rotation geom.Quaternion, scale geom.Vector3)
}

// Entity is one simulated object: a transform, a velocity, a byte of
// state flags and a map of components keyed by type name. Entities belong
// to exactly one registry and are only mutated on the world goroutine.
type Entity struct {
	id   string
	name string
	typ  string

	registry *Registry

	position geom.Vector3
	rotation geom.Quaternion
	scale    geom.Vector3
	velocity geom.Vector3
	flags    uint8

	data       map[string]any
	components map[string]Component
	body       PhysicsBody

	destroyed bool
}

func (e *Entity) ID() string   { return e.id }
func (e *Entity) Name() string { return e.name }
func (e *Entity) Type() string { return e.typ }

// Active reports whether the entity is still alive in its registry.
func (e *Entity) Active() bool { return !e.destroyed }

func (e *Entity) Position() geom.Vector3    { return e.position }
func (e *Entity) Rotation() geom.Quaternion { return e.rotation }
func (e *Entity) Scale() geom.Vector3       { return e.scale }
func (e *Entity) Velocity() geom.Vector3    { return e.velocity }
func (e *Entity) Flags() uint8              { return e.flags }

// SetPosition moves the entity and synchronizes the physics body, if any.
func (e *Entity) SetPosition(p geom.Vector3) {
	e.position = p
	e.syncBody()
}

// SetRotation rotates the entity and synchronizes the physics body, if any.
func (e *Entity) SetRotation(q geom.Quaternion) {
	e.rotation = q
	e.syncBody()
}

// SetScale rescales the entity and synchronizes the physics body, if any.
func (e *Entity) SetScale(s geom.Vector3) {
	e.scale = s
	e.syncBody()
}

func (e *Entity) SetVelocity(v geom.Vector3) { e.velocity = v }

// SetFlags replaces the whole state byte.
func (e *Entity) SetFlags(flags uint8) { e.flags = flags }

// SetFlag sets or clears a single bit of the state byte.
func (e *Entity) SetFlag(bit uint8, on bool) {
	if on {
		e.flags |= bit
	} else {
		e.flags &^= bit
	}
}

// AttachBody connects a physics body and pushes the current transform
// into it immediately.
func (e *Entity) AttachBody(body PhysicsBody) {
	e.body = body
	e.syncBody()
}

func (e *Entity) syncBody() {
	if e.body != nil {
		e.body.SyncTransform(e.position, e.rotation, e.scale)
	}
}

// SetData stores an arbitrary field on the entity's data bag.
func (e *Entity) SetData(key string, value any) { e.data[key] = value }

// Data returns a field from the entity's data bag.
func (e *Entity) Data(key string) (any, bool) {
	v, ok := e.data[key]
	return v, ok
}

// AddComponent constructs and attaches a component of the given type.
// Attaching a type the entity already has is a soft conflict: the existing
// instance is returned and a warning is logged, nothing else changes.
// An unregistered type is a programmer error and fails hard.
func (e *Entity) AddComponent(typ string, data map[string]any) (Component, error) {
	if e.destroyed {
		return nil, ErrEntityDestroyed
	}
	if existing, ok := e.components[typ]; ok {
		e.registry.logger.Warn("duplicate component add ignored",
			logEntity(e.id), logComponent(typ))
		return existing, nil
	}

	factory, ok := e.registry.factory(typ)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponentType, typ)
	}

	component := factory(e.id, data)
	if init, ok := component.(Initializer); ok {
		if err := init.Init(e); err != nil {
			return nil, fmt.Errorf("init component %q: %w", typ, err)
		}
	}
	e.components[typ] = component

	e.registry.bus.Publish(events.Event{
		Type:      events.ComponentAdded,
		EntityID:  e.id,
		Component: typ,
	})
	return component, nil
}

// RemoveComponent detaches a component by type name. Removing an absent
// type is a no-op.
func (e *Entity) RemoveComponent(typ string) {
	component, ok := e.components[typ]
	if !ok {
		return
	}
	if fin, ok := component.(Finalizer); ok {
		fin.Destroy()
	}
	delete(e.components, typ)

	e.registry.bus.Publish(events.Event{
		Type:      events.ComponentRemoved,
		EntityID:  e.id,
		Component: typ,
	})
}

// GetComponent looks up a component by type name. Never fails.
func (e *Entity) GetComponent(typ string) (Component, bool) {
	c, ok := e.components[typ]
	return c, ok
}

// HasComponent reports whether a component of the type is attached.
func (e *Entity) HasComponent(typ string) bool {
	_, ok := e.components[typ]
	return ok
}

// ComponentTypes returns the attached type names, unordered.
func (e *Entity) ComponentTypes() []string {
	types := make([]string, 0, len(e.components))
	for typ := range e.components {
		types = append(types, typ)
	}
	return types
}

// Serialize produces a plain map with id/name/type, every data bag field,
// the transform and per-component snapshots. Persistence and full network
// snapshots build on this payload.
func (e *Entity) Serialize() map[string]any {
	out := make(map[string]any, len(e.data)+8)
	for k, v := range e.data {
		out[k] = v
	}
	out["id"] = e.id
	out["name"] = e.name
	out["type"] = e.typ
	out["position"] = e.position
	out["rotation"] = e.rotation
	out["scale"] = e.scale
	out["velocity"] = e.velocity
	out["flags"] = e.flags

	if len(e.components) > 0 {
		components := make(map[string]map[string]any, len(e.components))
		for typ, c := range e.components {
			components[typ] = c.Serialize()
		}
		out["components"] = components
	}
	return out
}

// Destroy removes every component, detaches the entity from its registry
// and publishes a destruction notification. Idempotent. When local is
// true a removal notice is queued for the replication system so replicas
// drop the entity too.
func (e *Entity) Destroy(local bool) {
	if e.destroyed {
		return
	}
	e.destroyed = true

	for typ := range e.components {
		e.RemoveComponent(typ)
	}
	e.registry.detach(e.id, local)

	e.registry.bus.Publish(events.Event{
		Type:     events.EntityDestroyed,
		EntityID: e.id,
	})
}
