package entity

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/driftsync/driftsync/internal/core/events"
	"github.com/driftsync/driftsync/internal/core/geom"
	"github.com/driftsync/driftsync/internal/core/observability/log"
)

// Registry is the arena owning every live entity of one world plus the
// component factories they are built from. The world owns the registry;
// entities address each other through ids resolved here.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	entities  map[string]*Entity
	order     []string

	// removals queued by local destroys, drained by the replication
	// system at commit time.
	removals []string

	bus    *events.Bus
	logger log.Log
}

// NewRegistry creates an empty registry publishing lifecycle events on bus.
func NewRegistry(logger log.Log, bus *events.Bus) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		entities:  make(map[string]*Entity),
		bus:       bus,
		logger:    logger.With(log.String("module", "entity")),
	}
}

// RegisterComponent installs the factory for a component type name.
// Registering a name twice is a configuration error.
func (r *Registry) RegisterComponent(typ string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[typ]; ok {
		return fmt.Errorf("%w: %q", ErrFactoryRegistered, typ)
	}
	r.factories[typ] = factory
	return nil
}

// Spawn creates a live entity with a fresh id.
func (r *Registry) Spawn(name, typ string) *Entity {
	e, _ := r.SpawnWithID(uuid.New().String(), name, typ)
	return e
}

// SpawnWithID creates a live entity under a caller-chosen id. The replica
// side uses it to mirror authority ids. Fails if the id is taken.
func (r *Registry) SpawnWithID(id, name, typ string) (*Entity, error) {
	r.mu.Lock()
	if _, ok := r.entities[id]; ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrEntityExists, id)
	}

	e := &Entity{
		id:         id,
		name:       name,
		typ:        typ,
		registry:   r,
		rotation:   geom.IdentityQ,
		scale:      geom.One,
		data:       make(map[string]any),
		components: make(map[string]Component),
	}
	r.entities[id] = e
	r.order = append(r.order, id)
	r.mu.Unlock()

	r.bus.Publish(events.Event{Type: events.EntitySpawned, EntityID: id})
	return e, nil
}

// Get resolves an entity by id.
func (r *Registry) Get(id string) (*Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[id]
	return e, ok
}

// ForEach visits every live entity in spawn order. The visitor must not
// spawn or destroy entities; queue such work for after the walk.
func (r *Registry) ForEach(visit func(*Entity)) {
	r.mu.RLock()
	ordered := make([]*Entity, 0, len(r.entities))
	for _, id := range r.order {
		if e, ok := r.entities[id]; ok {
			ordered = append(ordered, e)
		}
	}
	r.mu.RUnlock()

	for _, e := range ordered {
		visit(e)
	}
}

// Len returns the number of live entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// DrainRemovals returns and clears the ids destroyed locally since the
// last drain.
func (r *Registry) DrainRemovals() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.removals
	r.removals = nil
	return out
}

// Clear destroys every live entity without queueing removal notices.
// Used by world teardown.
func (r *Registry) Clear() {
	r.mu.RLock()
	all := make([]*Entity, 0, len(r.entities))
	for _, e := range r.entities {
		all = append(all, e)
	}
	r.mu.RUnlock()

	for _, e := range all {
		e.Destroy(false)
	}
}

func (r *Registry) factory(typ string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[typ]
	return f, ok
}

func (r *Registry) detach(id string, local bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entities, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if local {
		r.removals = append(r.removals, id)
	}
}

func logEntity(id string) log.Field   { return log.String("entity", id) }
func logComponent(t string) log.Field { return log.String("component", t) }
