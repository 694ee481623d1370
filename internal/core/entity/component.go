package entity

// Component is a typed bag of fields owned exclusively by one entity. A
// component never holds a pointer back to its owner, only the owner's id;
// the registry resolves it when needed.
type Component interface {
	// Type returns the component type name. An entity holds at most one
	// component per type name.
	Type() string
	// Serialize produces a plain key/value snapshot of the component,
	// consumed by Entity.Serialize for network and persistence payloads.
	Serialize() map[string]any
}

// Initializer is implemented by components that need a hook right after
// being attached to their entity.
type Initializer interface {
	Init(owner *Entity) error
}

// Finalizer is implemented by components that need a hook right before
// being detached.
type Finalizer interface {
	Destroy()
}

// Factory constructs a component for the owning entity id from a plain
// data bag. Registered once per type name with the registry.
type Factory func(ownerID string, data map[string]any) Component
