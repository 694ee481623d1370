package world

import (
	"sync"

	"github.com/driftsync/driftsync/internal/core/entity"
	"github.com/driftsync/driftsync/internal/core/events"
	"github.com/driftsync/driftsync/internal/core/observability/log"
)

// Context is the explicit dependency bundle handed to every system at
// construction time, replacing process-wide singletons. Its lifecycle is
// tied to the owning world: built in New, torn down in Destroy.
type Context struct {
	Logger   log.Log
	Entities *entity.Registry
	Events   *events.Bus

	mu        sync.RWMutex
	resources map[string]any
}

// Resource returns a named shared resource, if set.
func (c *Context) Resource(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.resources[name]
	return v, ok
}

// SetResource stores a named shared resource for other systems to pick up.
func (c *Context) SetResource(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resources[name] = value
}

// RemoveResource drops a named shared resource.
func (c *Context) RemoveResource(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.resources, name)
}
