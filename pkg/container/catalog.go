package container

import (
	"log/slog"
	"reflect"
	"slices"
	"sync"
)

// catalog indexes the components of one container by key, service type and
// implementation type. The first component registered for a service is its default.
type catalog struct {
	components map[string]*component
	services   map[reflect.Type][]string
	order      []string
	mu         sync.RWMutex
	logger     *slog.Logger
}

func newCatalog(logger *slog.Logger) *catalog {
	return &catalog{
		components: make(map[string]*component),
		services:   make(map[reflect.Type][]string),
		logger:     logger,
	}
}

func (c *catalog) add(comp *component) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.components[comp.key]; exists {
		return ComponentAlreadyRegisteredError(comp.key)
	}

	c.logger.Debug("Registering component",
		"name", comp.key,
		"service", comp.service.String(),
		"lifetime", comp.lifetimeName())
	c.components[comp.key] = comp
	c.services[comp.service] = append(c.services[comp.service], comp.key)
	c.order = append(c.order, comp.key)
	return nil
}

func (c *catalog) get(key string) (*component, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	comp, exists := c.components[key]
	return comp, exists
}

func (c *catalog) defaultFor(t reflect.Type) (*component, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := c.services[t]
	if len(keys) == 0 {
		return nil, false
	}
	return c.components[keys[0]], true
}

func (c *catalog) allFor(t reflect.Type) []*component {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := c.services[t]
	result := make([]*component, 0, len(keys))
	for _, key := range keys {
		result = append(result, c.components[key])
	}
	return result
}

// implementedBy returns the components whose implementation is t or *t. For
// instances that is the dynamic type of the registered value.
func (c *catalog) implementedBy(t reflect.Type) []*component {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []*component
	for _, key := range c.order {
		comp := c.components[key]
		if comp.impl != nil && (comp.impl == t || comp.impl == reflect.PointerTo(t)) {
			result = append(result, comp)
		}
	}
	return result
}

func (c *catalog) remove(key string) (*component, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	comp, exists := c.components[key]
	if !exists {
		return nil, false
	}

	delete(c.components, key)
	c.order = slices.DeleteFunc(c.order, func(k string) bool { return k == key })
	keys := slices.DeleteFunc(c.services[comp.service], func(k string) bool { return k == key })
	if len(keys) == 0 {
		delete(c.services, comp.service)
	} else {
		c.services[comp.service] = keys
	}

	c.logger.Debug("Removed component", "name", key)
	return comp, true
}

// all returns the components in registration order
func (c *catalog) all() []*component {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*component, 0, len(c.order))
	for _, key := range c.order {
		result = append(result, c.components[key])
	}
	return result
}

func (c *catalog) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.components)
}
