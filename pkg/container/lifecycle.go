package container

import (
	"errors"
	"fmt"

	"github.com/samber/do"
)

// Reset discards every registration and child container and starts over with
// a fresh injector. The container is no longer initialised afterwards.
func (c *Core) Reset() {
	c.lock.Lock()
	old, comps := c.swap()
	c.closed = false
	c.lock.Unlock()

	c.childrenLock.Lock()
	c.children = make(map[string]*Core)
	c.childrenLock.Unlock()

	if err := shutdown(old, comps); err != nil {
		c.logger.Warn("Errors while shutting down the previous injector", "container", c.Name(), "error", err)
	}
	c.logger.Info("Container reset", "container", c.Name())
}

// swap installs a fresh injector and catalog. Callers hold the write lock.
func (c *Core) swap() (*do.Injector, []*component) {
	old := c.injector
	comps := c.catalog.all()

	c.injector = c.newInjector()
	c.catalog = newCatalog(c.logger)
	c.initialised.Store(false)
	c.metrics.reset()
	return old, comps
}

// HealthCheck runs the health checks of every built service
func (c *Core) HealthCheck() map[string]error {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.injector.HealthCheck()
}

// Close shuts the injector and every lifetime manager down. Later calls
// return ErrContainerClosed until Reset.
func (c *Core) Close() error {
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return nil
	}
	c.closed = true
	injector := c.injector
	comps := c.catalog.all()
	c.lock.Unlock()

	err := shutdown(injector, comps)
	if err != nil {
		c.logger.Error("Container closed with errors", "container", c.Name(), "error", err)
		return InvalidOperationError("close", err)
	}
	c.logger.Info("Container closed", "container", c.Name())
	return nil
}

func shutdown(injector *do.Injector, comps []*component) error {
	var errs []error
	if err := injector.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	for _, comp := range comps {
		if comp.manager == nil {
			continue
		}
		if err := comp.manager.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", comp.key, err))
		}
	}
	return errors.Join(errs...)
}
