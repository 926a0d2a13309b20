package container

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/samber/do"
)

// Core wraps a samber/do injector. Every call into the injector runs under
// lock: registrations and resolves share the read side, Reset and Configure
// take the write side.
type Core struct {
	lock        sync.RWMutex
	injector    *do.Injector
	catalog     *catalog
	initialised atomic.Bool
	closed      bool

	childrenLock sync.RWMutex
	name         string
	parent       *Core
	children     map[string]*Core

	metrics *defaultMetricsCollector
	logger  *slog.Logger
}

// New creates a container
func New(cfg *Config) *Core {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Name
	if name == "" {
		name = DefaultConfig().Name
	}

	c := &Core{
		name:     name,
		children: make(map[string]*Core),
		metrics:  newMetricsCollector(cfg.EnableMetrics, cfg.MetricsRegisterer),
		logger:   logger,
	}
	c.injector = c.newInjector()
	c.catalog = newCatalog(logger)
	return c
}

func (c *Core) newInjector() *do.Injector {
	return do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			c.logger.Debug(fmt.Sprintf(format, args...), "container", c.Name())
		},
		HookAfterShutdown: func(_ *do.Injector, service string) {
			c.logger.Debug("Component shut down", "container", c.Name(), "component", service)
		},
	})
}

// Name returns the container name
func (c *Core) Name() string {
	c.childrenLock.RLock()
	defer c.childrenLock.RUnlock()
	return c.name
}

// SetName renames the container
func (c *Core) SetName(name string) error {
	if name == "" {
		return InvalidArgumentError("container name cannot be empty")
	}
	c.childrenLock.Lock()
	defer c.childrenLock.Unlock()
	c.name = name
	return nil
}

// Parent returns the parent container, nil for a root
func (c *Core) Parent() *Core {
	c.childrenLock.RLock()
	defer c.childrenLock.RUnlock()
	return c.parent
}

// SetParent links the container to a parent consulted when a lookup misses
func (c *Core) SetParent(parent *Core) error {
	for p := parent; p != nil; p = p.Parent() {
		if p == c {
			return InvalidArgumentError("container '%s' cannot be its own ancestor", c.Name())
		}
	}
	c.childrenLock.Lock()
	defer c.childrenLock.Unlock()
	c.parent = parent
	return nil
}

// AddChildContainer stores child under key and links its parent when unset
func (c *Core) AddChildContainer(key string, child *Core) error {
	if key == "" {
		return InvalidArgumentError("child container key cannot be empty")
	}
	if child == nil {
		return InvalidArgumentError("child container '%s' is nil", key)
	}
	if child == c {
		return InvalidArgumentError("container '%s' cannot be its own child", key)
	}

	c.childrenLock.Lock()
	if _, exists := c.children[key]; exists {
		c.childrenLock.Unlock()
		return ChildContainerExistsError(key)
	}
	c.children[key] = child
	c.childrenLock.Unlock()

	if child.Parent() == nil {
		if err := child.SetParent(c); err != nil {
			c.childrenLock.Lock()
			delete(c.children, key)
			c.childrenLock.Unlock()
			return err
		}
	}

	c.logger.Info("Child container added", "container", c.Name(), "child", key)
	return nil
}

// RemoveChildContainer drops the child stored under key
func (c *Core) RemoveChildContainer(key string) error {
	c.childrenLock.Lock()
	defer c.childrenLock.Unlock()

	if _, exists := c.children[key]; !exists {
		return ChildContainerNotFoundError(key)
	}
	delete(c.children, key)
	c.logger.Info("Child container removed", "container", c.name, "child", key)
	return nil
}

// ChildContainer returns the child stored under key
func (c *Core) ChildContainer(key string) (*Core, error) {
	c.childrenLock.RLock()
	defer c.childrenLock.RUnlock()

	child, exists := c.children[key]
	if !exists {
		return nil, ChildContainerNotFoundError(key)
	}
	return child, nil
}

// ChildContainerKeys lists the keys of all children
func (c *Core) ChildContainerKeys() []string {
	c.childrenLock.RLock()
	defer c.childrenLock.RUnlock()

	keys := make([]string, 0, len(c.children))
	for key := range c.children {
		keys = append(keys, key)
	}
	return keys
}

// IsInitialised reports whether Initialize or InitializeFrom has run since the last reset
func (c *Core) IsInitialised() bool {
	return c.initialised.Load()
}

// Initialize marks the container ready without loading registrations
func (c *Core) Initialize() {
	if c.initialised.CompareAndSwap(false, true) {
		c.logger.Debug("Container initialised", "container", c.Name())
	}
}

// Configure runs installers against the wrapped injector under the write lock.
// Services they provide are reachable by key through ByName.
func (c *Core) Configure(installers ...Installer) error {
	return c.invokeWrite("configure", func() error {
		for _, installer := range installers {
			if installer == nil {
				return InvalidArgumentError("nil installer")
			}
			if err := installer.Install(c.injector); err != nil {
				return err
			}
		}
		return nil
	})
}

// Components lists the registered components in registration order
func (c *Core) Components() []ComponentInfo {
	c.lock.RLock()
	defer c.lock.RUnlock()

	comps := c.catalog.all()
	result := make([]ComponentInfo, 0, len(comps))
	for _, comp := range comps {
		result = append(result, comp.info())
	}
	return result
}

// Metrics returns per-component resolve metrics, nil when metrics are disabled
func (c *Core) Metrics() map[string]*ComponentMetrics {
	return c.metrics.GetMetrics()
}

// invokeRead runs fn under the read lock. Failures are logged at error level.
func (c *Core) invokeRead(op string, fn func() error) error {
	c.lock.RLock()
	defer c.lock.RUnlock()

	err := c.guard(op, fn)
	if err != nil {
		c.logger.Error("Container operation failed", "container", c.Name(), "operation", op, "error", err)
	}
	return err
}

// tryInvokeRead is invokeRead logging failures at warn level
func (c *Core) tryInvokeRead(op string, fn func() error) error {
	c.lock.RLock()
	defer c.lock.RUnlock()

	err := c.guard(op, fn)
	if err != nil {
		c.logger.Warn("Container operation failed", "container", c.Name(), "operation", op, "error", err)
	}
	return err
}

func (c *Core) invokeWrite(op string, fn func() error) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	err := c.guard(op, fn)
	if err != nil {
		c.logger.Error("Container operation failed", "container", c.Name(), "operation", op, "error", err)
	}
	return err
}

// guard turns panics and foreign errors into INVALID_OPERATION container errors.
// Callers hold the lock.
func (c *Core) guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("Recovered panic", "operation", op, "stack", string(debug.Stack()))
			err = InvalidOperationError(op, fmt.Errorf("panic: %v", r))
		}
	}()

	if c.closed {
		return ErrContainerClosed
	}
	if err := fn(); err != nil {
		var ce *ContainerError
		if errors.As(err, &ce) {
			return err
		}
		return InvalidOperationError(op, err)
	}
	return nil
}
