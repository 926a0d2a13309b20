package container

import (
	"fmt"
	"reflect"

	"github.com/samber/do"

	"github.com/01fortes/goioc/pkg/lifetime"
)

// Register maps serviceType to impl. Each build allocates impl (a struct or a
// pointer to one) and fills its `inject` and `param` fields.
func (c *Core) Register(serviceType, impl reflect.Type, opts ...Option) error {
	if serviceType == nil || impl == nil {
		return InvalidArgumentError("service and implementation types cannot be nil")
	}
	base := impl
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() != reflect.Struct {
		return InvalidArgumentError("implementation %s must be a struct or a pointer to one", impl)
	}
	if !impl.AssignableTo(serviceType) {
		return ComponentTypeError(typeKey(impl), serviceType.String(), impl.String())
	}

	o := newOptions(opts)
	key := o.key
	if key == "" {
		key = typeKey(impl)
	}
	return c.add(&component{
		key:        key,
		service:    serviceType,
		impl:       impl,
		kind:       typeRegistration,
		lifetime:   o.lifetime,
		dependsOn:  o.dependsOn,
		parameters: o.parameters,
	})
}

// RegisterFactory maps serviceType to factory
func (c *Core) RegisterFactory(serviceType reflect.Type, factory Factory, opts ...Option) error {
	if serviceType == nil {
		return InvalidArgumentError("service type cannot be nil")
	}
	if factory == nil {
		return InvalidArgumentError("factory for %s cannot be nil", serviceType)
	}

	o := newOptions(opts)
	key := o.key
	if key == "" {
		key = typeKey(serviceType)
	}
	return c.add(&component{
		key:      key,
		service:  serviceType,
		kind:     factoryRegistration,
		lifetime: o.lifetime,
		factory:  factory,
	})
}

// RegisterInstance maps serviceType to an existing value. Instances are always
// shared; a lifetime option is ignored.
func (c *Core) RegisterInstance(serviceType reflect.Type, instance any, opts ...Option) error {
	if serviceType == nil {
		return InvalidArgumentError("service type cannot be nil")
	}
	if isNil(instance) {
		return InvalidArgumentError("instance for %s cannot be nil", serviceType)
	}
	if !reflect.TypeOf(instance).AssignableTo(serviceType) {
		return ComponentTypeError(typeKey(serviceType), serviceType.String(), fmt.Sprintf("%T", instance))
	}

	o := newOptions(opts)
	key := o.key
	if key == "" {
		key = typeKey(serviceType)
	}
	return c.add(&component{
		key:      key,
		service:  serviceType,
		impl:     reflect.TypeOf(instance),
		kind:     instanceRegistration,
		lifetime: lifetime.Singleton{},
		instance: instance,
	})
}

// add records comp in the catalog and provides it to the injector
func (c *Core) add(comp *component) error {
	return c.invokeRead("register", func() error {
		manager, err := lifetime.NewManager(comp.lifetime, c.logger)
		if err != nil {
			return ConfigurationError(fmt.Sprintf("invalid lifetime for component '%s'", comp.key), err)
		}
		comp.manager = manager

		if err := c.catalog.add(comp); err != nil {
			return err
		}
		if err := c.provide(comp); err != nil {
			c.catalog.remove(comp.key)
			return err
		}

		c.metrics.RecordRegistration(comp.key, comp.service.String(), comp.lifetimeName())
		return nil
	})
}

// provide maps the component lifetime onto the injector: singletons are lazy
// services, instances and lifetime managers are values. The injector caches
// every service it builds, so a transient only gets a placeholder value and
// is built by instance on each resolve.
func (c *Core) provide(comp *component) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = InvalidOperationError("register", fmt.Errorf("component '%s': %v", comp.key, r))
		}
	}()

	switch {
	case comp.kind == instanceRegistration:
		do.ProvideNamedValue[any](c.injector, comp.key, comp.instance)
	case comp.manager != nil:
		do.ProvideNamedValue[any](c.injector, comp.key, comp.manager)
	case comp.lifetime.Kind() == lifetime.KindTransient:
		do.ProvideNamedValue[any](c.injector, comp.key, transientService{key: comp.key})
	default:
		do.ProvideNamed[any](c.injector, comp.key, c.provider(comp))
	}
	return nil
}

// Remove drops the components implemented by t. When there are none it drops
// the default component serving t, and otherwise does nothing.
func (c *Core) Remove(t reflect.Type) error {
	if t == nil {
		return InvalidArgumentError("type cannot be nil")
	}
	return c.invokeWrite("remove", func() error {
		comps := c.catalog.implementedBy(t)
		if len(comps) == 0 {
			if comp, ok := c.catalog.defaultFor(t); ok {
				comps = []*component{comp}
			}
		}
		for _, comp := range comps {
			if err := c.removeComponent(comp); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveNamed drops the component registered under key
func (c *Core) RemoveNamed(key string) error {
	return c.invokeWrite("remove", func() error {
		comp, ok := c.catalog.get(key)
		if !ok {
			return ComponentNotFoundError(key)
		}
		return c.removeComponent(comp)
	})
}

// removeComponent shuts the service down in the injector, which deletes from
// its service map without locking. Callers hold the write lock.
func (c *Core) removeComponent(comp *component) error {
	if _, ok := c.catalog.remove(comp.key); !ok {
		return nil
	}
	c.metrics.RecordRemoval(comp.key)

	if err := do.ShutdownNamed(c.injector, comp.key); err != nil {
		return err
	}
	if comp.manager != nil {
		if err := comp.manager.Shutdown(); err != nil {
			c.logger.Warn("Failed to shut down lifetime manager", "component", comp.key, "error", err)
		}
	}
	c.logger.Info("Component removed", "container", c.Name(), "component", comp.key)
	return nil
}

// transientService keeps the key of a transient component listed in the injector
type transientService struct {
	key string
}

// IsRegistered reports whether any component serves serviceType
func (c *Core) IsRegistered(serviceType reflect.Type) bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.rootView().IsRegistered(serviceType)
}

// IsRegisteredNamed reports whether the component under key serves serviceType
func (c *Core) IsRegisteredNamed(serviceType reflect.Type, key string) bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.rootView().IsRegisteredNamed(serviceType, key)
}

// TypeOf returns the reflect.Type of T, interfaces included
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Register maps TService to TImpl
func Register[TService, TImpl any](r Registrar, opts ...Option) error {
	return r.Register(TypeOf[TService](), TypeOf[TImpl](), opts...)
}

// RegisterFactory maps T to a typed factory
func RegisterFactory[T any](r Registrar, factory func(Resolver) (T, error), opts ...Option) error {
	if factory == nil {
		return r.RegisterFactory(TypeOf[T](), nil, opts...)
	}
	return r.RegisterFactory(TypeOf[T](), func(res Resolver) (any, error) {
		return factory(res)
	}, opts...)
}

// RegisterInstance maps T to instance
func RegisterInstance[T any](r Registrar, instance T, opts ...Option) error {
	return r.RegisterInstance(TypeOf[T](), instance, opts...)
}

// Remove drops the components implemented by or serving T
func Remove[T any](c *Core) error {
	return c.Remove(TypeOf[T]())
}

// IsRegistered reports whether any component serves T
func IsRegistered[T any](r Resolver) bool {
	return r.IsRegistered(TypeOf[T]())
}

// IsRegisteredNamed reports whether the component under key serves T
func IsRegisteredNamed[T any](r Resolver, key string) bool {
	return r.IsRegisteredNamed(TypeOf[T](), key)
}
