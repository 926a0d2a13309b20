package container

import (
	"fmt"
	"reflect"
)

// Resolve returns the default component for serviceType, or the one selected with ByName
func (c *Core) Resolve(serviceType reflect.Type, opts ...ResolveOption) (any, error) {
	if serviceType == nil {
		return nil, InvalidArgumentError("service type cannot be nil")
	}

	var instance any
	err := c.invokeRead("resolve", func() error {
		v, key := c.rootView().derive(opts)
		var err error
		instance, err = c.resolve(v, serviceType, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// TryResolve is Resolve logging failures at warn level and reporting them as false
func (c *Core) TryResolve(serviceType reflect.Type, opts ...ResolveOption) (any, bool) {
	if serviceType == nil {
		return nil, false
	}

	var instance any
	err := c.tryInvokeRead("resolve", func() error {
		v, key := c.rootView().derive(opts)
		var err error
		instance, err = c.resolve(v, serviceType, key)
		return err
	})
	return instance, err == nil
}

// ResolveAll returns every component serving serviceType in registration order
func (c *Core) ResolveAll(serviceType reflect.Type, opts ...ResolveOption) ([]any, error) {
	if serviceType == nil {
		return nil, InvalidArgumentError("service type cannot be nil")
	}

	var instances []any
	err := c.invokeRead("resolve all", func() error {
		v, _ := c.rootView().derive(opts)
		var err error
		instances, err = c.resolveAll(v, serviceType)
		return err
	})
	if err != nil {
		return nil, err
	}
	return instances, nil
}

// BuildUp injects the zero-valued `inject` and `param` fields of target.
// WithArguments supplies parameter values.
func (c *Core) BuildUp(target any, opts ...ResolveOption) error {
	return c.invokeRead("build up", func() error {
		v, _ := c.rootView().derive(opts)
		return c.buildUp(v, target)
	})
}

// Release hands a pooled instance back to its pool. Instances of other
// lifetimes are left alone.
func (c *Core) Release(instance any) error {
	if instance == nil {
		return nil
	}
	return c.invokeRead("release", func() error {
		for _, comp := range c.catalog.all() {
			if comp.manager != nil && comp.manager.Release(instance) {
				c.logger.Debug("Instance released", "component", comp.key)
				return nil
			}
		}
		c.logger.Debug("Release ignored, instance is not pooled", "type", fmt.Sprintf("%T", instance))
		return nil
	})
}

// Resolve returns the default component for T
func Resolve[T any](r Resolver, opts ...ResolveOption) (T, error) {
	var zero T
	instance, err := r.Resolve(TypeOf[T](), opts...)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, ComponentTypeError(TypeOf[T]().String(), TypeOf[T]().String(), fmt.Sprintf("%T", instance))
	}
	return typed, nil
}

// ResolveNamed returns the component registered under key as T
func ResolveNamed[T any](r Resolver, key string, opts ...ResolveOption) (T, error) {
	return Resolve[T](r, append(opts, ByName(key))...)
}

// MustResolve is Resolve panicking on failure
func MustResolve[T any](r Resolver, opts ...ResolveOption) T {
	instance, err := Resolve[T](r, opts...)
	if err != nil {
		panic(err)
	}
	return instance
}

// TryResolve returns the default component for T and whether it resolved
func TryResolve[T any](r Resolver, opts ...ResolveOption) (T, bool) {
	var zero T
	instance, ok := r.TryResolve(TypeOf[T](), opts...)
	if !ok {
		return zero, false
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// ResolveAll returns every component serving T
func ResolveAll[T any](r Resolver, opts ...ResolveOption) ([]T, error) {
	instances, err := r.ResolveAll(TypeOf[T](), opts...)
	if err != nil {
		return nil, err
	}
	result := make([]T, 0, len(instances))
	for _, instance := range instances {
		typed, ok := instance.(T)
		if !ok {
			return nil, ComponentTypeError(TypeOf[T]().String(), TypeOf[T]().String(), fmt.Sprintf("%T", instance))
		}
		result = append(result, typed)
	}
	return result, nil
}
