package container

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/samber/do"

	"github.com/01fortes/goioc/pkg/lifetime"
)

// view is one resolution in progress. It carries the chain of component keys
// being built so cycles are reported instead of deadlocking the injector, and
// it never takes the container lock, which the caller already holds.
type view struct {
	core *Core
	ctx  context.Context
	args map[string]any
	path []string
}

func (c *Core) rootView() *view {
	return &view{core: c, ctx: context.Background()}
}

// derive applies resolve options for a nested call. Arguments never leak to
// dependencies, the context does.
func (v *view) derive(opts []ResolveOption) (*view, string) {
	o := newResolveOptions(opts)
	ctx := v.ctx
	if o.ctx != nil {
		ctx = o.ctx
	}
	return &view{core: v.core, ctx: ctx, args: o.args, path: v.path}, o.key
}

func (v *view) enter(key string) (*view, error) {
	if slices.Contains(v.path, key) {
		return nil, CircularDependencyError(append(slices.Clone(v.path), key))
	}
	path := make([]string, len(v.path), len(v.path)+1)
	copy(path, v.path)
	return &view{core: v.core, ctx: v.ctx, args: v.args, path: append(path, key)}, nil
}

// options rebuilds resolve options for handing the lookup to another container
func (v *view) options(key string) []ResolveOption {
	opts := []ResolveOption{InContext(v.ctx)}
	if key != "" {
		opts = append(opts, ByName(key))
	}
	if v.args != nil {
		opts = append(opts, WithArguments(v.args))
	}
	return opts
}

func (v *view) Resolve(serviceType reflect.Type, opts ...ResolveOption) (any, error) {
	if serviceType == nil {
		return nil, InvalidArgumentError("service type cannot be nil")
	}
	next, key := v.derive(opts)
	return v.core.resolve(next, serviceType, key)
}

func (v *view) TryResolve(serviceType reflect.Type, opts ...ResolveOption) (any, bool) {
	instance, err := v.Resolve(serviceType, opts...)
	if err != nil {
		v.core.logger.Warn("Failed to resolve component", "service", typeName(serviceType), "error", err)
		return nil, false
	}
	return instance, true
}

func (v *view) ResolveAll(serviceType reflect.Type, opts ...ResolveOption) ([]any, error) {
	if serviceType == nil {
		return nil, InvalidArgumentError("service type cannot be nil")
	}
	next, _ := v.derive(opts)
	return v.core.resolveAll(next, serviceType)
}

func (v *view) BuildUp(target any, opts ...ResolveOption) error {
	next, _ := v.derive(opts)
	return v.core.buildUp(next, target)
}

// IsRegistered consults the parent on a miss, as resolve does
func (v *view) IsRegistered(serviceType reflect.Type) bool {
	if _, ok := v.core.catalog.defaultFor(serviceType); ok {
		return true
	}
	parent := v.core.Parent()
	return parent != nil && parent.IsRegistered(serviceType)
}

// IsRegisteredNamed consults the parent only when key is unknown here. A local
// component of another service shadows the parent one.
func (v *view) IsRegisteredNamed(serviceType reflect.Type, key string) bool {
	if comp, ok := v.core.catalog.get(key); ok {
		return comp.serves(serviceType)
	}
	parent := v.core.Parent()
	return parent != nil && parent.IsRegisteredNamed(serviceType, key)
}

// resolve finds the component for a lookup and produces an instance.
// Callers hold the read lock.
func (c *Core) resolve(v *view, serviceType reflect.Type, key string) (any, error) {
	c.Initialize()

	var (
		comp *component
		ok   bool
	)
	if key != "" {
		comp, ok = c.catalog.get(key)
		if ok && !comp.serves(serviceType) {
			return nil, ComponentTypeError(key, typeName(serviceType), comp.service.String())
		}
		if !ok && slices.Contains(c.injector.ListProvidedServices(), key) {
			return c.resolveInstalled(serviceType, key)
		}
	} else {
		comp, ok = c.catalog.defaultFor(serviceType)
	}

	if !ok {
		if parent := c.Parent(); parent != nil {
			return parent.Resolve(serviceType, v.options(key)...)
		}
		return nil, ComponentNotFoundError(describeLookup(serviceType, key))
	}
	return c.instance(v, comp)
}

// resolveInstalled fetches a service an Installer provided straight to the injector
func (c *Core) resolveInstalled(serviceType reflect.Type, key string) (any, error) {
	instance, err := do.InvokeNamed[any](c.injector, key)
	if err != nil {
		return nil, err
	}
	if instance == nil || !reflect.TypeOf(instance).AssignableTo(serviceType) {
		return nil, ComponentTypeError(key, typeName(serviceType), fmt.Sprintf("%T", instance))
	}
	return instance, nil
}

func (c *Core) resolveAll(v *view, serviceType reflect.Type) ([]any, error) {
	c.Initialize()

	comps := c.catalog.allFor(serviceType)
	result := make([]any, 0, len(comps))
	for _, comp := range comps {
		instance, err := c.instance(v, comp)
		if err != nil {
			return nil, err
		}
		result = append(result, instance)
	}
	return result, nil
}

// instance produces a value for comp according to its lifetime
func (c *Core) instance(v *view, comp *component) (instance any, err error) {
	next, err := v.enter(comp.key)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		c.metrics.RecordResolve(comp.key, comp.service.String(), time.Since(start), err)
	}()

	switch {
	case len(next.args) > 0:
		if comp.kind != typeRegistration {
			return nil, InvalidArgumentError("arguments given for %s registration '%s'", comp.kind, comp.key)
		}
		return c.build(next, comp)
	case comp.manager != nil:
		manager, invokeErr := do.InvokeNamed[any](c.injector, comp.key)
		if invokeErr != nil {
			return nil, invokeErr
		}
		return manager.(lifetime.Manager).Get(next.ctx, func() (any, error) {
			return c.build(next, comp)
		})
	case comp.kind == instanceRegistration:
		return do.InvokeNamed[any](c.injector, comp.key)
	case comp.lifetime.Kind() == lifetime.KindTransient:
		return c.build(next, comp)
	default:
		comp.invokeMu.Lock()
		defer comp.invokeMu.Unlock()
		comp.pending = next
		defer func() { comp.pending = nil }()
		return do.InvokeNamed[any](c.injector, comp.key)
	}
}

// provider adapts a component to the injector. It runs inside InvokeNamed,
// on the goroutine that set comp.pending.
func (c *Core) provider(comp *component) func(*do.Injector) (any, error) {
	return func(*do.Injector) (any, error) {
		v := comp.pending
		if v == nil {
			v = c.rootView()
		}
		return c.build(v, comp)
	}
}

// build creates a new instance of comp without consulting any cache
func (c *Core) build(v *view, comp *component) (any, error) {
	var (
		instance any
		err      error
	)
	switch comp.kind {
	case factoryRegistration:
		instance, err = comp.factory(v)
	case instanceRegistration:
		instance = comp.instance
	default:
		instance, err = c.construct(v, comp)
	}
	if err != nil {
		return nil, err
	}
	if isNil(instance) {
		return nil, ComponentTypeError(comp.key, comp.service.String(), "nil")
	}
	if !reflect.TypeOf(instance).AssignableTo(comp.service) {
		return nil, ComponentTypeError(comp.key, comp.service.String(), fmt.Sprintf("%T", instance))
	}
	return instance, nil
}

// construct allocates the implementation type and injects its fields
func (c *Core) construct(v *view, comp *component) (any, error) {
	base := comp.impl
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	target := reflect.New(base)

	params := make(map[string]any)
	if comp.parameters != nil {
		if err := comp.parameters(v, params); err != nil {
			return nil, fmt.Errorf("%s parameters: %w", comp.key, err)
		}
	}
	for name, value := range v.args {
		params[name] = value
	}

	// dependencies are resolved without the arguments of this component
	deps := &view{core: v.core, ctx: v.ctx, path: v.path}
	if err := c.inject(deps, target, comp.dependsOn, params); err != nil {
		return nil, fmt.Errorf("%s: %w", comp.key, err)
	}
	if initializer, ok := target.Interface().(Initializer); ok {
		if err := initializer.Init(); err != nil {
			return nil, fmt.Errorf("%s init: %w", comp.key, err)
		}
	}

	if comp.impl.Kind() == reflect.Pointer {
		return target.Interface(), nil
	}
	return target.Elem().Interface(), nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

func describeLookup(t reflect.Type, key string) string {
	if key == "" {
		return typeName(t)
	}
	return fmt.Sprintf("%s (%s)", key, typeName(t))
}
