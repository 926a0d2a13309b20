package container

import "reflect"

// Resolver is the read side of the container. Factories receive one that
// continues the current resolution, so they can resolve their own dependencies.
type Resolver interface {
	// Resolve returns the default component serving serviceType, or the one named with ByName
	Resolve(serviceType reflect.Type, opts ...ResolveOption) (any, error)
	// TryResolve is Resolve reporting failure as false instead of an error
	TryResolve(serviceType reflect.Type, opts ...ResolveOption) (any, bool)
	// ResolveAll returns one instance of every component serving serviceType, in registration order
	ResolveAll(serviceType reflect.Type, opts ...ResolveOption) ([]any, error)
	// BuildUp injects the tagged fields of an existing struct pointer
	BuildUp(target any, opts ...ResolveOption) error
	IsRegistered(serviceType reflect.Type) bool
	IsRegisteredNamed(serviceType reflect.Type, key string) bool
}

// Registrar is the write side of the container
type Registrar interface {
	// Register maps serviceType to the implementation type impl
	Register(serviceType, impl reflect.Type, opts ...Option) error
	// RegisterFactory maps serviceType to a factory function
	RegisterFactory(serviceType reflect.Type, factory Factory, opts ...Option) error
	// RegisterInstance maps serviceType to an existing value
	RegisterInstance(serviceType reflect.Type, instance any, opts ...Option) error
}

// Ensure the container and the resolution view satisfy the interfaces
var (
	_ Resolver  = (*Core)(nil)
	_ Registrar = (*Core)(nil)
	_ Resolver  = (*view)(nil)
)
