package container

import (
	"context"
	"reflect"
	"strings"
	"sync"

	"github.com/01fortes/goioc/pkg/lifetime"
)

type registrationKind int

const (
	typeRegistration registrationKind = iota
	factoryRegistration
	instanceRegistration
)

func (k registrationKind) String() string {
	switch k {
	case typeRegistration:
		return "type"
	case factoryRegistration:
		return "factory"
	default:
		return "instance"
	}
}

// component is one registration in the catalog. Its key doubles as the
// service name in the wrapped injector.
type component struct {
	key      string
	service  reflect.Type
	impl     reflect.Type
	kind     registrationKind
	lifetime lifetime.Definition
	manager  lifetime.Manager

	factory    Factory
	instance   any
	dependsOn  map[string]string
	parameters ParameterFunc

	// pending hands the resolution in progress to the injector provider; guarded by invokeMu
	invokeMu sync.Mutex
	pending  *view
}

// serves reports whether the component can be handed out as t
func (c *component) serves(t reflect.Type) bool {
	if t == nil || c.service == t || c.service.AssignableTo(t) {
		return true
	}
	return c.impl != nil && c.impl.AssignableTo(t)
}

func (c *component) lifetimeName() string {
	if c.kind == instanceRegistration {
		return "instance"
	}
	return c.lifetime.Kind().String()
}

func (c *component) info() ComponentInfo {
	info := ComponentInfo{
		Key:          c.key,
		Service:      c.service.String(),
		Registration: c.kind.String(),
		Lifetime:     c.lifetimeName(),
	}
	if c.impl != nil {
		info.Implementation = c.impl.String()
	}
	return info
}

// Initializer is implemented by components that finish their setup once
// their fields are injected. Only type registrations are initialised.
type Initializer interface {
	Init() error
}

// ComponentInfo describes a registered component
type ComponentInfo struct {
	Key            string `json:"key"`
	Service        string `json:"service"`
	Implementation string `json:"implementation,omitempty"`
	Registration   string `json:"registration"`
	Lifetime       string `json:"lifetime"`
}

// ParameterFunc fills parameters for a type registration each time it is built.
// The resolver continues the current resolution.
type ParameterFunc func(r Resolver, params map[string]any) error

type options struct {
	key        string
	lifetime   lifetime.Definition
	dependsOn  map[string]string
	parameters ParameterFunc
}

// Option configures a registration
type Option func(*options)

// Named sets the component key. Without it the key is the implementation type
// for type registrations and the service type otherwise.
func Named(key string) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithLifetime sets the lifetime; registrations are singletons by default
func WithLifetime(def lifetime.Definition) Option {
	return func(o *options) {
		o.lifetime = def
	}
}

// DependsOn maps field names to the component keys injected into them
func DependsOn(deps map[string]string) Option {
	return func(o *options) {
		if o.dependsOn == nil {
			o.dependsOn = make(map[string]string, len(deps))
		}
		for field, key := range deps {
			o.dependsOn[field] = key
		}
	}
}

// WithParameters supplies values for `param` fields, evaluated on every build
func WithParameters(fn ParameterFunc) Option {
	return func(o *options) {
		o.parameters = fn
	}
}

// WithStaticParameters supplies fixed values for `param` fields
func WithStaticParameters(params map[string]any) Option {
	return WithParameters(func(_ Resolver, p map[string]any) error {
		for k, v := range params {
			p[k] = v
		}
		return nil
	})
}

func newOptions(opts []Option) *options {
	o := &options{lifetime: lifetime.Singleton{}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type resolveOptions struct {
	key  string
	args map[string]any
	ctx  context.Context
}

// ResolveOption configures a resolve call
type ResolveOption func(*resolveOptions)

// ByName selects a component by key instead of the default for the type
func ByName(key string) ResolveOption {
	return func(o *resolveOptions) {
		o.key = key
	}
}

// WithArguments builds a fresh instance of a type registration with the given
// values for its fields, keyed by `param` name or field name
func WithArguments(args map[string]any) ResolveOption {
	return func(o *resolveOptions) {
		o.args = args
	}
}

// InContext resolves within ctx; scoped lifetimes find their scope there
func InContext(ctx context.Context) ResolveOption {
	return func(o *resolveOptions) {
		o.ctx = ctx
	}
}

func newResolveOptions(opts []ResolveOption) *resolveOptions {
	o := &resolveOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// typeKey is the default component key for a type
func typeKey(t reflect.Type) string {
	return strings.TrimPrefix(t.String(), "*")
}
