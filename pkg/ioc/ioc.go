// Package ioc exposes one process-wide container through package-level functions.
//
//	ioc.InitializeContainer()
//	reporter := ioc.MustResolve[*reports.Reporter]()
package ioc

import (
	"os"
	"sync"

	"github.com/01fortes/goioc/pkg/config"
	"github.com/01fortes/goioc/pkg/container"
)

// EnvConfigPath overrides the config file InitializeContainer reads
const EnvConfigPath = "IOC_CONFIG_PATH"

var (
	core = container.New(nil)

	configMu   sync.RWMutex
	configPath string
)

// ContainerCore returns the process-wide container
func ContainerCore() *container.Core {
	return core
}

// SetConfigPath sets the config file InitializeContainer reads. An empty path
// restores the default: $IOC_CONFIG_PATH, then ioc.yml.
func SetConfigPath(path string) {
	configMu.Lock()
	defer configMu.Unlock()
	configPath = path
}

// ConfigPath returns the config file InitializeContainer reads
func ConfigPath() string {
	configMu.RLock()
	defer configMu.RUnlock()
	if configPath != "" {
		return configPath
	}
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	return config.DefaultPath
}

// InitializeContainer invokes the registrations of the assemblies listed in the
// config file. With no assemblies listed the container is only marked
// initialised. It does nothing when the container is already initialised.
func InitializeContainer() error {
	if core.IsInitialised() {
		return nil
	}
	section, err := config.Load(ConfigPath())
	if err != nil {
		return container.ConfigurationError("load "+ConfigPath(), err)
	}
	return InitializeFromConfig(section)
}

// InitializeFromConfig initialises the container from an already loaded section
func InitializeFromConfig(section *config.AssemblyRegistration) error {
	assemblies := section.AssemblyNames()
	if len(assemblies) == 0 {
		core.Initialize()
		return nil
	}
	return core.InitializeFrom(assemblies, section.Configurations, section.IncludeReleaseOrDefault())
}

// InitializeContainerWith invokes the release registrations of assemblies and
// the custom ones whose mode is listed in configurations
func InitializeContainerWith(assemblies, configurations []string) error {
	return core.InitializeFrom(assemblies, configurations, true)
}

// ResetContainer drops every registration
func ResetContainer() {
	core.Reset()
}

// InvokeRegistrationMethod invokes a catalogued registration by name
func InvokeRegistrationMethod(name string) error {
	return core.InvokeRegistration(name)
}

// Configure runs installers against the wrapped injector
func Configure(installers ...container.Installer) error {
	return core.Configure(installers...)
}

// Resolve returns the default component serving T
func Resolve[T any](opts ...container.ResolveOption) (T, error) {
	return container.Resolve[T](core, opts...)
}

// ResolveNamed returns the component registered under key
func ResolveNamed[T any](key string, opts ...container.ResolveOption) (T, error) {
	return container.ResolveNamed[T](core, key, opts...)
}

// MustResolve is Resolve panicking on failure
func MustResolve[T any](opts ...container.ResolveOption) T {
	return container.MustResolve[T](core, opts...)
}

// TryResolve is Resolve reporting failure as false
func TryResolve[T any](opts ...container.ResolveOption) (T, bool) {
	return container.TryResolve[T](core, opts...)
}

// ResolveAll returns every component serving T in registration order
func ResolveAll[T any](opts ...container.ResolveOption) ([]T, error) {
	return container.ResolveAll[T](core, opts...)
}

// BuildUp injects the zero-valued tagged fields of target
func BuildUp(target any, opts ...container.ResolveOption) error {
	return core.BuildUp(target, opts...)
}

// Register maps TService to the implementation type TImpl
func Register[TService, TImpl any](opts ...container.Option) error {
	return container.Register[TService, TImpl](core, opts...)
}

// RegisterFactory maps T to factory
func RegisterFactory[T any](factory func(container.Resolver) (T, error), opts ...container.Option) error {
	return container.RegisterFactory[T](core, factory, opts...)
}

// RegisterInstance maps T to an existing value
func RegisterInstance[T any](instance T, opts ...container.Option) error {
	return container.RegisterInstance[T](core, instance, opts...)
}

// Remove drops the components implemented by T, or else the default one serving T
func Remove[T any]() error {
	return container.Remove[T](core)
}

// RemoveNamed drops the component registered under key
func RemoveNamed(key string) error {
	return core.RemoveNamed(key)
}

// IsRegistered reports whether any component serves T
func IsRegistered[T any]() bool {
	return container.IsRegistered[T](core)
}

// IsRegisteredNamed reports whether the component under key serves T
func IsRegisteredNamed[T any](key string) bool {
	return container.IsRegisteredNamed[T](core, key)
}

// Release hands a pooled instance back to its pool
func Release(instance any) error {
	return core.Release(instance)
}
