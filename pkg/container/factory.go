package container

import "github.com/samber/do"

// Factory builds a component instance. The resolver it receives belongs to the
// resolution in progress and must not be kept after the factory returns.
type Factory func(Resolver) (any, error)

// Installer registers services directly on the wrapped injector.
// Installers run under the container's write lock, see Core.Configure.
// Services provided as any can be resolved by key through ByName.
type Installer interface {
	Install(injector *do.Injector) error
}

// InstallerFunc is an installer implemented as a function
type InstallerFunc func(injector *do.Injector) error

// Install calls the function
func (f InstallerFunc) Install(injector *do.Injector) error {
	return f(injector)
}

// CompositeInstaller runs several installers in sequence
type CompositeInstaller []Installer

// Install runs every installer, stopping at the first error
func (c CompositeInstaller) Install(injector *do.Injector) error {
	for _, installer := range c {
		if err := installer.Install(injector); err != nil {
			return err
		}
	}
	return nil
}
