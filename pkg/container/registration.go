package container

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Registration populates a container. Packages add their registrations to the
// process-wide catalogue from init, and InitializeFrom picks them by package path.
type Registration interface {
	BuildContainer(c *Core) error
}

// RegistrationFunc is a registration implemented as a function.
// Function registrations must be added with RegistrationName.
type RegistrationFunc func(c *Core) error

// BuildContainer calls the function
func (f RegistrationFunc) BuildContainer(c *Core) error {
	return f(c)
}

// Mode decides when InitializeFrom invokes a registration
type Mode int

const (
	// ModeRelease registrations run whenever release registrations are included
	ModeRelease Mode = iota
	// ModeCustom registrations run only when their custom mode is requested
	ModeCustom
)

func (m Mode) String() string {
	if m == ModeCustom {
		return "custom"
	}
	return "release"
}

// Descriptor is a catalogued registration
type Descriptor struct {
	Name         string
	Assembly     string
	Mode         Mode
	CustomMode   string
	Registration Registration
}

// Selected reports whether InitializeFrom invokes the registration
func (d Descriptor) Selected(configurations []string, includeRelease bool) bool {
	switch d.Mode {
	case ModeRelease:
		return includeRelease
	case ModeCustom:
		return d.CustomMode != "" && slices.Contains(configurations, d.CustomMode)
	default:
		return false
	}
}

// RegistrationOption configures a catalogued registration
type RegistrationOption func(*Descriptor)

// RegistrationName overrides the name derived from the registration type
func RegistrationName(name string) RegistrationOption {
	return func(d *Descriptor) {
		d.Name = name
	}
}

// RegistrationAssembly overrides the package path the registration is filed under
func RegistrationAssembly(path string) RegistrationOption {
	return func(d *Descriptor) {
		d.Assembly = path
	}
}

// CustomMode files the registration under a custom configuration
func CustomMode(mode string) RegistrationOption {
	return func(d *Descriptor) {
		d.Mode = ModeCustom
		d.CustomMode = mode
	}
}

type registrationCatalogue struct {
	mu      sync.RWMutex
	entries map[string]Descriptor
}

var registrations = &registrationCatalogue{entries: make(map[string]Descriptor)}

// AddRegistration files reg in the process-wide catalogue. Like sql.Register
// it panics on a nil registration or a duplicate name, so call it from init.
func AddRegistration(reg Registration, opts ...RegistrationOption) {
	if reg == nil {
		panic("container: AddRegistration of nil registration")
	}

	d := describe(reg)
	for _, opt := range opts {
		opt(&d)
	}
	if _, isFunc := reg.(RegistrationFunc); isFunc && d.Name == typeKey(reflect.TypeOf(reg)) {
		panic("container: function registrations need a RegistrationName")
	}
	if d.Mode == ModeCustom && d.CustomMode == "" {
		panic(fmt.Sprintf("container: registration %s has an empty custom mode", d.Name))
	}

	registrations.mu.Lock()
	defer registrations.mu.Unlock()
	if _, dup := registrations.entries[d.Name]; dup {
		panic("container: AddRegistration called twice for " + d.Name)
	}
	registrations.entries[d.Name] = d
}

func describe(reg Registration) Descriptor {
	t := reflect.TypeOf(reg)
	pkg := t
	if pkg.Kind() == reflect.Pointer {
		pkg = pkg.Elem()
	}
	return Descriptor{
		Name:         typeKey(t),
		Assembly:     pkg.PkgPath(),
		Mode:         ModeRelease,
		Registration: reg,
	}
}

// LookupRegistration finds a catalogued registration by name
func LookupRegistration(name string) (Descriptor, bool) {
	registrations.mu.RLock()
	defer registrations.mu.RUnlock()

	d, ok := registrations.entries[name]
	return d, ok
}

// Registrations lists the catalogue ordered by assembly, then name
func Registrations() []Descriptor {
	registrations.mu.RLock()
	defer registrations.mu.RUnlock()

	result := make([]Descriptor, 0, len(registrations.entries))
	for _, d := range registrations.entries {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Assembly != result[j].Assembly {
			return result[i].Assembly < result[j].Assembly
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// RegistrationsIn returns the catalogued registrations filed under assembly
func RegistrationsIn(assembly string) []Descriptor {
	var result []Descriptor
	for _, d := range Registrations() {
		if d.Assembly == strings.TrimSpace(assembly) {
			result = append(result, d)
		}
	}
	return result
}
