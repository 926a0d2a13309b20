package container

import (
	"fmt"
	"sort"
	"time"
)

// InitializeFrom starts over with a fresh injector and invokes the catalogued
// registrations of the listed assemblies: release registrations when
// includeRelease is set, custom ones when their mode is in configurations.
func (c *Core) InitializeFrom(assemblies, configurations []string, includeRelease bool) error {
	selected, err := Plan(assemblies, configurations, includeRelease)
	if err != nil {
		return err
	}

	if err := c.invokeWrite("initialise", func() error {
		old, comps := c.swap()
		if err := shutdown(old, comps); err != nil {
			c.logger.Warn("Errors while shutting down the previous injector", "container", c.Name(), "error", err)
		}
		return nil
	}); err != nil {
		return err
	}

	c.logger.Info("Initialising container",
		"container", c.Name(),
		"assemblies", assemblies,
		"configurations", configurations,
		"include_release", includeRelease,
		"registrations", len(selected))

	for _, d := range selected {
		start := time.Now()
		if err := c.InvokeRegistrationOf(d.Registration); err != nil {
			return ConfigurationError(fmt.Sprintf("registration '%s' failed", d.Name), err)
		}
		c.logger.Debug("Registration invoked",
			"registration", d.Name,
			"mode", d.Mode.String(),
			"time_ms", time.Since(start).Milliseconds())
	}

	c.initialised.Store(true)
	return nil
}

// Plan lists the catalogued registrations InitializeFrom would invoke, in
// invocation order. Release registrations come first so they provide the
// default components.
func Plan(assemblies, configurations []string, includeRelease bool) ([]Descriptor, error) {
	if len(assemblies) == 0 {
		return nil, InvalidArgumentError("at least one assembly is required")
	}

	var selected []Descriptor
	for _, assembly := range assemblies {
		found := RegistrationsIn(assembly)
		if len(found) == 0 {
			return nil, ConfigurationError(fmt.Sprintf("assembly '%s' has no registrations linked into this binary", assembly), nil)
		}
		for _, d := range found {
			if d.Selected(configurations, includeRelease) {
				selected = append(selected, d)
			}
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Mode < selected[j].Mode
	})
	return selected, nil
}

// InvokeRegistration invokes a catalogued registration by name
func (c *Core) InvokeRegistration(name string) error {
	d, ok := LookupRegistration(name)
	if !ok {
		err := RegistrationNotFoundError(name)
		c.logger.Error("Registration lookup failed", "container", c.Name(), "error", err)
		return err
	}
	return c.InvokeRegistrationOf(d.Registration)
}

// InvokeRegistrationOf runs reg against the container
func (c *Core) InvokeRegistrationOf(reg Registration) error {
	if reg == nil {
		return InvalidArgumentError("registration cannot be nil")
	}
	return reg.BuildContainer(c)
}
