// Package testdomain is a small logger, processor and reporting domain used
// to exercise the container. Importing it files its registrations.
package testdomain

import (
	"github.com/01fortes/goioc/pkg/container"
)

// Assembly is the package path the registrations are filed under
const Assembly = "github.com/01fortes/goioc/internal/testdomain"

// AuditMode is the custom mode that enables AuditRegistrator
const AuditMode = "audit"

func init() {
	container.AddRegistration(&Registrator{})
	container.AddRegistration(&AuditRegistrator{}, container.CustomMode(AuditMode))
}

// Registrator registers the whole domain
type Registrator struct{}

func (*Registrator) BuildContainer(c *container.Core) error {
	registrations := []func() error{
		func() error {
			return container.Register[EntityProcessor, *Implementation1](c, container.Named("Implementation1"))
		},
		func() error {
			return container.Register[EntityProcessor, *Implementation1Child](c, container.Named("Implementation1Child"))
		},
		func() error {
			return c.Register(container.TypeOf[EntityProcessor](), container.TypeOf[*Implementation2](), container.Named("Implementation2"))
		},
		func() error { return container.Register[Logger, *ConsoleLogger](c) },
		func() error {
			return container.Register[Logger, ExtendedLogger](c, container.Named(ExtendedLoggerName))
		},
		func() error { return container.Register[ReportBuilder, DefaultReportBuilder](c) },
		func() error { return container.Register[ReportSender, EmailReportSender](c) },
		func() error { return container.Register[*Reporter, *Reporter](c) },
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}

// AuditRegistrator adds a report sender that records what it sends
type AuditRegistrator struct{}

func (*AuditRegistrator) BuildContainer(c *container.Core) error {
	return container.Register[ReportSender, *AuditReportSender](c, container.Named("AuditReportSender"))
}
