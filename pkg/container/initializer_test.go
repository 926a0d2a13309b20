package container_test

import (
	"errors"
	"testing"

	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01fortes/goioc/internal/testdomain"
	"github.com/01fortes/goioc/pkg/container"
)

const fixtureAssembly = "github.com/01fortes/goioc/pkg/container/fixtures"

func init() {
	container.AddRegistration(container.RegistrationFunc(func(c *container.Core) error {
		return container.RegisterInstance[string](c, "release", container.Named("fixture.mode"))
	}), container.RegistrationName("fixture.release"), container.RegistrationAssembly(fixtureAssembly))
	container.AddRegistration(container.RegistrationFunc(func(c *container.Core) error {
		return container.RegisterInstance[int](c, 42, container.Named("fixture.answer"))
	}), container.RegistrationName("fixture.custom"), container.RegistrationAssembly(fixtureAssembly), container.CustomMode("answers"))
}

func TestInitializeFrom_ReleaseRegistrations(t *testing.T) {
	c := newCore(t)
	require.NoError(t, c.InitializeFrom([]string{testdomain.Assembly}, nil, true))
	assert.True(t, c.IsInitialised())

	reporter, err := container.Resolve[*testdomain.Reporter](c)
	require.NoError(t, err)
	require.NoError(t, reporter.SendReports())

	processor, err := container.ResolveNamed[testdomain.EntityProcessor](c, "Implementation1Child")
	require.NoError(t, err)
	assert.Equal(t, "Implementation1Child", processor.ClassName())

	assert.False(t, container.IsRegisteredNamed[testdomain.ReportSender](c, "AuditReportSender"))
}

func TestInitializeFrom_CustomMode(t *testing.T) {
	c := newCore(t)
	require.NoError(t, c.InitializeFrom([]string{testdomain.Assembly}, []string{testdomain.AuditMode}, false))

	assert.False(t, container.IsRegistered[*testdomain.Reporter](c))
	sender, err := container.ResolveNamed[testdomain.ReportSender](c, "AuditReportSender")
	require.NoError(t, err)
	assert.IsType(t, &testdomain.AuditReportSender{}, sender)
}

func TestInitializeFrom_Modes(t *testing.T) {
	tests := []struct {
		name           string
		configurations []string
		includeRelease bool
		wantRelease    bool
		wantCustom     bool
	}{
		{name: "release only", includeRelease: true, wantRelease: true},
		{name: "custom only", configurations: []string{"answers"}, wantCustom: true},
		{name: "both", configurations: []string{"answers"}, includeRelease: true, wantRelease: true, wantCustom: true},
		{name: "other custom mode", configurations: []string{"questions"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCore(t)
			require.NoError(t, c.InitializeFrom([]string{fixtureAssembly}, tt.configurations, tt.includeRelease))
			assert.Equal(t, tt.wantRelease, container.IsRegisteredNamed[string](c, "fixture.mode"))
			assert.Equal(t, tt.wantCustom, container.IsRegisteredNamed[int](c, "fixture.answer"))
		})
	}
}

func TestInitializeFrom_ReplacesRegistrations(t *testing.T) {
	c := newCore(t)
	require.NoError(t, container.Register[testdomain.ReportSender, *testdomain.AuditReportSender](c, container.Named("manual")))

	require.NoError(t, c.InitializeFrom([]string{fixtureAssembly}, nil, true))
	assert.False(t, container.IsRegisteredNamed[testdomain.ReportSender](c, "manual"))
}

func TestInitializeFrom_Errors(t *testing.T) {
	c := newCore(t)

	assert.ErrorIs(t, c.InitializeFrom(nil, nil, true), container.ErrInvalidArgument)
	assert.ErrorIs(t, c.InitializeFrom([]string{"example.com/unknown"}, nil, true), container.ErrConfiguration)
}

func TestInvokeRegistration(t *testing.T) {
	c := newCore(t)

	require.NoError(t, c.InvokeRegistration("testdomain.Registrator"))
	assert.True(t, container.IsRegistered[testdomain.Logger](c))

	assert.ErrorIs(t, c.InvokeRegistration("missing.Registrator"), container.ErrRegistrationNotFound)
	assert.ErrorIs(t, c.InvokeRegistrationOf(nil), container.ErrInvalidArgument)
}

func TestRegistrationCatalogue(t *testing.T) {
	d, ok := container.LookupRegistration("testdomain.AuditRegistrator")
	require.True(t, ok)
	assert.Equal(t, testdomain.Assembly, d.Assembly)
	assert.Equal(t, container.ModeCustom, d.Mode)
	assert.Equal(t, testdomain.AuditMode, d.CustomMode)

	found := container.RegistrationsIn(fixtureAssembly)
	require.Len(t, found, 2)
	assert.Equal(t, "fixture.custom", found[0].Name)
	assert.Equal(t, "fixture.release", found[1].Name)

	assert.Panics(t, func() {
		container.AddRegistration(&testdomain.Registrator{})
	})
	assert.Panics(t, func() {
		container.AddRegistration(container.RegistrationFunc(func(*container.Core) error { return nil }))
	})
}

func TestChildContainers(t *testing.T) {
	parent := newCore(t)
	child := newCore(t)

	require.NoError(t, parent.AddChildContainer("child", child))
	assert.ErrorIs(t, parent.AddChildContainer("child", newCore(t)), container.ErrChildContainerExists)
	assert.ErrorIs(t, parent.AddChildContainer("", child), container.ErrInvalidArgument)
	assert.ErrorIs(t, parent.AddChildContainer("self", parent), container.ErrInvalidArgument)

	got, err := parent.ChildContainer("child")
	require.NoError(t, err)
	assert.Same(t, child, got)
	assert.Same(t, parent, child.Parent())

	_, err = parent.ChildContainer("missing")
	assert.ErrorIs(t, err, container.ErrChildContainerNotFound)

	require.NoError(t, parent.RemoveChildContainer("child"))
	assert.ErrorIs(t, parent.RemoveChildContainer("child"), container.ErrChildContainerNotFound)
}

func TestChildContainer_FallsBackToParent(t *testing.T) {
	parent := newCore(t)
	child := newCore(t)
	require.NoError(t, parent.AddChildContainer("child", child))
	registerLoggers(t, parent)
	require.NoError(t, container.Register[testdomain.Logger, testdomain.ExtendedLogger](child))

	own, err := container.Resolve[testdomain.Logger](child)
	require.NoError(t, err)
	assert.Equal(t, testdomain.ExtendedLoggerName, own.Name())

	inherited, err := container.Resolve[testdomain.ReportSender](child)
	assert.ErrorIs(t, err, container.ErrComponentNotFound)
	assert.Nil(t, inherited)

	fromParent, err := container.ResolveNamed[testdomain.Logger](child, "testdomain.ConsoleLogger")
	require.NoError(t, err)
	assert.IsType(t, &testdomain.ConsoleLogger{}, fromParent)

	assert.True(t, container.IsRegisteredNamed[testdomain.Logger](child, "testdomain.ConsoleLogger"))
	assert.False(t, container.IsRegisteredNamed[testdomain.ReportSender](child, "testdomain.ConsoleLogger"))
	assert.False(t, container.IsRegistered[testdomain.ReportSender](child))
}

func TestChildContainer_IsRegisteredFollowsParent(t *testing.T) {
	parent := newCore(t)
	child := newCore(t)
	require.NoError(t, parent.AddChildContainer("child", child))
	require.NoError(t, container.Register[testdomain.Logger, *testdomain.ConsoleLogger](parent))

	assert.True(t, container.IsRegistered[testdomain.Logger](child))
	_, err := container.Resolve[testdomain.Logger](child)
	require.NoError(t, err)

	require.NoError(t, container.RegisterInstance[testdomain.ReportSender](child, testdomain.EmailReportSender{},
		container.Named("testdomain.ConsoleLogger")))
	assert.False(t, container.IsRegisteredNamed[testdomain.Logger](child, "testdomain.ConsoleLogger"))
	assert.True(t, container.IsRegisteredNamed[testdomain.Logger](parent, "testdomain.ConsoleLogger"))
}

func TestSetParent_RejectsCycles(t *testing.T) {
	a := newCore(t)
	b := newCore(t)
	require.NoError(t, b.SetParent(a))
	assert.ErrorIs(t, a.SetParent(b), container.ErrInvalidArgument)
	assert.ErrorIs(t, a.SetParent(a), container.ErrInvalidArgument)
}

func TestNames(t *testing.T) {
	c := newCore(t)
	assert.Equal(t, t.Name(), c.Name())
	require.NoError(t, c.SetName("renamed"))
	assert.Equal(t, "renamed", c.Name())
	assert.ErrorIs(t, c.SetName(""), container.ErrInvalidArgument)
}

func TestConfigure(t *testing.T) {
	c := newCore(t)
	err := c.Configure(container.CompositeInstaller{
		container.InstallerFunc(func(i *do.Injector) error {
			do.ProvideNamedValue[any](i, "greeting", "hello")
			return nil
		}),
	})
	require.NoError(t, err)

	greeting, err := container.ResolveNamed[string](c, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", greeting)

	_, err = container.ResolveNamed[int](c, "greeting")
	assert.ErrorIs(t, err, container.ErrComponentType)

	boom := errors.New("boom")
	err = c.Configure(container.InstallerFunc(func(*do.Injector) error { return boom }))
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, container.ErrInvalidOperation)
}

type checkedService struct {
	healthy bool
	stopped bool
}

func (p *checkedService) HealthCheck() error {
	if !p.healthy {
		return errors.New("unhealthy")
	}
	return nil
}

func (p *checkedService) Shutdown() error {
	p.stopped = true
	return nil
}

func TestHealthCheckAndClose(t *testing.T) {
	c := newCore(t)
	sick := &checkedService{}
	well := &checkedService{healthy: true}
	require.NoError(t, container.RegisterInstance[*checkedService](c, sick, container.Named("sick")))
	require.NoError(t, container.RegisterInstance[*checkedService](c, well, container.Named("well")))

	_, err := container.ResolveNamed[*checkedService](c, "sick")
	require.NoError(t, err)
	_, err = container.ResolveNamed[*checkedService](c, "well")
	require.NoError(t, err)

	health := c.HealthCheck()
	assert.Error(t, health["sick"])
	assert.NoError(t, health["well"])

	require.NoError(t, c.Close())
	assert.True(t, sick.stopped)
	require.NoError(t, c.Close())

	_, err = container.ResolveNamed[*checkedService](c, "well")
	assert.ErrorIs(t, err, container.ErrContainerClosed)
	assert.ErrorIs(t, container.Register[testdomain.Logger, *testdomain.ConsoleLogger](c), container.ErrContainerClosed)

	c.Reset()
	require.NoError(t, container.Register[testdomain.Logger, *testdomain.ConsoleLogger](c))
}

func TestPlan(t *testing.T) {
	plan, err := container.Plan([]string{testdomain.Assembly, fixtureAssembly}, []string{testdomain.AuditMode, "answers"}, true)
	require.NoError(t, err)

	names := make([]string, 0, len(plan))
	for _, d := range plan {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{
		"testdomain.Registrator",
		"fixture.release",
		"testdomain.AuditRegistrator",
		"fixture.custom",
	}, names)

	_, err = container.Plan(nil, nil, true)
	assert.ErrorIs(t, err, container.ErrInvalidArgument)
}
