// Package boot runs an application around the process-wide container: it
// initialises the container from the config file, optionally re-initialises it
// when the file changes, serves diagnostics and shuts down on a signal.
package boot

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/01fortes/goioc/pkg/config"
	"github.com/01fortes/goioc/pkg/container"
	"github.com/01fortes/goioc/pkg/ioc"
	"github.com/01fortes/goioc/pkg/lifetime"
)

const shutdownTimeout = 10 * time.Second

// Options configure an Application
type Options struct {
	// ConfigPath defaults to ioc.ConfigPath()
	ConfigPath string
	EnvFiles   []string
	// Watch re-initialises the container whenever the config file changes
	Watch bool
	// DiagnosticsAddr enables the diagnostics server when set, e.g. ":9090"
	DiagnosticsAddr string
	// Gatherer backs /metrics, prometheus.DefaultGatherer when nil
	Gatherer   prometheus.Gatherer
	SessionTTL time.Duration
	Logger     *slog.Logger
	// Context is the parent of the signal context, context.Background when nil
	Context context.Context
}

// Application represents a complete application
type Application struct {
	ctx    context.Context
	cancel context.CancelFunc
	core   *container.Core
	logger *slog.Logger

	watcher  *config.Watcher
	sessions *lifetime.SessionStore
	server   *http.Server

	serveErr     chan error
	shutdownOnce sync.Once
	shutdownErr  error
}

// New initialises the process-wide container from the config file
func New(opts Options) (*Application, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	parent := opts.Context
	if parent == nil {
		parent = context.Background()
	}
	path := opts.ConfigPath
	if path == "" {
		path = ioc.ConfigPath()
	}

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	a := &Application{
		ctx:      ctx,
		cancel:   cancel,
		core:     ioc.ContainerCore(),
		logger:   logger,
		serveErr: make(chan error, 1),
	}

	logger.Info("Starting application", "config", path, "watch", opts.Watch)

	var section *config.AssemblyRegistration
	if opts.Watch {
		watcher, err := config.NewWatcher(path, logger, opts.EnvFiles...)
		if err != nil {
			cancel()
			return nil, err
		}
		a.watcher = watcher
		section = watcher.Current()
	} else {
		loaded, err := config.Load(path, opts.EnvFiles...)
		if err != nil {
			cancel()
			return nil, container.ConfigurationError("load "+path, err)
		}
		section = loaded
	}

	a.core.Reset()
	if err := ioc.InitializeFromConfig(section); err != nil {
		cancel()
		return nil, err
	}

	if a.watcher != nil {
		a.watcher.OnChange(a.reload)
		if err := a.watcher.Start(); err != nil {
			cancel()
			return nil, err
		}
	}

	if opts.DiagnosticsAddr != "" {
		gatherer := opts.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		ttl := opts.SessionTTL
		if ttl <= 0 {
			ttl = lifetime.DefaultSessionTTL
		}
		a.sessions = lifetime.NewSessionStore(ttl, logger)
		a.server = &http.Server{
			Addr:              opts.DiagnosticsAddr,
			Handler:           NewDiagnosticsRouter(a.core, gatherer, a.sessions),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return a, nil
}

// reload starts the container over from a changed config section. A section
// that cannot be planned leaves the current registrations in place.
func (a *Application) reload(section *config.AssemblyRegistration) {
	assemblies := section.AssemblyNames()
	if len(assemblies) > 0 {
		if _, err := container.Plan(assemblies, section.Configurations, section.IncludeReleaseOrDefault()); err != nil {
			a.logger.Error("Rejected configuration change, keeping the current container", "error", err)
			return
		}
	}

	a.logger.Info("Re-initialising container", "assemblies", assemblies)
	a.core.Reset()
	if err := ioc.InitializeFromConfig(section); err != nil {
		a.logger.Error("Failed to re-initialise container", "error", err)
	}
}

// Run serves diagnostics, when enabled, and blocks until a termination signal
// or a server failure, then shuts down
func (a *Application) Run() error {
	if a.server != nil {
		go func() {
			a.logger.Info("Diagnostics server listening", "addr", a.server.Addr)
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.serveErr <- err
				a.cancel()
			}
		}()
	}

	<-a.ctx.Done()

	var serveErr error
	select {
	case serveErr = <-a.serveErr:
	default:
	}
	return errors.Join(serveErr, a.Shutdown())
}

// Shutdown gracefully stops the application. Later calls return the first result.
func (a *Application) Shutdown() error {
	a.shutdownOnce.Do(func() {
		var errs []error
		if a.watcher != nil {
			a.watcher.Stop()
		}
		if a.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			errs = append(errs, a.server.Shutdown(ctx))
			cancel()
		}
		if a.sessions != nil {
			errs = append(errs, a.sessions.Close())
		}
		errs = append(errs, a.core.Close())
		a.cancel()

		a.shutdownErr = errors.Join(errs...)
		a.logger.Info("Application stopped", "error", a.shutdownErr)
	})
	return a.shutdownErr
}

// Container returns the application container
func (a *Application) Container() *container.Core {
	return a.core
}

// Context is cancelled on a termination signal or shutdown
func (a *Application) Context() context.Context {
	return a.ctx
}
