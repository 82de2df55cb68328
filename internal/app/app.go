package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hmjahid/build-studio/internal/audit"
	"github.com/hmjahid/build-studio/internal/backend"
	"github.com/hmjahid/build-studio/internal/build"
	"github.com/hmjahid/build-studio/internal/config"
	"github.com/hmjahid/build-studio/internal/discovery"
	"github.com/hmjahid/build-studio/internal/metrics"
	"github.com/hmjahid/build-studio/internal/node"
	"github.com/hmjahid/build-studio/internal/security"
	"github.com/hmjahid/build-studio/internal/sysinfo"
	"github.com/hmjahid/build-studio/internal/system"
	"github.com/hmjahid/build-studio/internal/toolchain"
)

// App holds the application dependencies
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// Exec runs external commands for backends, checks and scanners
	Exec system.CommandExecutor

	// FS is the file system seen by backends and checks
	FS system.FileSystem

	// Registry holds the Prometheus collectors behind Recorder
	Registry *prometheus.Registry

	Recorder metrics.Recorder
	Audit    *audit.Logger
	Detector backend.Detector
	Docker   *backend.DockerBackend
	Backends *backend.Table
	Nodes    *node.Manager
	Engine   *build.Engine
	Scanner  *discovery.Discoverer

	extraBackends []backend.Backend
	scanners      []discovery.Scanner
}

// Option is a function that configures the App
type Option func(*App)

// WithConfig sets the configuration
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		a.Config = cfg
	}
}

// WithExecutor sets a custom command executor
func WithExecutor(exec system.CommandExecutor) Option {
	return func(a *App) {
		a.Exec = exec
	}
}

// WithFS sets a custom file system
func WithFS(fs system.FileSystem) Option {
	return func(a *App) {
		a.FS = fs
	}
}

// WithDetector sets a custom capability detector
func WithDetector(d backend.Detector) Option {
	return func(a *App) {
		a.Detector = d
	}
}

// WithBackends registers additional backends, replacing the built-in
// one for the same technology
func WithBackends(backends ...backend.Backend) Option {
	return func(a *App) {
		a.extraBackends = append(a.extraBackends, backends...)
	}
}

// WithScanners replaces the default discovery scanners
func WithScanners(scanners ...discovery.Scanner) Option {
	return func(a *App) {
		a.scanners = scanners
	}
}

// New creates a new App with the given options.
func New(opts ...Option) *App {
	a := &App{}
	for _, opt := range opts {
		opt(a)
	}

	if a.Config == nil {
		a.Config = config.Default()
	}
	if a.Exec == nil {
		a.Exec = system.DefaultExecutor()
	}
	if a.FS == nil {
		a.FS = system.DefaultFS()
	}

	cfg := a.Config
	a.Registry = prometheus.NewRegistry()
	a.Recorder = metrics.NewPrometheusRecorder(a.Registry)
	a.Audit = audit.NewLogger(cfg.AuditDir())

	if a.Detector == nil {
		detector := backend.NewHostDetector(a.Exec, a.FS)
		detector.ContainerCommand = cfg.Nodes.ContainerCommand
		a.Detector = detector
	}

	a.Docker = backend.NewDockerBackend(cfg.Nodes.ContainerCommand, cfg.Nodes.ContainerPrefix, cfg.Nodes.WorkspaceRoot, a.Exec, a.FS)
	a.Backends = backend.NewTable(append([]backend.Backend{a.Docker}, a.extraBackends...)...)

	a.Nodes = node.NewManager(a.Backends, a.Detector,
		node.WithRecorder(a.Recorder),
		node.WithEvents(a.Audit),
	)

	a.Engine = build.NewEngine(
		build.WithToolchains(toolchain.NewResolver(cfg.Toolchains)),
		build.WithRecorder(a.Recorder),
		build.WithEvents(a.Audit),
	)

	if a.scanners == nil {
		a.scanners = a.defaultScanners()
	}
	a.Scanner = discovery.New(a.Recorder, a.scanners...)

	return a
}

// defaultScanners enumerates the container backend of the table plus the
// VM managers discovery knows how to list.
func (a *App) defaultScanners() []discovery.Scanner {
	prefix := a.Config.Nodes.ContainerPrefix
	scanners := []discovery.Scanner{
		discovery.VirtualBoxScanner{Exec: a.Exec, Prefix: prefix},
		discovery.VirshScanner{Exec: a.Exec, Prefix: prefix},
	}
	if l, ok := a.Backends.Get(backend.Docker).(backend.Lister); ok {
		scanners = append([]discovery.Scanner{discovery.ListerScanner{Tech: backend.Docker, Lister: l}}, scanners...)
	}
	return scanners
}

// Policy returns the configured default security policy
func (a *App) Policy() security.Policy {
	return a.Config.Policy()
}

// SystemInfo collects host information using the app's detector
func (a *App) SystemInfo(ctx context.Context) sysinfo.Info {
	return sysinfo.Collect(ctx, a.Detector)
}

// Reconcile runs one discovery pass and merges it into the registry
func (a *App) Reconcile(ctx context.Context) (discovery.Result, node.ReconcileSummary) {
	return a.Scanner.Sync(ctx, a.Nodes)
}

// Default is the default application instance
var Default = New()

// SetDefault sets the default application instance (used for testing)
func SetDefault(app *App) {
	Default = app
}

// ResetDefault resets to the default application instance
func ResetDefault() {
	Default = New()
}
