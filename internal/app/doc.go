// Package app wires build-studio's components together.
//
// # App Context
//
// New builds every long-lived dependency from one configuration: the
// Prometheus registry and recorder, the audit log, the capability detector,
// the backend table with the Docker backend, the node registry, the build
// engine and the discovery scanners.
//
//	// Production usage
//	a := app.New(app.WithConfig(cfg))
//
//	// Testing with custom dependencies
//	a := app.New(
//	    app.WithConfig(testConfig),
//	    app.WithExecutor(system.NewMockExecutor()),
//	    app.WithBackends(backend.NewMockBackend(backend.Docker)),
//	)
//
// # Available Options
//
//	WithConfig(cfg)          // Loaded configuration
//	WithExecutor(exec)       // External command runner
//	WithFS(fs)               // File system abstraction
//	WithDetector(d)          // Capability detector
//	WithBackends(b...)       // Extra or replacement backends
//	WithScanners(s...)       // Discovery scanners
package app
