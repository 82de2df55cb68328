// Package testutil provides test fixtures and utilities.
//
// # Fixtures
//
// Fixtures are embedded using go:embed:
//
//	fixtures/valid_manifest.yaml
//	fixtures/invalid_manifest.yaml
//	fixtures/valid_config.toml
//
// Helper functions load and parse them:
//
//	m, err := testutil.ValidManifest()
//	cfg, err := testutil.ValidConfig()
//	raw, err := testutil.InvalidManifest()
//
// # Test Environments
//
// NewTestEnv builds an app.App around a mock docker backend and a
// temporary state directory, and installs it as app.Default for the
// duration of the test:
//
//	env := testutil.NewTestEnv(t)
//	project := env.CreateProject("demo", testutil.DefaultProject())
//	env.WriteManifest(project, "builds:\n  - name: all\n    command: make\n")
package testutil
