// Package testutil provides test utilities for command and integration tests
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hmjahid/build-studio/internal/app"
	"github.com/hmjahid/build-studio/internal/backend"
	"github.com/hmjahid/build-studio/internal/config"
	"github.com/hmjahid/build-studio/internal/system"
)

// TestEnv holds the test environment
type TestEnv struct {
	T        *testing.T
	TmpDir   string
	Config   *config.Config
	Docker   *backend.MockBackend
	Exec     *system.MockExecutor
	Detector backend.StaticDetector
	App      *app.App
}

// NewTestEnv creates a test environment whose docker backend is a mock and
// whose state lives under a temporary directory. The environment's app is
// installed as app.Default until the test ends.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()

	cfg := config.Default()
	cfg.StateDir = filepath.Join(tmpDir, "state")
	cfg.Nodes.WorkspaceRoot = filepath.Join(tmpDir, "workspaces")

	for _, dir := range []string{cfg.StateDir, cfg.Nodes.WorkspaceRoot} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	env := &TestEnv{
		T:        t,
		TmpDir:   tmpDir,
		Config:   cfg,
		Docker:   backend.NewMockBackend(backend.Docker),
		Exec:     system.NewMockExecutor(),
		Detector: backend.StaticDetector{Caps: backend.Capabilities{Docker: true}},
	}
	env.App = env.NewApp(cfg)

	// Save original default and set test app
	originalDefault := app.Default
	app.SetDefault(env.App)
	t.Cleanup(func() {
		app.SetDefault(originalDefault)
	})

	return env
}

// NewApp builds an app from cfg that shares this environment's mocks, so
// state created through one app is visible to the next.
func (e *TestEnv) NewApp(cfg *config.Config) *app.App {
	return app.New(
		app.WithConfig(cfg),
		app.WithExecutor(e.Exec),
		app.WithFS(system.NewMockFS()),
		app.WithDetector(e.Detector),
		app.WithBackends(e.Docker),
	)
}

// WriteConfig writes a config file pointing at this environment's state
// directory, followed by extra TOML, and returns its path.
func (e *TestEnv) WriteConfig(extra string) string {
	e.T.Helper()

	// Literal strings keep Windows backslashes intact.
	content := "state_dir = '" + e.Config.StateDir + "'\n" + extra
	path := filepath.Join(e.TmpDir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		e.T.Fatalf("Failed to write config: %v", err)
	}
	return path
}

// CreateProject creates a project directory holding files, keyed by
// slash-separated relative path.
func (e *TestEnv) CreateProject(name string, files map[string]string) string {
	e.T.Helper()

	root := filepath.Join(e.TmpDir, "projects", name)
	if err := os.MkdirAll(root, 0755); err != nil {
		e.T.Fatalf("Failed to create project: %v", err)
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			e.T.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			e.T.Fatalf("Failed to write %s: %v", path, err)
		}
	}
	return root
}

// WriteManifest writes a build manifest into a project directory.
func (e *TestEnv) WriteManifest(projectDir, content string) {
	e.T.Helper()

	path := filepath.Join(projectDir, config.ManifestFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		e.T.Fatalf("Failed to write manifest: %v", err)
	}
}

// AddNode registers an environment in the mock docker backend as if it had
// been created by an earlier invocation.
func (e *TestEnv) AddNode(o backend.Observed) {
	e.Docker.AddEnvironment(o)
}

// DefaultProject returns the files of a small C project under src/.
func DefaultProject() map[string]string {
	return map[string]string{
		"src/main.c":   "int main(void) { return 0; }\n",
		"builds/.keep": "",
		"notes.txt":    "outside the allowed paths\n",
	}
}
