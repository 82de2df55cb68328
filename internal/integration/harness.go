package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hmjahid/build-studio/internal/app"
	"github.com/hmjahid/build-studio/internal/backend"
	"github.com/hmjahid/build-studio/internal/config"
	"github.com/hmjahid/build-studio/internal/errors"
	"github.com/hmjahid/build-studio/internal/node"
	"github.com/hmjahid/build-studio/internal/system"
)

// EnvVar enables the docker-backed tests.
const EnvVar = "BUILDSTUDIO_INTEGRATION_TESTS"

// Harness provides utilities for integration testing with real containers.
type Harness struct {
	t      *testing.T
	config *config.Config
	app    *app.App

	mu    sync.Mutex
	nodes []string // Track created nodes for cleanup
}

// NewHarness creates a new test harness backed by the host's docker.
// It will skip the test if BUILDSTUDIO_INTEGRATION_TESTS is not set or
// docker is not reachable.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	if os.Getenv(EnvVar) != "1" {
		t.Skipf("integration tests disabled (set %s=1 to enable)", EnvVar)
	}

	exec := system.DefaultExecutor()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := exec.Execute(ctx, "docker", "info"); err != nil {
		t.Skipf("docker not available: %v", err)
	}

	tempDir := t.TempDir()
	cfg := config.Default()
	cfg.StateDir = filepath.Join(tempDir, "state")
	cfg.Nodes.WorkspaceRoot = filepath.Join(tempDir, "workspaces")
	// Keep test containers apart from real nodes.
	cfg.Nodes.ContainerPrefix = fmt.Sprintf("build-studio-it-%d-", os.Getpid())

	h := &Harness{
		t:      t,
		config: cfg,
		app:    app.New(app.WithConfig(cfg), app.WithExecutor(exec)),
	}

	t.Cleanup(h.Cleanup)

	return h
}

// Config returns the harness configuration.
func (h *Harness) Config() *config.Config {
	return h.config
}

// App returns the harness application.
func (h *Harness) App() *app.App {
	return h.app
}

// NewApp returns a fresh app over the same configuration, as a second CLI
// invocation would see it.
func (h *Harness) NewApp() *app.App {
	return app.New(app.WithConfig(h.config))
}

// CreateNode creates a docker node and tracks it for cleanup.
func (h *Harness) CreateNode(name, platform string) string {
	h.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	id, err := h.app.Nodes.Create(ctx, backend.NodeConfig{
		Name:           name,
		Platform:       platform,
		Virtualization: backend.Docker,
	})
	if err != nil {
		h.t.Fatalf("Failed to create node %s: %v", name, err)
	}
	h.TrackNode(id)
	return id
}

// TrackNode adds a node id to the cleanup list.
func (h *Harness) TrackNode(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nodes = append(h.nodes, id)
}

// WaitForState reconciles until node id reaches state.
func (h *Harness) WaitForState(id string, state node.State, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		h.app.Reconcile(ctx)
		if n, err := h.app.Nodes.Get(id); err == nil && n.State == state {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("node %s not %s after %v", id, state, timeout)
		case <-ticker.C:
		}
	}
}

// Cleanup removes all tracked nodes.
func (h *Harness) Cleanup() {
	h.mu.Lock()
	ids := h.nodes
	h.nodes = nil
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for _, id := range ids {
		err := h.app.Nodes.Remove(ctx, id)
		if err == nil || errors.GetExitCode(err) == errors.ExitNodeNotFound {
			continue
		}
		h.t.Logf("Warning: failed to remove node %s: %v", id, err)
		// The registry entry is gone; remove the container directly.
		_ = h.app.Docker.Remove(ctx, backend.Target{NodeID: id})
	}
}
