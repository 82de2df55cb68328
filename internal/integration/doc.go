// Package integration exercises complete build-studio code paths.
//
// Workflow tests run everywhere. They drive manifests, sandboxes, the
// build engine, the node registry and discovery together against the
// mock docker backend from testutil.
//
// Docker tests run the real docker backend and are skipped unless
// BUILDSTUDIO_INTEGRATION_TESTS=1 is set. They require:
//   - a reachable Docker daemon
//   - permission to run docker without sudo
//   - the alpine image, or network access to pull it
//
// # Test Harness
//
// Harness manages docker-backed environments:
//
//	func TestMyIntegration(t *testing.T) {
//	    h := integration.NewHarness(t) // Skips if env var not set
//
//	    id := h.CreateNode("my-node", "alpine")
//	    h.WaitForState(id, node.StateOnline, 30*time.Second)
//
//	    // Cleanup is automatic via t.Cleanup
//	}
//
// # Running Integration Tests
//
//	BUILDSTUDIO_INTEGRATION_TESTS=1 go test -v ./internal/integration/...
package integration
