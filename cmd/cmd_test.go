package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/hmjahid/build-studio/internal/backend"
	"github.com/hmjahid/build-studio/internal/build"
	"github.com/hmjahid/build-studio/internal/errors"
	"github.com/hmjahid/build-studio/internal/logging"
	"github.com/hmjahid/build-studio/internal/node"
	"github.com/hmjahid/build-studio/internal/testutil"
)

// testEnv wraps the shared test environment with the CLI's config file.
type testEnv struct {
	*testutil.TestEnv
	configPath string
	docker     *backend.MockBackend
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	base := testutil.NewTestEnv(t)
	env := &testEnv{
		TestEnv:    base,
		configPath: base.WriteConfig("\n[toolchains]\narm64 = \"aarch64-linux-gnu-\"\n"),
		docker:     base.Docker,
	}

	prev := newApp
	newApp = base.NewApp
	t.Cleanup(func() { newApp = prev })

	return env
}

func (e *testEnv) projectDir(t *testing.T) string {
	t.Helper()
	return e.CreateProject("project", testutil.DefaultProject())
}

// execute runs the root command with the test config prepended.
func (e *testEnv) execute(args ...string) (string, string, error) {
	return executeCommand(append([]string{"--config", e.configPath}, args...)...)
}

func executeCommand(args ...string) (string, string, error) {
	// Reset flag values before each test
	verbose = false
	jsonOutput = false
	configPath = ""
	nodesOutput = "table"
	createPlatform = "linux"
	createMemory = 0
	createCPUs = 0
	createDisk = 0
	createVirtualization = string(backend.Auto)
	createInstallTools = false
	runDir = "."
	runPlatform = ""
	runNoSandbox = false
	runMaxBuildTime = 0
	buildStep = ""
	buildWatch = false
	buildNoSandbox = false
	buildMaxBuildTime = 0
	buildFailFast = false

	cmd := rootCmd
	cmd.SetArgs(args)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	prevOut, prevErr := logging.Stdout, logging.Stderr
	logging.Stdout, logging.Stderr = &stdout, &stderr

	err := cmd.Execute()

	// Reset args for next test
	cmd.SetArgs(nil)
	cmd.SetOut(nil)
	cmd.SetErr(nil)
	logging.Stdout, logging.Stderr = prevOut, prevErr

	return stdout.String(), stderr.String(), err
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestRootHelp(t *testing.T) {
	stdout, _, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}

	for _, want := range []string{"build", "run", "nodes", "sandbox", "toolchain", "serve"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output missing command %q", want)
		}
	}
	for _, flag := range []string{"--verbose", "--json", "--config"} {
		if !strings.Contains(stdout, flag) {
			t.Errorf("help output missing flag %q", flag)
		}
	}
}

func TestCommandsRequireArgs(t *testing.T) {
	env := setupTestEnv(t)

	tests := [][]string{
		{"run"},
		{"build"},
		{"toolchain"},
		{"sandbox", "validate"},
		{"nodes", "create"},
		{"nodes", "start"},
		{"nodes", "rm"},
	}

	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			if _, _, err := env.execute(args...); err == nil {
				t.Errorf("%v without arguments should fail", args)
			}
		})
	}
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[nodes]\nbogus = true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, _, err := executeCommand("--config", path, "toolchain", "linux")
	if err == nil {
		t.Fatal("expected config error")
	}
	if errors.GetExitCode(err) != errors.ExitConfigError {
		t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitConfigError)
	}
}

func TestToolchainCommand(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		platform string
		want     []string
	}{
		{"linux", []string{"kind:     native", "(none)"}},
		{"windows", []string{"kind:     mingw", "x86_64-w64-mingw32-"}},
		{"arm64", []string{"kind:     custom", "aarch64-linux-gnu-"}},
	}

	for _, tt := range tests {
		t.Run(tt.platform, func(t *testing.T) {
			stdout, _, err := env.execute("toolchain", tt.platform)
			if err != nil {
				t.Fatalf("toolchain failed: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(stdout, want) {
					t.Errorf("output %q missing %q", stdout, want)
				}
			}
		})
	}
}

func TestSandboxValidate(t *testing.T) {
	env := setupTestEnv(t)

	stdout, _, err := env.execute("sandbox", "validate", "make", "all")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(stdout, "Allowed: make all") {
		t.Errorf("stdout = %q", stdout)
	}

	_, stderr, err := env.execute("sandbox", "validate", "rm -rf build")
	if err == nil {
		t.Fatal("expected policy violation")
	}
	if errors.GetExitCode(err) != errors.ExitPolicyViolation {
		t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitPolicyViolation)
	}
	if !strings.Contains(stderr, `"rm"`) {
		t.Errorf("stderr = %q, want the matching token", stderr)
	}
}

func TestSandboxCreateAndCleanup(t *testing.T) {
	env := setupTestEnv(t)
	project := env.projectDir(t)

	stdout, _, err := env.execute("sandbox", "create", project)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	sandbox := strings.TrimSpace(stdout)
	t.Cleanup(func() { os.RemoveAll(sandbox) })

	if _, err := os.Stat(filepath.Join(sandbox, "src", "main.c")); err != nil {
		t.Errorf("sandbox is missing copied source: %v", err)
	}

	if _, _, err := env.execute("sandbox", "cleanup", project); err == nil {
		t.Error("cleanup of a non-sandbox directory should fail")
	}

	if _, _, err := env.execute("sandbox", "cleanup", sandbox); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if _, err := os.Stat(sandbox); !os.IsNotExist(err) {
		t.Errorf("sandbox still exists after cleanup")
	}
}

func TestCommandLine(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"cd src && make"}, "cd src && make"},
		{[]string{"gcc", "-o", "app", "main.c"}, "gcc -o app main.c"},
		{[]string{"echo", "hello world"}, "echo 'hello world'"},
	}

	for _, tt := range tests {
		if got := commandLine(tt.args); got != tt.want {
			t.Errorf("commandLine(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestRunCommand(t *testing.T) {
	requireShell(t)
	env := setupTestEnv(t)
	project := env.projectDir(t)

	stdout, _, err := env.execute("run", "--dir", project, "--", "ls src && echo built")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(stdout, "main.c") || !strings.Contains(stdout, "built") {
		t.Errorf("stdout = %q, want streamed output", stdout)
	}
}

func TestRunCommand_Failures(t *testing.T) {
	requireShell(t)
	env := setupTestEnv(t)
	project := env.projectDir(t)

	_, _, err := env.execute("run", "--dir", project, "--", "exit 3")
	if errors.GetExitCode(err) != errors.ExitProcessExit {
		t.Errorf("non-zero exit: code = %d, err = %v", errors.GetExitCode(err), err)
	}

	_, _, err = env.execute("run", "--dir", project, "--", "cp a b")
	if errors.GetExitCode(err) != errors.ExitPolicyViolation {
		t.Errorf("blocked command: code = %d, err = %v", errors.GetExitCode(err), err)
	}

	_, _, err = env.execute("run", "--dir", project, "--max-build-time", "100ms", "--", "sleep 5")
	if errors.GetExitCode(err) != errors.ExitTimeout {
		t.Errorf("timeout: code = %d, err = %v", errors.GetExitCode(err), err)
	}
}

func TestBuildCommand(t *testing.T) {
	requireShell(t)
	env := setupTestEnv(t)
	project := env.projectDir(t)

	manifest := `builds:
  - name: compile
    command: echo compiling
  - name: broken
    command: exit 1
  - name: package
    command: echo packaging
`
	env.WriteManifest(project, manifest)

	stdout, _, err := env.execute("build", project)
	if err == nil {
		t.Fatal("expected the broken build to fail the command")
	}
	if !strings.Contains(stdout, "[compile] compiling") || !strings.Contains(stdout, "[package] packaging") {
		t.Errorf("stdout = %q, want every build to run", stdout)
	}

	stdout, _, err = env.execute("build", "--step", "package", project)
	if err != nil {
		t.Fatalf("build --step failed: %v", err)
	}
	if strings.Contains(stdout, "compiling") {
		t.Errorf("--step ran other builds: %q", stdout)
	}

	if _, _, err := env.execute("build", "--step", "missing", project); err == nil {
		t.Error("unknown step should fail")
	}
}

func TestRunSteps_ReportsUnstartedBuilds(t *testing.T) {
	env := setupTestEnv(t)
	project := env.projectDir(t)

	var stdout, stderr bytes.Buffer
	prevOut, prevErr := logging.Stdout, logging.Stderr
	logging.Stdout, logging.Stderr = &stdout, &stderr
	defer func() { logging.Stdout, logging.Stderr = prevOut, prevErr }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &cobra.Command{}
	c.SetOut(&stdout)
	c.SetErr(&stderr)
	steps := []build.Step{{Name: "compile", Command: "true"}, {Name: "package", Command: "true"}}

	err := runSteps(ctx, c, project, env.App.Policy(), steps)
	if err == nil {
		t.Fatal("runSteps() error = nil, want cancellation")
	}
	if !strings.Contains(err.Error(), "0 of 2 builds failed, 2 not started") {
		t.Errorf("error = %v, want unstarted builds reported", err)
	}
	for _, name := range []string{"compile", "package"} {
		if !strings.Contains(stderr.String(), "Build '"+name+"' was not started") {
			t.Errorf("stderr = %q, want %s reported as not started", stderr.String(), name)
		}
	}
	if strings.Contains(stdout.String(), "Running build") {
		t.Errorf("stdout = %q, no build should have run", stdout.String())
	}
}

func TestNodesLifecycle(t *testing.T) {
	env := setupTestEnv(t)

	stdout, _, err := env.execute("nodes", "create", "builder", "--platform", "alpine", "--memory", "2048")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	id := lines[len(lines)-1]
	if id == "" {
		t.Fatal("create did not print an id")
	}
	if len(env.docker.GetCallsFor("Create")) != 1 {
		t.Fatalf("backend Create calls = %d, want 1", len(env.docker.GetCallsFor("Create")))
	}

	// Each invocation builds a fresh registry; the node must be rediscovered.
	stdout, _, err = env.execute("nodes", "ls")
	if err != nil {
		t.Fatalf("ls failed: %v", err)
	}
	if !strings.Contains(stdout, id) || !strings.Contains(stdout, "online") {
		t.Errorf("ls output = %q, want node %s online", stdout, id)
	}

	if _, _, err := env.execute("nodes", "stop", id); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	stdout, _, err = env.execute("nodes", "ls", "-o", "json")
	if err != nil {
		t.Fatalf("ls -o json failed: %v", err)
	}
	var nodes []node.Node
	if err := json.Unmarshal([]byte(stdout), &nodes); err != nil {
		t.Fatalf("ls json is invalid: %v\n%s", err, stdout)
	}
	if len(nodes) != 1 || nodes[0].State != node.StateOffline {
		t.Errorf("nodes = %+v, want one offline node", nodes)
	}

	if _, _, err := env.execute("nodes", "start", id); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, _, err := env.execute("nodes", "rm", id); err != nil {
		t.Fatalf("rm failed: %v", err)
	}

	stdout, _, err = env.execute("nodes", "ls")
	if err != nil {
		t.Fatalf("ls failed: %v", err)
	}
	if strings.Contains(stdout, id) {
		t.Errorf("removed node still listed: %q", stdout)
	}
}

func TestNodesUnknownID(t *testing.T) {
	env := setupTestEnv(t)

	_, _, err := env.execute("nodes", "start", "no-such-node")
	if errors.GetExitCode(err) != errors.ExitNodeNotFound {
		t.Errorf("exit code = %d, want %d (err = %v)", errors.GetExitCode(err), errors.ExitNodeNotFound, err)
	}
}

func TestNodesCreate_UnimplementedTechnology(t *testing.T) {
	env := setupTestEnv(t)

	_, _, err := env.execute("nodes", "create", "vm", "--virtualization", "kvm")
	if errors.GetExitCode(err) != errors.ExitBackendNotImplemented {
		t.Errorf("exit code = %d, want %d (err = %v)", errors.GetExitCode(err), errors.ExitBackendNotImplemented, err)
	}

	_, _, err = env.execute("nodes", "create", "vm", "--virtualization", "bogus")
	if errors.GetExitCode(err) != errors.ExitGeneralError {
		t.Errorf("exit code = %d, want %d (err = %v)", errors.GetExitCode(err), errors.ExitGeneralError, err)
	}
}

func TestNodesScanAdoptsExternalEnvironment(t *testing.T) {
	env := setupTestEnv(t)
	env.docker.AddEnvironment(backend.Observed{
		NodeID:    "external",
		Name:      "external",
		Handle:    backend.Handle{ContainerID: "abc123"},
		Running:   true,
		Status:    "running",
		CreatedAt: time.Now().Add(-time.Hour),
	})

	stdout, _, err := env.execute("nodes", "scan")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !strings.Contains(stdout, "1 adopted") {
		t.Errorf("scan output = %q, want one adoption", stdout)
	}
}

func TestNodesCaps(t *testing.T) {
	env := setupTestEnv(t)

	stdout, _, err := env.execute("nodes", "caps", "-o", "json")
	if err != nil {
		t.Fatalf("caps failed: %v", err)
	}
	var caps backend.Capabilities
	if err := json.Unmarshal([]byte(stdout), &caps); err != nil {
		t.Fatalf("caps json is invalid: %v", err)
	}
	if !caps.Docker || caps.KVM {
		t.Errorf("caps = %+v, want docker only", caps)
	}
}
