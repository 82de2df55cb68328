package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hmjahid/build-studio/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Nodes.ContainerCommand != "docker" {
		t.Errorf("ContainerCommand = %q, want docker", cfg.Nodes.ContainerCommand)
	}
	if cfg.Nodes.ContainerPrefix != ContainerPrefix {
		t.Errorf("ContainerPrefix = %q, want %q", cfg.Nodes.ContainerPrefix, ContainerPrefix)
	}

	p := cfg.Policy()
	if !p.EnableSandbox || !p.NetworkIsolation {
		t.Errorf("Policy() = %+v, want sandbox and network isolation enabled", p)
	}
	if p.MaxBuildTime != time.Hour {
		t.Errorf("MaxBuildTime = %s, want 1h", p.MaxBuildTime)
	}
	if cfg.DiscoveryInterval() != 30*time.Second {
		t.Errorf("DiscoveryInterval() = %s, want 30s", cfg.DiscoveryInterval())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Nodes.ContainerCommand != "docker" {
		t.Errorf("ContainerCommand = %q, want docker", cfg.Nodes.ContainerCommand)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
state_dir = "/var/tmp/studio"

[security]
enable_sandbox = false
blocked_commands = ["sudo"]
max_build_time_seconds = 90

[nodes]
container_command = "podman"
discovery_interval_seconds = 5

[toolchains]
arm64 = "aarch64-linux-gnu-"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.StateDir != "/var/tmp/studio" {
		t.Errorf("StateDir = %q", cfg.StateDir)
	}
	if cfg.Security.EnableSandbox {
		t.Error("EnableSandbox = true, want false")
	}
	if len(cfg.Security.AllowedPaths) != 3 {
		t.Errorf("AllowedPaths = %v, want defaults preserved", cfg.Security.AllowedPaths)
	}
	if got := cfg.Policy().MaxBuildTime; got != 90*time.Second {
		t.Errorf("MaxBuildTime = %s, want 1m30s", got)
	}
	if cfg.Nodes.ContainerCommand != "podman" {
		t.Errorf("ContainerCommand = %q, want podman", cfg.Nodes.ContainerCommand)
	}
	if cfg.Nodes.ContainerPrefix != ContainerPrefix {
		t.Errorf("ContainerPrefix = %q, want default", cfg.Nodes.ContainerPrefix)
	}
	if cfg.Toolchains["arm64"] != "aarch64-linux-gnu-" {
		t.Errorf("Toolchains = %v", cfg.Toolchains)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax error", "state_dir = "},
		{"unknown key", "[nodes]\nbogus = 1\n"},
		{"invalid interval", "[nodes]\ndiscovery_interval_seconds = 0\n"},
		{"absolute allowed path", "[security]\nallowed_paths = [\"/etc\"]\n"},
		{"negative build time", "[security]\nmax_build_time_seconds = -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if errors.GetExitCode(err) != errors.ExitConfigError {
				t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitConfigError)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"BUILDSTUDIO_STATE_DIR":         "/srv/state",
		"BUILDSTUDIO_CONTAINER_COMMAND": "podman",
		"BUILDSTUDIO_ENABLE_SANDBOX":    "false",
		"BUILDSTUDIO_MAX_BUILD_TIME":    "10",
		"BUILDSTUDIO_METRICS_ADDR":      ":9000",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatalf("applyEnv() error = %v", err)
	}

	if cfg.StateDir != "/srv/state" {
		t.Errorf("StateDir = %q", cfg.StateDir)
	}
	if cfg.Nodes.ContainerCommand != "podman" {
		t.Errorf("ContainerCommand = %q", cfg.Nodes.ContainerCommand)
	}
	if cfg.Security.EnableSandbox {
		t.Error("EnableSandbox = true, want false")
	}
	if cfg.Security.MaxBuildTimeSeconds != 10 {
		t.Errorf("MaxBuildTimeSeconds = %d, want 10", cfg.Security.MaxBuildTimeSeconds)
	}
	if cfg.Metrics.Addr != ":9000" {
		t.Errorf("Metrics.Addr = %q", cfg.Metrics.Addr)
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	tests := map[string]string{
		"BUILDSTUDIO_ENABLE_SANDBOX": "maybe",
		"BUILDSTUDIO_MAX_BUILD_TIME": "1h",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			lookup := func(k string) (string, bool) {
				if k == key {
					return value, true
				}
				return "", false
			}
			if err := Default().applyEnv(lookup); err == nil {
				t.Errorf("applyEnv(%s=%s) error = nil, want error", key, value)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("BUILDSTUDIO_TEST_ONLY_VAR=from-dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("BUILDSTUDIO_TEST_ONLY_VAR") })

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if got := os.Getenv("BUILDSTUDIO_TEST_ONLY_VAR"); got != "from-dotenv" {
		t.Errorf("variable = %q, want from-dotenv", got)
	}

	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("LoadEnvFile(missing) error = %v", err)
	}
}

func TestValidateNodeName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"builder", false},
		{"Ubuntu-Node.1", false},
		{"a_b", false},
		{"", true},
		{"-leading", true},
		{"has space", true},
		{"../escape", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNodeName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}
}
