package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/hmjahid/build-studio/internal/errors"
	"github.com/hmjahid/build-studio/internal/security"
)

const (
	// AppName names the config and state directories.
	AppName = "build-studio"

	// ContainerPrefix is prepended to node ids to form container names.
	ContainerPrefix = "build-studio-"

	// ManifestFile is the build manifest looked up in a project directory.
	ManifestFile = "buildstudio.config.yaml"

	// EnvPrefix is the prefix of environment overrides.
	EnvPrefix = "BUILDSTUDIO_"
)

// nodeNameRegex validates node names.
// Names start with a letter or digit, followed by letters, digits,
// underscores, dots or hyphens. Maximum length is 63 characters.
var nodeNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,62}$`)

// ValidateNodeName checks if a node name is valid.
func ValidateNodeName(name string) error {
	if name == "" {
		return fmt.Errorf("node name cannot be empty")
	}

	if !nodeNameRegex.MatchString(name) {
		return fmt.Errorf("invalid node name %q: must start with a letter or digit, contain only letters, digits, underscores, dots or hyphens, and be at most 63 characters", name)
	}

	return nil
}

// Config is the build-studio configuration file.
type Config struct {
	StateDir   string            `toml:"state_dir"`
	Security   SecurityConfig    `toml:"security"`
	Nodes      NodesConfig       `toml:"nodes"`
	Toolchains map[string]string `toml:"toolchains"`
	Metrics    MetricsConfig     `toml:"metrics"`
}

// SecurityConfig mirrors security.Policy with file-friendly units.
type SecurityConfig struct {
	EnableSandbox       bool     `toml:"enable_sandbox"`
	AllowedPaths        []string `toml:"allowed_paths"`
	BlockedCommands     []string `toml:"blocked_commands"`
	NetworkIsolation    bool     `toml:"network_isolation"`
	MaxBuildTimeSeconds int64    `toml:"max_build_time_seconds"`
}

// NodesConfig controls the container backend and discovery.
type NodesConfig struct {
	ContainerCommand         string `toml:"container_command"`
	ContainerPrefix          string `toml:"container_prefix"`
	WorkspaceRoot            string `toml:"workspace_root"`
	DiscoveryIntervalSeconds int    `toml:"discovery_interval_seconds"`
}

// MetricsConfig controls the serve command's HTTP listener.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	policy := security.DefaultPolicy()
	return &Config{
		StateDir: defaultStateDir(),
		Security: SecurityConfig{
			EnableSandbox:       policy.EnableSandbox,
			AllowedPaths:        policy.AllowedPaths,
			BlockedCommands:     policy.BlockedCommands,
			NetworkIsolation:    policy.NetworkIsolation,
			MaxBuildTimeSeconds: int64(policy.MaxBuildTime / time.Second),
		},
		Nodes: NodesConfig{
			ContainerCommand:         "docker",
			ContainerPrefix:          ContainerPrefix,
			WorkspaceRoot:            os.TempDir(),
			DiscoveryIntervalSeconds: 30,
		},
		Toolchains: map[string]string{},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9477",
		},
	}
}

func defaultStateDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, AppName)
	}
	return filepath.Join(os.TempDir(), AppName)
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, AppName, "config.toml")
	}
	return ""
}

// Policy converts the security section into a policy.
func (c *Config) Policy() security.Policy {
	return security.Policy{
		EnableSandbox:    c.Security.EnableSandbox,
		AllowedPaths:     append([]string(nil), c.Security.AllowedPaths...),
		BlockedCommands:  append([]string(nil), c.Security.BlockedCommands...),
		NetworkIsolation: c.Security.NetworkIsolation,
		MaxBuildTime:     time.Duration(c.Security.MaxBuildTimeSeconds) * time.Second,
	}
}

// DiscoveryInterval returns the periodic reconcile interval.
func (c *Config) DiscoveryInterval() time.Duration {
	return time.Duration(c.Nodes.DiscoveryIntervalSeconds) * time.Second
}

// Validate checks that the Config is valid.
func (c *Config) Validate() error {
	if c.StateDir == "" {
		return fmt.Errorf("state_dir is required")
	}
	if c.Security.MaxBuildTimeSeconds < 0 {
		return fmt.Errorf("security.max_build_time_seconds must not be negative")
	}
	if err := c.Policy().Verify(); err != nil {
		return fmt.Errorf("security: %w", err)
	}
	if c.Nodes.ContainerCommand == "" {
		return fmt.Errorf("nodes.container_command is required")
	}
	if c.Nodes.ContainerPrefix == "" {
		return fmt.Errorf("nodes.container_prefix is required")
	}
	if c.Nodes.DiscoveryIntervalSeconds <= 0 {
		return fmt.Errorf("nodes.discovery_interval_seconds must be positive (got %d)", c.Nodes.DiscoveryIntervalSeconds)
	}
	return nil
}

// Load reads the config file at path on top of the defaults, then applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			md, err := toml.DecodeFile(path, cfg)
			if err != nil {
				return nil, errors.ConfigError(fmt.Sprintf("failed to parse %s", path), err)
			}
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				keys := make([]string, len(undecoded))
				for i, k := range undecoded {
					keys[i] = k.String()
				}
				return nil, errors.ConfigError(fmt.Sprintf("unknown keys in %s: %s", path, strings.Join(keys, ", ")), nil)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.ConfigError(fmt.Sprintf("failed to read %s", path), err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigError("invalid configuration", err)
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.ConfigError(fmt.Sprintf("failed to load %s", path), err)
	}
	return nil
}

// applyEnv overrides fields from BUILDSTUDIO_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "STATE_DIR"); ok && v != "" {
		c.StateDir = v
	}
	if v, ok := lookup(EnvPrefix + "CONTAINER_COMMAND"); ok && v != "" {
		c.Nodes.ContainerCommand = v
	}
	if v, ok := lookup(EnvPrefix + "WORKSPACE_ROOT"); ok && v != "" {
		c.Nodes.WorkspaceRoot = v
	}
	if v, ok := lookup(EnvPrefix + "METRICS_ADDR"); ok && v != "" {
		c.Metrics.Addr = v
	}
	if v, ok := lookup(EnvPrefix + "ENABLE_SANDBOX"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.ConfigError(EnvPrefix+"ENABLE_SANDBOX must be a boolean", err)
		}
		c.Security.EnableSandbox = b
	}
	if v, ok := lookup(EnvPrefix + "MAX_BUILD_TIME"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.ConfigError(EnvPrefix+"MAX_BUILD_TIME must be a number of seconds", err)
		}
		c.Security.MaxBuildTimeSeconds = n
	}
	return nil
}

// AuditDir returns the directory holding the event logs.
func (c *Config) AuditDir() string {
	return filepath.Join(c.StateDir, "events")
}
