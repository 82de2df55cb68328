// Package config provides configuration loading for build-studio.
//
// # Configuration File
//
// Configuration is read from a TOML file, by default
// $XDG_CONFIG_HOME/build-studio/config.toml. Every key is optional; values
// are decoded on top of the built-in defaults and unknown keys are rejected:
//
//	state_dir = "/var/tmp/build-studio"
//
//	[security]
//	enable_sandbox = true
//	allowed_paths = ["./src", "./builds", "./packages"]
//	blocked_commands = ["rm", "rmdir", "mv", "cp", "chmod", "chown"]
//	network_isolation = true
//	max_build_time_seconds = 3600
//
//	[nodes]
//	container_command = "docker"
//	container_prefix = "build-studio-"
//	workspace_root = "/tmp"
//	discovery_interval_seconds = 30
//
//	[toolchains]
//	arm64 = "aarch64-linux-gnu-"
//
//	[metrics]
//	addr = "127.0.0.1:9477"
//
// # Environment
//
// A .env file in the working directory is loaded first (existing variables
// win), then BUILDSTUDIO_STATE_DIR, BUILDSTUDIO_CONTAINER_COMMAND,
// BUILDSTUDIO_WORKSPACE_ROOT, BUILDSTUDIO_METRICS_ADDR,
// BUILDSTUDIO_ENABLE_SANDBOX and BUILDSTUDIO_MAX_BUILD_TIME override the
// file.
package config
