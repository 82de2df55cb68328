package backend

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hmjahid/build-studio/internal/errors"
	"github.com/hmjahid/build-studio/internal/logging"
	"github.com/hmjahid/build-studio/internal/system"
)

// DefaultImage is used for platforms missing from the image table.
const DefaultImage = "ubuntu:22.04"

var platformImages = map[string]string{
	"ubuntu-22.04": "ubuntu:22.04",
	"ubuntu-20.04": "ubuntu:20.04",
	"debian-11":    "debian:11",
	"alpine-3.18":  "alpine:3.18",
	"centos-8":     "centos:8",
}

// ImageForPlatform maps a node platform to a container image.
func ImageForPlatform(platform string) string {
	if image, ok := platformImages[platform]; ok {
		return image
	}
	return DefaultImage
}

// createdAtLayout is the format of {{.CreatedAt}} in docker ps output.
const createdAtLayout = "2006-01-02 15:04:05 -0700 MST"

// DockerBackend implements Backend with the Docker or Podman CLI.
type DockerBackend struct {
	// Command is the container command to use (docker or podman)
	Command string

	// ContainerPrefix is prepended to node ids to form container names
	ContainerPrefix string

	// WorkspaceRoot holds the per-node workspace directories mounted at
	// /workspace inside each container.
	WorkspaceRoot string

	Exec system.CommandExecutor
	FS   system.FileSystem
}

// NewDockerBackend creates a container backend.
func NewDockerBackend(command, prefix, workspaceRoot string, exec system.CommandExecutor, fs system.FileSystem) *DockerBackend {
	return &DockerBackend{
		Command:         command,
		ContainerPrefix: prefix,
		WorkspaceRoot:   workspaceRoot,
		Exec:            exec,
		FS:              fs,
	}
}

// Technology returns Docker.
func (b *DockerBackend) Technology() Technology {
	return Docker
}

// ContainerName returns the container name for a node id.
func (b *DockerBackend) ContainerName(id string) string {
	return b.ContainerPrefix + id
}

// WorkspaceDir returns the host directory mounted into a node's container.
func (b *DockerBackend) WorkspaceDir(id string) string {
	return filepath.Join(b.WorkspaceRoot, b.ContainerName(id))
}

// ref picks the name the CLI is addressed with for t.
func (b *DockerBackend) ref(t Target) string {
	if t.NodeID != "" {
		return b.ContainerName(t.NodeID)
	}
	return t.Handle.ContainerID
}

// runCmd executes a docker/podman command and returns its stdout.
func (b *DockerBackend) runCmd(ctx context.Context, args ...string) (string, error) {
	out, err := b.Exec.Output(ctx, b.Command, args...)
	return string(out), err
}

// Create pulls the platform image and starts a long-lived container with
// the node's resources and workspace mount, then installs build tools when
// asked to.
func (b *DockerBackend) Create(ctx context.Context, id string, cfg NodeConfig) (Handle, error) {
	name := b.ContainerName(id)
	image := ImageForPlatform(cfg.Platform)
	log := logging.With("container", name, "image", image)

	log.Debug("pulling image")
	if _, err := b.runCmd(ctx, "pull", image); err != nil {
		return Handle{}, errors.BackendFailed(b.Command, "pull "+image, err)
	}

	workspace := b.WorkspaceDir(id)
	if err := b.FS.MkdirAll(workspace, 0755); err != nil {
		return Handle{}, errors.BackendFailed(b.Command, "create workspace", err)
	}

	args := []string{"run", "-d", "--name", name}
	if cfg.MemoryMB > 0 {
		args = append(args, "--memory", fmt.Sprintf("%dm", cfg.MemoryMB))
	}
	if cfg.CPUCores > 0 {
		args = append(args, "--cpus", strconv.Itoa(cfg.CPUCores))
	}
	args = append(args, "-v", workspace+":/workspace", image, "sleep", "infinity")

	log.Debug("creating container")
	out, err := b.runCmd(ctx, args...)
	if err != nil {
		_ = b.FS.RemoveAll(workspace)
		return Handle{}, errors.BackendFailed(b.Command, "run", err)
	}

	containerID := strings.TrimSpace(out)
	if containerID == "" {
		containerID = name
	}

	if cfg.InstallBuildTools {
		report, err := b.InstallBuildTools(ctx, containerID, image, cfg.Languages)
		if err != nil {
			b.rollback(ctx, name, workspace)
			return Handle{}, errors.BackendFailed(b.Command, "install build tools", err)
		}
		for lang, langErr := range report.Failed {
			log.Warn("language toolchain install failed", "language", lang, "error", langErr)
		}
	}

	return Handle{ContainerID: containerID}, nil
}

// rollback removes a half-created node. Failures are logged only.
func (b *DockerBackend) rollback(ctx context.Context, name, workspace string) {
	if _, err := b.runCmd(ctx, "rm", "-f", name); err != nil {
		logging.Warn("rollback: failed to remove container", "container", name, "error", err)
	}
	if err := b.FS.RemoveAll(workspace); err != nil {
		logging.Warn("rollback: failed to remove workspace", "path", workspace, "error", err)
	}
}

// Start starts an existing container
func (b *DockerBackend) Start(ctx context.Context, t Target) error {
	name := b.ref(t)
	logging.Debug("starting container", "container", name)

	if _, err := b.runCmd(ctx, "start", name); err != nil {
		return errors.BackendFailed(b.Command, "start", err)
	}
	return nil
}

// Stop stops a running container
func (b *DockerBackend) Stop(ctx context.Context, t Target) error {
	name := b.ref(t)
	logging.Debug("stopping container", "container", name)

	if _, err := b.runCmd(ctx, "stop", name); err != nil {
		return errors.BackendFailed(b.Command, "stop", err)
	}
	return nil
}

// Remove force-removes a container and its workspace directory. A
// container that no longer exists is not an error.
func (b *DockerBackend) Remove(ctx context.Context, t Target) error {
	name := b.ref(t)
	logging.Debug("removing container", "container", name)

	if _, err := b.runCmd(ctx, "rm", "-f", name); err != nil && !isNoSuchContainer(err) {
		return errors.BackendFailed(b.Command, "remove", err)
	}

	if t.NodeID != "" {
		if err := b.FS.RemoveAll(b.WorkspaceDir(t.NodeID)); err != nil {
			logging.Warn("failed to remove node workspace", "node", t.NodeID, "error", err)
		}
	}
	return nil
}

func isNoSuchContainer(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such container")
}

// List returns every container whose name carries the prefix.
func (b *DockerBackend) List(ctx context.Context) ([]Observed, error) {
	out, err := b.runCmd(ctx, "ps", "-a",
		"--filter", "name="+b.ContainerPrefix,
		"--format", "{{.ID}}\t{{.Names}}\t{{.Image}}\t{{.Status}}\t{{.CreatedAt}}")
	if err != nil {
		return nil, errors.BackendUnavailable(b.Command, err)
	}

	var observed []Observed
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) < 4 {
			continue
		}
		name := parts[1]
		if !strings.HasPrefix(name, b.ContainerPrefix) {
			continue
		}

		o := Observed{
			NodeID:     strings.TrimPrefix(name, b.ContainerPrefix),
			Name:       name,
			Technology: Docker,
			Handle:     Handle{ContainerID: parts[0]},
			Image:      parts[2],
			Status:     parts[3],
			Running:    strings.HasPrefix(parts[3], "Up"),
		}
		if len(parts) > 4 {
			if created, err := time.Parse(createdAtLayout, parts[4]); err == nil {
				o.CreatedAt = created
			}
		}
		observed = append(observed, o)
	}

	return observed, nil
}

// Ensure DockerBackend implements Backend and Lister
var (
	_ Backend = (*DockerBackend)(nil)
	_ Lister  = (*DockerBackend)(nil)
)
