package security

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/hmjahid/build-studio/internal/errors"
	"github.com/hmjahid/build-studio/internal/logging"
)

// SandboxPattern is the MkdirTemp pattern for sandbox directories created
// inside a project.
const SandboxPattern = ".sandbox-*"

// CreateSandbox materializes a sandbox for projectDir.
//
// With sandboxing disabled the project directory itself is returned and
// nothing is created. Otherwise a fresh directory is created inside the
// project and every allowed path that exists is copied into it at the same
// relative location. Allowed paths are resolved with securejoin, so entries
// such as "../etc" stay inside the project.
//
// On failure the partially populated sandbox path is still returned (when
// one was created) so the caller can clean it up.
func CreateSandbox(projectDir string, p Policy) (string, error) {
	if !p.EnableSandbox {
		return projectDir, nil
	}

	sandbox, err := os.MkdirTemp(projectDir, SandboxPattern)
	if err != nil {
		return "", errors.SandboxIO("create", err)
	}

	for _, allowed := range p.AllowedPaths {
		src, err := securejoin.SecureJoin(projectDir, allowed)
		if err != nil {
			return sandbox, errors.SandboxIO("resolve "+allowed, err)
		}
		dst, err := securejoin.SecureJoin(sandbox, allowed)
		if err != nil {
			return sandbox, errors.SandboxIO("resolve "+allowed, err)
		}

		info, err := os.Lstat(src)
		if os.IsNotExist(err) {
			logging.Debug("allowed path missing, skipping", "path", allowed)
			continue
		}
		if err != nil {
			return sandbox, errors.SandboxIO("stat "+allowed, err)
		}

		if info.IsDir() {
			err = copyTree(src, dst, sandbox)
		} else {
			err = copyEntry(src, dst, info)
		}
		if err != nil {
			return sandbox, errors.SandboxIO("copy "+allowed, err)
		}
	}

	logging.Debug("sandbox created", "path", sandbox, "project", projectDir)
	return sandbox, nil
}

// CleanupSandbox removes a sandbox directory tree. A missing directory is
// not an error.
func CleanupSandbox(path string) error {
	if path == "" {
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return errors.SandboxIO("cleanup", err)
	}
	return nil
}

// copyTree copies the directory src to dst. skip is never descended into,
// which keeps an allowed path of "." from copying the sandbox into itself.
func copyTree(src, dst, skip string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == skip {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyEntry(path, filepath.Join(dst, rel), info)
	})
}

func copyEntry(src, dst string, info fs.FileInfo) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	switch {
	case info.IsDir():
		return os.MkdirAll(dst, info.Mode().Perm()|0700)
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		return os.Symlink(target, dst)
	case info.Mode().IsRegular():
		return copyFile(src, dst, info.Mode().Perm())
	default:
		logging.Debug("skipping special file", "path", src, "mode", info.Mode().String())
		return nil
	}
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
