// Package manifest reads the per-project build manifest,
// buildstudio.config.yaml.
//
//	builds:
//	  - name: linux
//	    platform: linux
//	    command: make all
//	  - name: windows
//	    platform: windows
//	    language: c
//	    command: gcc -o app.exe main.c
//	package:
//	  type: deb
//	  name: app
//	  version: 1.2.0
//	  dependencies: [libc6]
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hmjahid/build-studio/internal/build"
	"github.com/hmjahid/build-studio/internal/config"
	"github.com/hmjahid/build-studio/internal/errors"
)

// Build is one build entry.
type Build struct {
	Name      string `yaml:"name" json:"name"`
	Platform  string `yaml:"platform" json:"platform"`
	Language  string `yaml:"language,omitempty" json:"language,omitempty"`
	Command   string `yaml:"command" json:"command"`
	Container string `yaml:"container,omitempty" json:"container,omitempty"`
}

// Package describes how artifacts would be packaged.
type Package struct {
	Type         string   `yaml:"type,omitempty" json:"type,omitempty"`
	Name         string   `yaml:"name,omitempty" json:"name,omitempty"`
	Version      string   `yaml:"version,omitempty" json:"version,omitempty"`
	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
}

// WithDefaults fills unset fields with app, 0.1.0 and deb.
func (p Package) WithDefaults() Package {
	if p.Name == "" {
		p.Name = "app"
	}
	if p.Version == "" {
		p.Version = "0.1.0"
	}
	if p.Type == "" {
		p.Type = "deb"
	}
	return p
}

// Manifest is a parsed buildstudio.config.yaml.
type Manifest struct {
	Builds  []Build  `yaml:"builds" json:"builds"`
	Package *Package `yaml:"package,omitempty" json:"package,omitempty"`
}

// Path returns the manifest location for a project directory.
func Path(projectDir string) string {
	return filepath.Join(projectDir, config.ManifestFile)
}

// Load reads the manifest of a project directory.
func Load(projectDir string) (*Manifest, error) {
	path := Path(projectDir)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("failed to read %s", path), err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("invalid manifest %s", path), err)
	}
	return m, nil
}

// Parse decodes and validates manifest YAML. Unknown keys are rejected.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that every build is runnable and names are unique.
func (m *Manifest) Validate() error {
	if len(m.Builds) == 0 {
		return fmt.Errorf("manifest has no builds")
	}
	seen := make(map[string]bool, len(m.Builds))
	for i, b := range m.Builds {
		if b.Name == "" {
			return fmt.Errorf("builds[%d]: name is required", i)
		}
		if b.Command == "" {
			return fmt.Errorf("build %s: command is required", b.Name)
		}
		if seen[b.Name] {
			return fmt.Errorf("duplicate build name %q", b.Name)
		}
		seen[b.Name] = true
	}
	return nil
}

// Steps returns the builds as engine steps. A non-empty name selects a
// single build.
func (m *Manifest) Steps(name string) ([]build.Step, error) {
	var steps []build.Step
	for _, b := range m.Builds {
		if name != "" && b.Name != name {
			continue
		}
		steps = append(steps, build.Step{Name: b.Name, Platform: b.Platform, Command: b.Command})
	}
	if name != "" && len(steps) == 0 {
		return nil, errors.ValidationError(fmt.Sprintf("no build named %q in manifest", name))
	}
	return steps, nil
}
