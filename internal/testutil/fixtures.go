package testutil

import (
	"embed"

	"github.com/BurntSushi/toml"

	"github.com/hmjahid/build-studio/internal/config"
	"github.com/hmjahid/build-studio/internal/manifest"
)

//go:embed fixtures/*
var fixturesFS embed.FS

// LoadFixture loads a fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// LoadManifestFixture parses a manifest fixture.
func LoadManifestFixture(name string) (*manifest.Manifest, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	return manifest.Parse(data)
}

// LoadConfigFixture decodes a config fixture on top of the defaults.
func LoadConfigFixture(name string) (*config.Config, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	cfg := config.Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidManifest returns the valid manifest fixture.
func ValidManifest() (*manifest.Manifest, error) {
	return LoadManifestFixture("valid_manifest.yaml")
}

// InvalidManifest returns the raw manifest fixture with duplicate names.
func InvalidManifest() ([]byte, error) {
	return LoadFixture("invalid_manifest.yaml")
}

// ValidConfig returns the valid config fixture.
func ValidConfig() (*config.Config, error) {
	return LoadConfigFixture("valid_config.toml")
}
