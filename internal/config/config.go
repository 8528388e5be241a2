// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package config loads the recognized configuration options of spec.md §6:
// rebuild/save/checkMagic/serialization/database/defaultBinary/defaultText.
//
// Persisted defaults live in a YAML document (grounded on the teacher's
// module graph, which already carries gopkg.in/yaml.v3 as an indirect
// dependency); in-process overrides use the functional-options style of
// blkid.ProbeOptions/ProbeOption/applyProbeOptions.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the resolved configuration options of spec.md §6.
type Config struct { //nolint:govet
	Rebuild bool `yaml:"rebuild"`
	Save    bool `yaml:"save"`

	CheckMagic bool `yaml:"checkMagic"`

	Serialization string `yaml:"serialization"`
	Database      string `yaml:"database"`

	DefaultBinary string `yaml:"defaultBinary"`
	DefaultText   string `yaml:"defaultText"`
}

// Default returns the configuration with every spec.md §6 default applied.
func Default() Config {
	return Config{
		Rebuild:       false,
		Save:          true,
		CheckMagic:    false,
		DefaultBinary: "application/octet-stream",
		DefaultText:   "text/plain",
	}
}

// Option overrides a single field of a Config in process, without touching
// the on-disk document. Mirrors blkid.ProbeOption.
type Option func(*Config)

// WithRebuild forces an unconditional rebuild from the XML database.
func WithRebuild(rebuild bool) Option {
	return func(c *Config) { c.Rebuild = rebuild }
}

// WithSave controls whether a rebuilt repository is persisted back to the
// cache path.
func WithSave(save bool) Option {
	return func(c *Config) { c.Save = save }
}

// WithCheckMagic sets the Detector's default for alwaysCheckMagic.
func WithCheckMagic(check bool) Option {
	return func(c *Config) { c.CheckMagic = check }
}

// WithSerialization overrides the binary cache path.
func WithSerialization(path string) Option {
	return func(c *Config) { c.Serialization = path }
}

// WithDatabase overrides the XML database path.
func WithDatabase(path string) Option {
	return func(c *Config) { c.Database = path }
}

// WithDefaultBinary overrides the fallback binary MIME type.
func WithDefaultBinary(name string) Option {
	return func(c *Config) { c.DefaultBinary = name }
}

// WithDefaultText overrides the fallback text MIME type.
func WithDefaultText(name string) Option {
	return func(c *Config) { c.DefaultText = name }
}

func apply(c Config, opts ...Option) Config {
	for _, opt := range opts {
		opt(&c)
	}

	return c
}

// Load reads a YAML configuration document from path, overlays it onto the
// defaults, applies opts on top, and expands "${user.home}" in both path
// fields via os.UserHomeDir. A missing file is not an error: the defaults
// (plus opts) are returned as-is, mirroring a fresh install with no
// mimekit.yaml yet.
func Load(path string, opts ...Option) (Config, error) {
	c := Default()

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if decodeErr := yaml.Unmarshal(raw, &c); decodeErr != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, decodeErr)
		}
	case os.IsNotExist(err):
		// No document on disk: defaults stand.
	default:
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	c = apply(c, opts...)

	if c.Serialization, err = expandUserHome(c.Serialization); err != nil {
		return Config{}, err
	}

	if c.Database, err = expandUserHome(c.Database); err != nil {
		return Config{}, err
	}

	return c, nil
}

// New builds a Config from defaults and opts alone, with no backing file.
func New(opts ...Option) (Config, error) {
	c := apply(Default(), opts...)

	var err error

	if c.Serialization, err = expandUserHome(c.Serialization); err != nil {
		return Config{}, err
	}

	if c.Database, err = expandUserHome(c.Database); err != nil {
		return Config{}, err
	}

	return c, nil
}

const userHomeToken = "${user.home}"

func expandUserHome(path string) (string, error) {
	if !strings.Contains(path, userHomeToken) {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: expanding %s: %w", userHomeToken, err)
	}

	return strings.ReplaceAll(path, userHomeToken, home), nil
}

// Save persists c to path as YAML, creating parent directories as needed.
func Save(path string, c Config) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encoding %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec
		return fmt.Errorf("config: creating directory for %s: %w", path, err)
	}

	if err := os.WriteFile(path, out, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("config: writing %s: %w", path, err)
	}

	return nil
}
