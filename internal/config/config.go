// Package config loads hydronet's YAML settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/agentic-research/hydronet/internal/traverse"
)

// Config holds the settings command-line flags fall back to.
type Config struct {
	Debug bool `yaml:"debug"`
	// Schema is a path to a JSON or YAML schema file. Empty means the
	// built-in NHDPlus schema.
	Schema        string `yaml:"schema,omitempty"`
	Policy        string `yaml:"policy"`
	Workers       int    `yaml:"workers"`
	Format        string `yaml:"format"`
	AllowBoundary bool   `yaml:"allow_boundary"`
}

// Formats lists the supported output encodings.
var Formats = []string{"json", "msgpack"}

func Default() Config {
	return Config{
		Policy:  traverse.DefaultPolicyName,
		Workers: 4,
		Format:  "json",
	}
}

// DefaultPath is ~/.hydronet/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".hydronet", "config.yaml"), nil
}

// Load reads path over the defaults. An empty path tries DefaultPath and
// quietly keeps the defaults when no file exists there.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read the config file %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	if _, err := traverse.PolicyByName(c.Policy); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("unknown format %q (want one of %v)", c.Format, Formats)
	}
	return nil
}

// Save writes c to path, creating the directory if needed.
func Save(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
