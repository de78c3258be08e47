package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Save writes the config to the user's config directory as YAML.
func (c *Config) Save() error {
	return c.SaveTo(filepath.Join(ConfigDir(), "config.yaml"))
}

// SaveTo writes the config to a specific path, in TOML for .toml files and YAML otherwise.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch format(path) {
	case formatTOML:
		data, err = toml.Marshal(c)
	default:
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return errors.Wrap(err, "encode config")
	}

	return os.WriteFile(path, data, 0644)
}
