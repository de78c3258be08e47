package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file.
// An empty path searches the standard locations; no file found leaves the defaults.
// CLI flags are layered on afterwards with BindFlags.
//
// Parameters:
//   - path: the config file path, or "" to search
//
// Returns:
//   - *Config: the loaded and validated configuration
//   - error: error if the file cannot be read or holds invalid values
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, errors.Wrapf(err, "loading config from %s", path)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./gltfload.yaml",
		"./gltfload.toml",
		filepath.Join(ConfigDir(), "config.yaml"),
		filepath.Join(ConfigDir(), "config.toml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "OxyGLTF")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "OxyGLTF")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "oxy-gltf")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "oxy-gltf")
	}
}

// loadFromFile merges the file at path into cfg. The format follows the file extension.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch format(path) {
	case formatTOML:
		return toml.Unmarshal(data, cfg)
	default:
		return yaml.Unmarshal(data, cfg)
	}
}

const (
	formatYAML = "yaml"
	formatTOML = "toml"
)

func format(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return formatTOML
	}
	return formatYAML
}
