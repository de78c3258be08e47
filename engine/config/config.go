// Package config holds the loader configuration and its YAML/TOML persistence.
package config

import (
	"time"

	"github.com/pkg/errors"
)

// Normal and tangent generation strategies.
const (
	StrategyIfMissing = "if_missing"
	StrategyAlways    = "always"
	StrategyNever     = "never"
)

// Pivot placements.
const (
	PivotAsset  = "asset"
	PivotCenter = "center"
	PivotTop    = "top"
	PivotBottom = "bottom"
)

// Config holds all loader configuration.
type Config struct {
	Loader  LoaderConfig  `yaml:"loader" toml:"loader"`
	Mesh    MeshConfig    `yaml:"mesh" toml:"mesh"`
	Skin    SkinConfig    `yaml:"skin" toml:"skin"`
	Fetch   FetchConfig   `yaml:"fetch" toml:"fetch"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// LoaderConfig holds request scheduling settings.
type LoaderConfig struct {
	Workers     int      `yaml:"workers" toml:"workers"`
	QueueSize   int      `yaml:"queue_size" toml:"queue_size"`
	IdleTimeout Duration `yaml:"idle_timeout" toml:"idle_timeout"`
	Extensions  []string `yaml:"extensions" toml:"extensions"` // Supported glTF extensions
	CacheModels bool     `yaml:"cache_models" toml:"cache_models"`
}

// MeshConfig holds mesh synthesis settings.
type MeshConfig struct {
	Normals         string `yaml:"normals" toml:"normals"`
	Tangents        string `yaml:"tangents" toml:"tangents"`
	ReverseWinding  bool   `yaml:"reverse_winding" toml:"reverse_winding"`
	ReverseTangents bool   `yaml:"reverse_tangents" toml:"reverse_tangents"`
	Pivot           string `yaml:"pivot" toml:"pivot"`

	// PivotSocket names a socket that records where the source origin ended up after the pivot moved.
	// Empty disables it.
	PivotSocket string `yaml:"pivot_socket" toml:"pivot_socket"`
}

// SkinConfig holds skin influence settings.
type SkinConfig struct {
	MaxInfluences      int     `yaml:"max_influences" toml:"max_influences"`
	PrecisionThreshold float32 `yaml:"precision_threshold" toml:"precision_threshold"` // Fraction of discarded weight that triggers a warning
}

// FetchConfig holds external resource fetch settings.
type FetchConfig struct {
	Timeout Duration `yaml:"timeout" toml:"timeout"`
	Retries int      `yaml:"retries" toml:"retries"`
	Backoff Duration `yaml:"backoff" toml:"backoff"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level" toml:"level"`
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
	Compress   bool   `yaml:"compress" toml:"compress"`
}

// DefaultExtensions lists the glTF extensions the loader understands.
var DefaultExtensions = []string{
	"KHR_materials_emissive_strength",
	"KHR_materials_unlit",
	"KHR_texture_transform",
	"EXT_texture_webp",
	"KHR_mesh_quantization",
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Loader: LoaderConfig{
			Workers:     4,
			QueueSize:   64,
			IdleTimeout: Duration(30 * time.Second),
			Extensions:  append([]string(nil), DefaultExtensions...),
			CacheModels: true,
		},
		Mesh: MeshConfig{
			Normals:  StrategyIfMissing,
			Tangents: StrategyIfMissing,
			Pivot:    PivotAsset,
		},
		Skin: SkinConfig{
			MaxInfluences:      4,
			PrecisionThreshold: 0.05,
		},
		Fetch: FetchConfig{
			Timeout: Duration(30 * time.Second),
			Retries: 1,
			Backoff: Duration(250 * time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// Validate rejects values the loader cannot work with.
func (c *Config) Validate() error {
	if c.Loader.Workers < 1 {
		return errors.Errorf("loader.workers must be at least 1, got %d", c.Loader.Workers)
	}
	if c.Loader.QueueSize < 0 {
		return errors.Errorf("loader.queue_size must not be negative, got %d", c.Loader.QueueSize)
	}
	if !isStrategy(c.Mesh.Normals) {
		return errors.Errorf("mesh.normals: unknown strategy %q", c.Mesh.Normals)
	}
	if !isStrategy(c.Mesh.Tangents) {
		return errors.Errorf("mesh.tangents: unknown strategy %q", c.Mesh.Tangents)
	}
	switch c.Mesh.Pivot {
	case PivotAsset, PivotCenter, PivotTop, PivotBottom:
	default:
		return errors.Errorf("mesh.pivot: unknown pivot %q", c.Mesh.Pivot)
	}
	if c.Skin.MaxInfluences < 1 {
		return errors.Errorf("skin.max_influences must be at least 1, got %d", c.Skin.MaxInfluences)
	}
	if c.Skin.PrecisionThreshold < 0 || c.Skin.PrecisionThreshold > 1 {
		return errors.Errorf("skin.precision_threshold must be within [0,1], got %g", c.Skin.PrecisionThreshold)
	}
	if c.Fetch.Retries < 0 {
		return errors.Errorf("fetch.retries must not be negative, got %d", c.Fetch.Retries)
	}
	if c.Fetch.Timeout < 0 || c.Fetch.Backoff < 0 {
		return errors.New("fetch durations must not be negative")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	return nil
}

func isStrategy(s string) bool {
	return s == StrategyIfMissing || s == StrategyAlways || s == StrategyNever
}

// Duration is a time.Duration that reads and writes as text such as "250ms".
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Set implements flag.Value.
func (d *Duration) Set(s string) error {
	return d.UnmarshalText([]byte(s))
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "parse duration %q", text)
	}
	*d = Duration(v)
	return nil
}
