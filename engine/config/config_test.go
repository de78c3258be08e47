package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Loader.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Loader.Workers)
	}
	if len(cfg.Loader.Extensions) != len(DefaultExtensions) {
		t.Errorf("expected %d extensions, got %d", len(DefaultExtensions), len(cfg.Loader.Extensions))
	}
	if cfg.Mesh.Normals != StrategyIfMissing || cfg.Mesh.Tangents != StrategyIfMissing {
		t.Errorf("expected if_missing strategies, got %s/%s", cfg.Mesh.Normals, cfg.Mesh.Tangents)
	}
	if cfg.Mesh.Pivot != PivotAsset {
		t.Errorf("expected asset pivot, got %s", cfg.Mesh.Pivot)
	}
	if cfg.Skin.MaxInfluences != 4 {
		t.Errorf("expected 4 influences, got %d", cfg.Skin.MaxInfluences)
	}
	if cfg.Skin.PrecisionThreshold != 0.05 {
		t.Errorf("expected threshold 0.05, got %f", cfg.Skin.PrecisionThreshold)
	}
	if cfg.Fetch.Retries != 1 {
		t.Errorf("expected 1 retry, got %d", cfg.Fetch.Retries)
	}
	if cfg.Fetch.Backoff.Std() != 250*time.Millisecond {
		t.Errorf("expected 250ms backoff, got %v", cfg.Fetch.Backoff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
loader:
  workers: 8
  extensions: [KHR_materials_unlit]
mesh:
  normals: always
  pivot: bottom
  reverse_winding: true
skin:
  max_influences: 8
fetch:
  timeout: 2s
  backoff: 10ms
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Loader.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Loader.Workers)
	}
	if len(cfg.Loader.Extensions) != 1 || cfg.Loader.Extensions[0] != "KHR_materials_unlit" {
		t.Errorf("unexpected extensions %v", cfg.Loader.Extensions)
	}
	if cfg.Mesh.Normals != StrategyAlways || cfg.Mesh.Pivot != PivotBottom || !cfg.Mesh.ReverseWinding {
		t.Errorf("unexpected mesh config %+v", cfg.Mesh)
	}
	if cfg.Mesh.Tangents != StrategyIfMissing {
		t.Errorf("expected default tangents to survive, got %s", cfg.Mesh.Tangents)
	}
	if cfg.Fetch.Timeout.Std() != 2*time.Second || cfg.Fetch.Backoff.Std() != 10*time.Millisecond {
		t.Errorf("unexpected fetch config %+v", cfg.Fetch)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %s", cfg.Logging.Level)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[loader]
workers = 2

[fetch]
timeout = "500ms"
retries = 3

[mesh]
pivot = "center"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Loader.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.Loader.Workers)
	}
	if cfg.Fetch.Timeout.Std() != 500*time.Millisecond || cfg.Fetch.Retries != 3 {
		t.Errorf("unexpected fetch config %+v", cfg.Fetch)
	}
	if cfg.Mesh.Pivot != PivotCenter {
		t.Errorf("expected center pivot, got %s", cfg.Mesh.Pivot)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad yaml", "config.yaml", "loader: [unclosed"},
		{"bad strategy", "config.yaml", "mesh:\n  normals: sometimes\n"},
		{"bad duration", "config.toml", "[fetch]\ntimeout = \"soon\"\n"},
		{"zero workers", "config.toml", "[loader]\nworkers = 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"out.yaml", "out.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)

			cfg := Default()
			cfg.Loader.Workers = 3
			cfg.Fetch.Timeout = Duration(1500 * time.Millisecond)
			cfg.Mesh.Pivot = PivotTop

			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("failed to save: %v", err)
			}

			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("failed to reload: %v", err)
			}
			if loaded.Loader.Workers != 3 || loaded.Mesh.Pivot != PivotTop {
				t.Errorf("unexpected reloaded config %+v", loaded)
			}
			if loaded.Fetch.Timeout.Std() != 1500*time.Millisecond {
				t.Errorf("expected 1.5s timeout, got %v", loaded.Fetch.Timeout)
			}
		})
	}
}

func TestBindFlags(t *testing.T) {
	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.BindFlags(fs)

	args := []string{
		"-workers", "16",
		"-pivot", "center",
		"-fetch-timeout", "3s",
		"-extensions", "KHR_texture_transform, EXT_texture_webp",
		"-log-level", "warn",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	if cfg.Loader.Workers != 16 {
		t.Errorf("expected 16 workers, got %d", cfg.Loader.Workers)
	}
	if cfg.Mesh.Pivot != PivotCenter {
		t.Errorf("expected center pivot, got %s", cfg.Mesh.Pivot)
	}
	if cfg.Fetch.Timeout.Std() != 3*time.Second {
		t.Errorf("expected 3s timeout, got %v", cfg.Fetch.Timeout)
	}
	if len(cfg.Loader.Extensions) != 2 || cfg.Loader.Extensions[1] != "EXT_texture_webp" {
		t.Errorf("unexpected extensions %v", cfg.Loader.Extensions)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected warn, got %s", cfg.Logging.Level)
	}
}
