package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

const validYAML = `
log:
  level: "debug"
  format: "text"

database:
  dsn: "postgres://u:p@localhost:5432/testdb"
  max_conns: 8
  min_conns: 2

build:
  languages: "en, de,fr,de"
  source: "kaikki"
  input: "/data/raw-wiktextract-data.jsonl"
  output_dir: "/data/out"
  format: "json"
  curated: "/data/curated.yaml"
  concurrency: 2
  persist: true

phonetic:
  reference_url: "https://example.org/phoible.csv"
  cache_size: 64
  timeout: "5s"
`

func TestLoad_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Log
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Log.Format != "text" {
		t.Errorf("log.format = %q, want %q", cfg.Log.Format, "text")
	}

	// Database
	if !cfg.Database.Enabled() {
		t.Error("database should be enabled")
	}
	if cfg.Database.MaxConns != 8 {
		t.Errorf("database.max_conns = %d, want 8", cfg.Database.MaxConns)
	}

	// Build
	if want := []string{"en", "de", "fr"}; !slices.Equal(cfg.Build.Languages, want) {
		t.Errorf("build.languages = %v, want %v", cfg.Build.Languages, want)
	}
	if cfg.Build.Format != FormatJSON {
		t.Errorf("build.format = %q, want %q", cfg.Build.Format, FormatJSON)
	}
	if cfg.Build.Concurrency != 2 {
		t.Errorf("build.concurrency = %d, want 2", cfg.Build.Concurrency)
	}
	if !cfg.Build.Persist {
		t.Error("build.persist should be true")
	}
	if cfg.Build.CuratedPath != "/data/curated.yaml" {
		t.Errorf("build.curated = %q", cfg.Build.CuratedPath)
	}

	// Phonetic
	if cfg.Phonetic.CacheSize != 64 {
		t.Errorf("phonetic.cache_size = %d, want 64", cfg.Phonetic.CacheSize)
	}
	if cfg.Phonetic.Timeout != 5*time.Second {
		t.Errorf("phonetic.timeout = %v, want 5s", cfg.Phonetic.Timeout)
	}
}

func TestLoad_ENVOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("BUILD_CONCURRENCY", "6")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Build.Concurrency != 6 {
		t.Errorf("build.concurrency = %d, want 6 (ENV override)", cfg.Build.Concurrency)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want %q (ENV override)", cfg.Log.Level, "warn")
	}
}

func TestLoad_NoFile_ENVOnly(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("BUILD_LANGUAGES", "de")
	// Set working dir to a temp dir with no config.yaml
	origDir, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	_ = os.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Enabled() {
		t.Error("database should be disabled without a DSN")
	}
	if cfg.Build.Source != SourceKaikki {
		t.Errorf("build.source = %q, want %q (default)", cfg.Build.Source, SourceKaikki)
	}
	if cfg.Build.Format != FormatTSV {
		t.Errorf("build.format = %q, want %q (default)", cfg.Build.Format, FormatTSV)
	}
	if !slices.Equal(cfg.Build.Languages, []string{"de"}) {
		t.Errorf("build.languages = %v, want [de]", cfg.Build.Languages)
	}
	if cfg.Phonetic.CacheSize != 1024 {
		t.Errorf("phonetic.cache_size = %d, want 1024 (default)", cfg.Phonetic.CacheSize)
	}
}

func TestLoadFile_ExplicitPath(t *testing.T) {
	path := writeYAML(t, t.TempDir(), validYAML)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Build.InputPath != "/data/raw-wiktextract-data.jsonl" {
		t.Errorf("build.input = %q", cfg.Build.InputPath)
	}
}

func TestLoad_ExplicitPathNotFound(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, `{{{invalid yaml`)
	t.Setenv("CONFIG_PATH", path)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log: format"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log: unknown level"},
		{"no languages", func(c *Config) { c.Build.LanguagesRaw = " , " }, "languages must not be empty"},
		{"unknown source", func(c *Config) { c.Build.Source = "web" }, "source must be"},
		{"cmu non-english", func(c *Config) {
			c.Build.Source = SourceCMU
			c.Build.LanguagesRaw = "en,de"
		}, "only provides en"},
		{"cmu english", func(c *Config) { c.Build.Source = SourceCMU }, ""},
		{"unknown format", func(c *Config) { c.Build.Format = "csv" }, "format must be"},
		{"zero concurrency", func(c *Config) { c.Build.Concurrency = 0 }, "concurrency must be >= 1"},
		{"no output dir", func(c *Config) { c.Build.OutputDir = "" }, "output_dir is required"},
		{"dry run without output dir", func(c *Config) {
			c.Build.OutputDir = ""
			c.Build.DryRun = true
		}, ""},
		{"persist without dsn", func(c *Config) { c.Build.Persist = true }, "requires database.dsn"},
		{"persist with dsn", func(c *Config) {
			c.Build.Persist = true
			c.Database.DSN = "postgres://localhost/db"
		}, ""},
		{"min conns above max", func(c *Config) {
			c.Database.DSN = "postgres://localhost/db"
			c.Database.MinConns = 20
		}, "min_conns"},
		{"zero cache size", func(c *Config) { c.Phonetic.CacheSize = 0 }, "cache_size"},
		{"zero timeout", func(c *Config) { c.Phonetic.Timeout = 0 }, "timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParseLanguages(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"en", []string{"en"}},
		{"en,de", []string{"en", "de"}},
		{" en , de ,, fr ", []string{"en", "de", "fr"}},
		{"en,en", []string{"en"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := ParseLanguages(tt.raw)
		if !slices.Equal(got, tt.want) {
			t.Errorf("ParseLanguages(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

// validConfig returns a Config that passes all validation checks.
func validConfig() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{
			MaxConns: 10,
			MinConns: 1,
		},
		Build: BuildConfig{
			LanguagesRaw: "en",
			Source:       SourceKaikki,
			OutputDir:    "./out",
			Format:       FormatTSV,
			Concurrency:  4,
		},
		Phonetic: PhoneticConfig{
			CacheSize: 1024,
			Timeout:   30 * time.Second,
		},
	}
}
